package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"academiaml/db"
	qhttp "academiaml/http"
	"academiaml/logging"
	"academiaml/registry"
	"academiaml/service"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Models struct {
		Dir       string `yaml:"dir"`
		Watch     bool   `yaml:"watch"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"models"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log.Level, config.Log.File)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	var store *db.Store
	if config.Database.Path != "" {
		store, err = db.Open(config.Database.Path)
		if err != nil {
			logger.Fatal("failed to open audit database", zap.Error(err))
		}
		defer store.Close()
		logger.Info("audit database ready", zap.String("path", config.Database.Path))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := qhttp.NewEventHub(logger)
	go hub.Run(ctx)

	reg := registry.New()
	svc := service.New(reg, store, logger, service.Options{
		CacheSize: config.Models.CacheSize,
		Events:    hub,
	})

	if config.Models.Watch && config.Models.Dir != "" {
		if err := os.MkdirAll(config.Models.Dir, 0o755); err != nil {
			logger.Fatal("failed to create model dir", zap.Error(err))
		}
		watcher, err := svc.WatchModels(config.Models.Dir)
		if err != nil {
			logger.Fatal("failed to watch model dir", zap.Error(err))
		}
		defer watcher.Close()
	}

	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds != 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverConfig, qhttp.NewHandler(svc, logger, hub), logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
