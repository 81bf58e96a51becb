package service

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const modelBlobSuffix = "_model.json"

// ModelWatcher hot-loads model blobs written into a directory by an external
// trainer, so retrained models reach the registry without a restart.
type ModelWatcher struct {
	svc     *Service
	watcher *fsnotify.Watcher
	dir     string
	logger  *zap.Logger
	done    chan struct{}
}

// WatchModels starts watching dir for model blob writes. Close the returned
// watcher to stop.
func (s *Service) WatchModels(dir string) (*ModelWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &ModelWatcher{
		svc:     s,
		watcher: watcher,
		dir:     dir,
		logger:  s.logger,
		done:    make(chan struct{}),
	}
	go w.run()
	s.logger.Info("watching model directory", zap.String("dir", dir))
	return w, nil
}

func (w *ModelWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, modelBlobSuffix) {
				continue
			}
			modelID := strings.TrimSuffix(name, modelBlobSuffix)
			if err := w.svc.LoadModel(modelID, w.dir); err != nil {
				w.logger.Warn("failed to reload model blob",
					zap.String("model_id", modelID), zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

func (w *ModelWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
