// Package db persists the service's audit trail: one row per training run
// and one row per served prediction, backed by SQLite.
package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

type TrainingRun struct {
	ModelID            string    `json:"model_id"`
	TemplateID         string    `json:"template_id"`
	ModelType          string    `json:"model_type"`
	Accuracy           float64   `json:"accuracy"`
	ValidationAccuracy float64   `json:"validation_accuracy"`
	DataPoints         int       `json:"data_points"`
	MeanScore          float64   `json:"mean_score"`
	DurationSeconds    float64   `json:"duration_seconds"`
	TrainedAt          time.Time `json:"trained_at"`
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_id TEXT NOT NULL,
        template_id TEXT NOT NULL,
        model_type TEXT NOT NULL,
        accuracy REAL DEFAULT 0,
        validation_accuracy REAL DEFAULT 0,
        data_points INTEGER DEFAULT 0,
        mean_score REAL DEFAULT 0,
        duration_seconds REAL DEFAULT 0,
        trained_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS prediction_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_id TEXT NOT NULL,
        region_id TEXT NOT NULL,
        predicted_label TEXT NOT NULL,
        confidence REAL NOT NULL,
        assigned_score REAL NOT NULL,
        needs_review INTEGER NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_training_runs_model ON training_runs(model_id);
    CREATE INDEX IF NOT EXISTS idx_prediction_log_model ON prediction_log(model_id);
    `
	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{db: database}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LogTrainingRun(run TrainingRun) error {
	_, err := s.db.Exec(`
        INSERT INTO training_runs
        (model_id, template_id, model_type, accuracy, validation_accuracy, data_points, mean_score, duration_seconds, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ModelID, run.TemplateID, run.ModelType, run.Accuracy, run.ValidationAccuracy,
		run.DataPoints, run.MeanScore, run.DurationSeconds, run.TrainedAt,
	)
	return err
}

func (s *Store) LogPrediction(modelID, regionID, label string, confidence, assignedScore float64, needsReview bool) error {
	_, err := s.db.Exec(`
        INSERT INTO prediction_log (model_id, region_id, predicted_label, confidence, assigned_score, needs_review)
        VALUES (?, ?, ?, ?, ?, ?)`,
		modelID, regionID, label, confidence, assignedScore, needsReview,
	)
	return err
}

// RecentTrainingRuns returns the newest runs first.
func (s *Store) RecentTrainingRuns(limit int) ([]TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
        SELECT model_id, template_id, model_type, accuracy, validation_accuracy, data_points, mean_score, duration_seconds, trained_at
        FROM training_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var run TrainingRun
		if err := rows.Scan(&run.ModelID, &run.TemplateID, &run.ModelType, &run.Accuracy,
			&run.ValidationAccuracy, &run.DataPoints, &run.MeanScore, &run.DurationSeconds, &run.TrainedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PredictionCounts returns the total logged predictions and how many were
// flagged for review.
func (s *Store) PredictionCounts() (total, flagged int64, err error) {
	err = s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(needs_review), 0) FROM prediction_log`).Scan(&total, &flagged)
	return total, flagged, err
}
