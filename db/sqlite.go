package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"mindsync/ml"
)

// StoreConfig configures the sqlite file backing submission history.
type StoreConfig struct {
	Path      string `yaml:"path"`
	EnableWAL bool   `yaml:"enable_wal"`
	MaxConns  int    `yaml:"max_conns"`
}

// Store persists scored submissions and training runs.
type Store struct {
	config StoreConfig
	db     *sql.DB

	stmts    map[string]*sql.Stmt
	stmtLock sync.RWMutex
}

// Submission is one scored day.
type Submission struct {
	ID        string        `json:"id"`
	Input     ml.DailyInput `json:"input"`
	Score     float64       `json:"score"`
	Band      string        `json:"band"`
	CreatedAt time.Time     `json:"created_at"`
}

// SubmissionStats summarizes the history. Trend is the latest score minus the
// one before it, zero with fewer than two submissions.
type SubmissionStats struct {
	Count   int       `json:"count"`
	Latest  float64   `json:"latest"`
	Average float64   `json:"average"`
	Best    float64   `json:"best"`
	Trend   float64   `json:"trend"`
	LastAt  time.Time `json:"last_at"`
}

// TrainingLog records one training run.
type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	R2         float64   `json:"r2"`
	MAE        float64   `json:"mae"`
	SMAPE      float64   `json:"smape"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

func Open(config StoreConfig) (*Store, error) {
	if config.Path == "" {
		return nil, errors.New("database path is required")
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 4
	}
	if dir := filepath.Dir(config.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := config.Path + "?_busy_timeout=5000"
	if config.EnableWAL {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	database.SetMaxOpenConns(config.MaxConns)
	database.SetMaxIdleConns(config.MaxConns)
	database.SetConnMaxLifetime(time.Hour)

	store := &Store{
		config: config,
		db:     database,
		stmts:  make(map[string]*sql.Stmt),
	}
	if err := store.createTables(); err != nil {
		database.Close()
		return nil, fmt.Errorf("create tables failed: %w", err)
	}
	return store, nil
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            screen_time_hours REAL NOT NULL,
            work_screen_hours REAL NOT NULL,
            leisure_screen_hours REAL NOT NULL,
            sleep_hours REAL NOT NULL,
            sleep_quality REAL NOT NULL,
            stress_level REAL NOT NULL,
            productivity REAL NOT NULL,
            score REAL NOT NULL,
            band TEXT NOT NULL,
            created_at INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS training_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            model_name TEXT NOT NULL,
            r2 REAL,
            mae REAL,
            smape REAL,
            trained_at INTEGER NOT NULL,
            data_points INTEGER
        )`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at)`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("exec query failed: %w", err)
		}
	}
	return nil
}

func (s *Store) prepared(query string) (*sql.Stmt, error) {
	s.stmtLock.RLock()
	stmt, ok := s.stmts[query]
	s.stmtLock.RUnlock()
	if ok {
		return stmt, nil
	}

	s.stmtLock.Lock()
	defer s.stmtLock.Unlock()
	if stmt, ok := s.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	s.stmts[query] = stmt
	return stmt, nil
}

// SaveSubmission stores sub, assigning an id and timestamp when they are unset.
func (s *Store) SaveSubmission(ctx context.Context, sub Submission) (Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	stmt, err := s.prepared(`INSERT INTO submissions (
            id, screen_time_hours, work_screen_hours, leisure_screen_hours,
            sleep_hours, sleep_quality, stress_level, productivity,
            score, band, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Submission{}, err
	}
	in := sub.Input
	_, err = stmt.ExecContext(ctx,
		sub.ID,
		in.ScreenTimeHours,
		in.WorkScreenHours,
		in.LeisureScreenHours,
		in.SleepHours,
		in.SleepQuality,
		in.StressLevel,
		in.Productivity,
		sub.Score,
		sub.Band,
		sub.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Submission{}, fmt.Errorf("save submission: %w", err)
	}
	return sub, nil
}

// ListSubmissions returns up to limit submissions, newest first. A limit <= 0
// returns all of them.
func (s *Store) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, screen_time_hours, work_screen_hours, leisure_screen_hours,
               sleep_hours, sleep_quality, stress_level, productivity,
               score, band, created_at
        FROM submissions
        ORDER BY seq DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]Submission, 0)
	for rows.Next() {
		var sub Submission
		var created int64
		in := &sub.Input
		if err := rows.Scan(&sub.ID, &in.ScreenTimeHours, &in.WorkScreenHours, &in.LeisureScreenHours,
			&in.SleepHours, &in.SleepQuality, &in.StressLevel, &in.Productivity,
			&sub.Score, &sub.Band, &created); err != nil {
			return nil, err
		}
		sub.CreatedAt = time.Unix(0, created).UTC()
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) SubmissionStats(ctx context.Context) (SubmissionStats, error) {
	var stats SubmissionStats
	var avg, best sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(score), MAX(score) FROM submissions`).Scan(&stats.Count, &avg, &best)
	if err != nil {
		return stats, err
	}
	if stats.Count == 0 {
		return stats, nil
	}
	stats.Average = avg.Float64
	stats.Best = best.Float64

	recent, err := s.ListSubmissions(ctx, 2)
	if err != nil {
		return stats, err
	}
	stats.Latest = recent[0].Score
	stats.LastAt = recent[0].CreatedAt
	if len(recent) > 1 {
		stats.Trend = recent[0].Score - recent[1].Score
	}
	return stats, nil
}

func (s *Store) SaveTrainingLog(ctx context.Context, entry TrainingLog) error {
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO training_log (model_name, r2, mae, smape, trained_at, data_points)
        VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ModelName, entry.R2, entry.MAE, entry.SMAPE, entry.TrainedAt.UnixNano(), entry.DataPoints)
	return err
}

// LoadTrainingLog returns every recorded run, newest first.
func (s *Store) LoadTrainingLog(ctx context.Context) ([]TrainingLog, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT model_name, r2, mae, smape, trained_at, data_points
        FROM training_log
        ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		var trained int64
		if err := rows.Scan(&log.ModelName, &log.R2, &log.MAE, &log.SMAPE, &trained, &log.DataPoints); err != nil {
			return nil, err
		}
		log.TrainedAt = time.Unix(0, trained).UTC()
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (s *Store) Close() error {
	s.stmtLock.Lock()
	for _, stmt := range s.stmts {
		stmt.Close()
	}
	s.stmts = map[string]*sql.Stmt{}
	s.stmtLock.Unlock()
	return s.db.Close()
}
