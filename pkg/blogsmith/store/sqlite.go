package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ArtifactStore persists run records to SQLite.
// It is suitable for single-process production use.
type ArtifactStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewArtifactStore opens or creates the run database.
// The path should be a file path (e.g., "./blogsmith.db") or ":memory:" for testing.
func NewArtifactStore(path string) (*ArtifactStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			status TEXT NOT NULL,
			document TEXT NOT NULL,
			notes TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			run_id TEXT NOT NULL,
			image_id TEXT NOT NULL,
			ref TEXT NOT NULL,
			PRIMARY KEY (run_id, image_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create images table: %w", err)
	}

	return &ArtifactStore{db: db}, nil
}

// SaveRun stores a run record, overwriting any previous record with the same ID.
func (s *ArtifactStore) SaveRun(rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	notes, err := json.Marshal(rec.Notes)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, topic, status, document, notes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			topic = excluded.topic,
			status = excluded.status,
			document = excluded.document,
			notes = excluded.notes,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`, rec.ID, rec.Topic, rec.Status, rec.Document, string(notes),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// SaveImage records a generated image reference for a run.
func (s *ArtifactStore) SaveImage(runID, imageID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO images (run_id, image_id, ref)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, image_id) DO UPDATE SET
			ref = excluded.ref
	`, runID, imageID, ref)

	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// GetRun retrieves a run record by ID.
// Returns ErrNotFound if the run doesn't exist.
func (s *ArtifactStore) GetRun(id string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return RunRecord{}, ErrStoreClosed
	}

	var rec RunRecord
	var notes, started, finished string
	err := s.db.QueryRow(`
		SELECT id, topic, status, document, notes, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Topic, &rec.Status, &rec.Document, &notes, &started, &finished)

	if err == sql.ErrNoRows {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run: %w", err)
	}

	if err := json.Unmarshal([]byte(notes), &rec.Notes); err != nil {
		return RunRecord{}, fmt.Errorf("decode notes: %w", err)
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return rec, nil
}

// ListRuns returns all run records ordered by start time, newest first.
// Returns an empty slice (not an error) when the store is empty.
func (s *ArtifactStore) ListRuns() ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT id, topic, status, document, notes, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var recs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var notes, started, finished string
		if err := rows.Scan(&rec.ID, &rec.Topic, &rec.Status, &rec.Document, &notes, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(notes), &rec.Notes); err != nil {
			return nil, fmt.Errorf("decode notes: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return recs, nil
}

// Images returns the stored image references for a run keyed by image ID.
// Returns an empty map (not an error) when the run has no images.
func (s *ArtifactStore) Images(runID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT image_id, ref FROM images
		WHERE run_id = ?
		ORDER BY image_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := make(map[string]string)
	for rows.Next() {
		var id, ref string
		if err := rows.Scan(&id, &ref); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images[id] = ref
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}

// Close releases the database connection. Safe to call multiple times.
func (s *ArtifactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
