// Package store persists finished pipeline runs and their image references.
package store

import (
	"errors"
	"time"
)

// Run statuses recorded alongside the document.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is the durable result of a single pipeline run.
// Notes carries human-readable degradation messages, one per entry.
type RunRecord struct {
	ID         string
	Topic      string
	Status     string
	Document   string
	Notes      []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested run doesn't exist.
	ErrNotFound = errors.New("run not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("artifact store closed")
)
