package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service records finished recording sessions.
type Service interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
	Enabled() bool
	Close() error
}

// Repository is the storage behind Service.
type Repository interface {
	Insert(entry *Entry) error
	List(limit int) ([]Entry, error)
	Close() error
}

// Entry is one finished session.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	File       string    `json:"file"`
	IntervalMs uint32    `json:"interval_ms"`
	Samples    uint64    `json:"samples"`
	Skipped    uint64    `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	StoppedAt  time.Time `json:"stopped_at"`
}

// Duration is the wall-clock length of the session.
func (e Entry) Duration() time.Duration {
	return e.StoppedAt.Sub(e.StartedAt)
}
