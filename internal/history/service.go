// Package history keeps a log of finished recording sessions in SQLite.
package history

import (
	"context"

	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/logger"
	"github.com/google/uuid"
)

type service struct {
	repo Repository
}

type noopService struct{}

// NewService opens the repository, or returns a no-op service when
// history is disabled.
func NewService(cfg Config) (Service, error) {
	errFactory := errors.New()
	log := logger.With("history")

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("History disabled, using no-op service")
		return &noopService{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &service{repo: repo}, nil
}

// Record stores entry, assigning an ID when it has none.
func (s *service) Record(ctx context.Context, entry *Entry) error {
	errFactory := errors.New()

	if entry == nil || entry.File == "" {
		return errFactory.New(ErrInvalidEntry)
	}
	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(ErrOperationTimeout, err)
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	return s.repo.Insert(entry)
}

// List returns up to limit entries, newest first.
func (s *service) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New().Wrap(ErrOperationTimeout, err)
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	return s.repo.List(limit)
}

func (*service) Enabled() bool { return true }

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*noopService) Record(context.Context, *Entry) error { return nil }

func (*noopService) List(context.Context, int) ([]Entry, error) {
	return []Entry{}, nil
}

func (*noopService) Enabled() bool { return false }
func (*noopService) Close() error  { return nil }
