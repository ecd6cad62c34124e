package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/logger"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	mu     sync.Mutex
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("History repository initialized")

	return &repository{db: db, logger: log}, nil
}

func (r *repository) Insert(e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(insertSessionSQL,
		e.ID.String(),
		e.File,
		int64(e.IntervalMs),
		int64(e.Samples),
		int64(e.Skipped),
		e.StartedAt.UnixMilli(),
		e.StoppedAt.UnixMilli(),
	)
	if err != nil {
		return errors.New().Wrap(ErrRecordFailed, err)
	}

	return nil
}

func (r *repository) List(limit int) ([]Entry, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(listSessionsSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			id               string
			e                Entry
			interval         int64
			samples, skipped int64
			started, stopped int64
		)
		if err := rows.Scan(&id, &e.File, &interval, &samples, &skipped, &started, &stopped); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		e.IntervalMs = uint32(interval)
		e.Samples = uint64(samples)
		e.Skipped = uint64(skipped)
		e.StartedAt = time.UnixMilli(started).UTC()
		e.StoppedAt = time.UnixMilli(stopped).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return entries, nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	r.logger.Info().Msg("History repository closed")

	return nil
}
