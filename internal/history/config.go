package history

import (
	"path/filepath"

	"codeberg.org/mutker/acclogger/internal/config"
	"codeberg.org/mutker/acclogger/internal/errors"
)

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/acclogger/history.db"
	defaultLimit   = 100
)

type Config struct {
	DBPath  string
	Enabled bool
	// BackupDir receives a copy of the database before a schema reset.
	// Defaults to a backups directory next to DBPath.
	BackupDir string
}

func DefaultConfig() Config {
	return Config{
		DBPath:  defaultDBPath,
		Enabled: false,
	}
}

func FromConfig(cfg config.HistoryConfig) Config {
	return Config{
		DBPath:  cfg.DBPath,
		Enabled: cfg.Enabled,
	}
}

func (c Config) Validate() error {
	if c.Enabled && c.DBPath == "" {
		return errors.New().New(ErrInvalidDBPath)
	}
	return nil
}

func (c Config) backupDir() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(c.DBPath), "backups")
}
