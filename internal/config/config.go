package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "ACCLOGGER"
	DefaultConfigName = "acclogger"
	DefaultLogLevel   = "info"

	configEnvSuffix = "_CONFIG"
)

type Config struct {
	Listen   string         `mapstructure:"listen"`
	LogLevel string         `mapstructure:"log_level"`
	PIDFile  string         `mapstructure:"pid_file"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sensor   SensorConfig   `mapstructure:"sensor"`
	Sampling SamplingConfig `mapstructure:"sampling"`
	Network  NetworkConfig  `mapstructure:"network"`
	UI       UIConfig       `mapstructure:"ui"`
	History  HistoryConfig  `mapstructure:"history"`
}

type StorageConfig struct {
	// Root is the mount point of the removable card.
	Root string `mapstructure:"root"`
}

type SensorConfig struct {
	Driver  string `mapstructure:"driver"`
	Bus     string `mapstructure:"bus"`
	Address int    `mapstructure:"address"`
	Range   string `mapstructure:"range"`
	Rate    string `mapstructure:"rate"`
}

// SamplingConfig holds recording policy. All values are milliseconds.
type SamplingConfig struct {
	DefaultIntervalMs uint32 `mapstructure:"default_interval_ms"`
	MinIntervalMs     uint32 `mapstructure:"min_interval_ms"`
	MaxIntervalMs     uint32 `mapstructure:"max_interval_ms"`
	FlushIntervalMs   uint32 `mapstructure:"flush_interval_ms"`
	PollIntervalMs    uint32 `mapstructure:"poll_interval_ms"`
}

type NetworkConfig struct {
	Mode string `mapstructure:"mode"`
}

type UIConfig struct {
	// Dir serves UI assets from disk instead of the embedded bundle.
	Dir string `mapstructure:"dir"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

var defaults = map[string]any{
	"listen":                       ":8080",
	"log_level":                    DefaultLogLevel,
	"pid_file":                     "",
	"storage.root":                 "/media/sd",
	"sensor.driver":                "mma8451",
	"sensor.bus":                   "/dev/i2c-1",
	"sensor.address":               0x1D,
	"sensor.range":                 "2g",
	"sensor.rate":                  "100hz",
	"sampling.default_interval_ms": 5,
	"sampling.min_interval_ms":     5,
	"sampling.max_interval_ms":     5000,
	"sampling.flush_interval_ms":   1000,
	"sampling.poll_interval_ms":    1,
	"network.mode":                 "sta",
	"ui.dir":                       "",
	"history.enabled":              false,
	"history.db_path":              "/var/lib/acclogger/history.db",
}

// flagKeys maps flag names registered by RegisterFlags to config keys.
var flagKeys = map[string]string{
	"listen":       "listen",
	"log-level":    "log_level",
	"pid-file":     "pid_file",
	"storage-root": "storage.root",
	"sensor":       "sensor.driver",
	"i2c-bus":      "sensor.bus",
	"interval":     "sampling.default_interval_ms",
	"ui-dir":       "ui.dir",
	"history":      "history.enabled",
	"history-db":   "history.db_path",
}

var (
	validDrivers = []string{"mma8451", "sim"}
	validRanges  = []string{"2g", "4g", "8g"}
	validRates   = []string{"800hz", "400hz", "200hz", "100hz", "50hz", "12.5hz", "6.25hz", "1.56hz"}
	validModes   = []string{"sta", "ap"}
)

// RegisterFlags defines the command line flags understood by the loader.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("pid-file", "", "PID file path (empty disables)")
	fs.String("storage-root", "/media/sd", "Mount point of the removable card")
	fs.String("sensor", "mma8451", "Sensor driver (mma8451, sim)")
	fs.String("i2c-bus", "/dev/i2c-1", "I2C bus device")
	fs.Uint32("interval", 5, "Default sample interval in milliseconds")
	fs.String("ui-dir", "", "Serve UI assets from this directory")
	fs.Bool("history", false, "Record completed sessions to the history database")
	fs.String("history-db", "/var/lib/acclogger/history.db", "History database path")
}

// Loader reads configuration from file, environment and flags.
type Loader struct {
	v    *viper.Viper
	opts options

	mu      sync.Mutex
	watched bool
}

func NewLoader(opts ...Option) (*Loader, error) {
	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errors.New().Wrap(errors.ErrInvalidArgument, err)
		}
	}

	return &Loader{
		v:    viper.New(),
		opts: o,
	}, nil
}

// Load is a shorthand for NewLoader followed by Loader.Load.
func Load(opts ...Option) (*Config, error) {
	l, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}

	return l.Load()
}

func (l *Loader) Load() (*Config, error) {
	errFactory := errors.New()
	v := l.v

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(l.opts.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := l.opts.configPath
	if path == "" {
		path = os.Getenv(l.opts.envPrefix + configEnvSuffix)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/acclogger")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	if fs := l.opts.flags; fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, fmt.Errorf("failed to unmarshal config: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFileUsed returns the path of the file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch re-reads the config file whenever it changes and hands the new
// configuration to callback. Invalid edits are logged and ignored. Without a
// config file there is nothing to watch and Watch returns nil.
func (l *Loader) Watch(ctx context.Context, callback func(*Config)) error {
	if l.v.ConfigFileUsed() == "" {
		logger.With("config").Debug().Msg("No config file loaded, not watching")
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watched {
		return errors.New().WithMessage(errors.ErrInvalidArgument, "config watch already started")
	}
	l.watched = true

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		l.reload(e, callback)
	})
	l.v.WatchConfig()

	logger.With("config").Debug().Str("path", l.v.ConfigFileUsed()).Msg("Watching config file")

	return nil
}

func (l *Loader) reload(e fsnotify.Event, callback func(*Config)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	if err := l.v.ReadInConfig(); err != nil {
		logger.With("config").Warn().Err(err).Str("path", e.Name).Msg("Failed to re-read config file")
		return
	}

	cfg, err := l.decode()
	if err != nil {
		logger.With("config").Warn().Err(err).Str("path", e.Name).Msg("Ignoring invalid config change")
		return
	}

	logger.With("config").Info().Str("path", e.Name).Msg("Config reloaded")
	callback(cfg)
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	errFactory := errors.New()
	var errs []error

	invalid := func(field string, value any, reason string) {
		errs = append(errs, &fieldError{field: field, value: value, reason: reason})
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, errFactory.Wrap(errors.ErrInvalidLogLevel,
			&fieldError{field: "log_level", value: c.LogLevel, reason: "unknown level"}))
	}
	if c.Listen == "" {
		invalid("listen", c.Listen, "must not be empty")
	}
	if c.Storage.Root == "" {
		invalid("storage.root", c.Storage.Root, "must not be empty")
	}
	if !oneOf(c.Sensor.Driver, validDrivers) {
		invalid("sensor.driver", c.Sensor.Driver, "must be one of "+strings.Join(validDrivers, ", "))
	}
	if c.Sensor.Address <= 0 || c.Sensor.Address > 0x7F {
		invalid("sensor.address", c.Sensor.Address, "must be a 7-bit I2C address")
	}
	if !oneOf(c.Sensor.Range, validRanges) {
		invalid("sensor.range", c.Sensor.Range, "must be one of "+strings.Join(validRanges, ", "))
	}
	if !oneOf(c.Sensor.Rate, validRates) {
		invalid("sensor.rate", c.Sensor.Rate, "must be one of "+strings.Join(validRates, ", "))
	}
	if !oneOf(c.Network.Mode, validModes) {
		invalid("network.mode", c.Network.Mode, "must be one of "+strings.Join(validModes, ", "))
	}
	if c.History.Enabled && c.History.DBPath == "" {
		invalid("history.db_path", c.History.DBPath, "required when history is enabled")
	}

	s := c.Sampling
	if s.MinIntervalMs == 0 {
		errs = append(errs, errFactory.Wrap(errors.ErrInvalidInterval,
			&fieldError{field: "sampling.min_interval_ms", value: s.MinIntervalMs, reason: "must be positive"}))
	}
	if s.MaxIntervalMs < s.MinIntervalMs {
		errs = append(errs, errFactory.Wrap(errors.ErrInvalidInterval,
			&fieldError{field: "sampling.max_interval_ms", value: s.MaxIntervalMs, reason: "must not be below min_interval_ms"}))
	}
	if s.FlushIntervalMs == 0 {
		errs = append(errs, errFactory.Wrap(errors.ErrInvalidInterval,
			&fieldError{field: "sampling.flush_interval_ms", value: s.FlushIntervalMs, reason: "must be positive"}))
	}
	if s.PollIntervalMs == 0 {
		errs = append(errs, errFactory.Wrap(errors.ErrInvalidInterval,
			&fieldError{field: "sampling.poll_interval_ms", value: s.PollIntervalMs, reason: "must be positive"}))
	}

	if len(errs) == 0 {
		return nil
	}

	return errFactory.Wrap(errors.ErrInvalidConfig, errors.Join(errs...))
}

// ValidationErrors extracts the field-level problems from a Validate error.
func ValidationErrors(err error) []ValidationError {
	var out []ValidationError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if fe, ok := err.(ValidationError); ok {
			out = append(out, fe)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)

	return out
}

func oneOf(value string, allowed []string) bool {
	value = strings.ToLower(value)
	for _, a := range allowed {
		if value == a {
			return true
		}
	}

	return false
}
