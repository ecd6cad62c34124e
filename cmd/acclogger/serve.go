package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/acclogger/internal/config"
	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/history"
	"codeberg.org/mutker/acclogger/internal/logger"
	"codeberg.org/mutker/acclogger/internal/netinfo"
	"codeberg.org/mutker/acclogger/internal/pid"
	"codeberg.org/mutker/acclogger/internal/recorder"
	"codeberg.org/mutker/acclogger/internal/sensor"
	"codeberg.org/mutker/acclogger/internal/server"
	"codeberg.org/mutker/acclogger/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the logger and its HTTP control surface",
		Args:  cobra.NoArgs,
	}
	config.RegisterFlags(cmd.Flags())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		loader, err := config.NewLoader(config.WithConfigFile(*configPath), config.WithFlags(cmd.Flags()))
		if err != nil {
			return err
		}
		cfg, err := loader.Load()
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, loader, cfg)
	}

	return cmd
}

func serve(parent context.Context, loader *config.Loader, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if cfg.PIDFile != "" {
		pf := pid.New(cfg.PIDFile)
		if err := pf.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pf.Release(); err != nil {
				logger.Warn().Err(err).Msg("Failed to remove PID file")
			}
		}()
	}

	if err := loader.Watch(ctx, func(c *config.Config) {
		if err := logger.SetLevelString(c.LogLevel); err != nil {
			logger.Warn().Err(err).Msg("Ignoring log level from reloaded config")
			return
		}
		logger.Info().Str("log_level", c.LogLevel).Msg("Configuration reloaded")
	}); err != nil {
		logger.Warn().Err(err).Msg("Config watch unavailable")
	}

	// sensor and card failures degrade recording but keep the API up
	dev, err := sensor.Open(cfg.Sensor)
	if err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrInitFailed, err)).Msg("Sensor unavailable")
	}
	defer dev.Close()

	vol := storage.NewOS(cfg.Storage.Root)
	if !vol.Present() {
		logger.Warn().Str("root", cfg.Storage.Root).Msg("Storage not mounted")
	}

	hist, err := history.NewService(history.FromConfig(cfg.History))
	if err != nil {
		logger.Warn().Err(err).Msg("History disabled")
		hist, _ = history.NewService(history.DefaultConfig())
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close history")
		}
	}()

	rec := recorder.New(vol, dev, recorder.PolicyFromConfig(cfg.Sampling),
		recorder.WithOnStop(recordHistory(hist)))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.Run(ctx, time.Duration(cfg.Sampling.PollIntervalMs)*time.Millisecond)
	}()

	srv := server.New(server.Deps{
		Recorder: rec,
		Files:    vol,
		History:  hist,
		Net:      netinfo.NewDetector(cfg.Network.Mode),
		Static:   server.UI(cfg.UI.Dir),
	})

	logger.Info().
		Str("listen", cfg.Listen).
		Str("sensor", dev.Name()).
		Str("storage", cfg.Storage.Root).
		Msg("acclogger started")

	err = srv.Run(ctx, cfg.Listen)
	if err != nil {
		logger.ErrorWithCode(errors.New().Wrap(errors.ErrOperationFailed, err)).Msg("HTTP server failed")
	}

	// the sampling loop stops the active session on its way out
	cancel()
	wg.Wait()
	logger.Info().Msg("Exiting...")

	return err
}

func recordHistory(hist history.Service) func(recorder.Summary) {
	return func(s recorder.Summary) {
		if !hist.Enabled() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		err := hist.Record(ctx, &history.Entry{
			File:       s.File,
			IntervalMs: s.IntervalMs,
			Samples:    s.Samples,
			Skipped:    s.Skipped,
			StartedAt:  s.StartedAt,
			StoppedAt:  s.StoppedAt,
		})
		if err != nil {
			logger.Warn().Err(err).Str("file", s.File).Msg("Failed to record session history")
		}
	}
}
