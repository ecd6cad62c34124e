// Package recorder owns the recording session and the sampling loop that
// appends accelerometer rows to it.
package recorder

import (
	"context"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/logger"
	"codeberg.org/mutker/acclogger/internal/sensor"
	"codeberg.org/mutker/acclogger/internal/storage"
	"golang.org/x/time/rate"
)

const header = "timedelta_ms,Xacc,Yacc,Zacc\n"

// Summary describes a finished session.
type Summary struct {
	File       string
	IntervalMs uint32
	Samples    uint64
	Skipped    uint64
	StartedAt  time.Time
	StoppedAt  time.Time
}

type session struct {
	file       storage.File
	name       string
	intervalMs uint32
	start      uint64
	lastSample uint64
	lastFlush  uint64
	sampled    bool
	samples    uint64
	skipped    uint64
	startedAt  time.Time
}

// Recorder is safe for concurrent use. Control calls and Tick serialize on
// one mutex; nothing under it blocks longer than a single write or flush.
type Recorder struct {
	mu      sync.Mutex
	s       *session
	stats   Stats
	buf     []byte
	volume  Volume
	sensor  sensor.Reader
	policy  Policy
	clock   Clock
	now     func() time.Time
	onStop  func(Summary)
	limiter *rate.Limiter
	log     logger.Logger
}

type Option func(*Recorder)

func WithClock(c Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithWallClock sets the time source used for session summaries.
func WithWallClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithOnStop registers fn to receive every finished session. It runs after
// the lock is released.
func WithOnStop(fn func(Summary)) Option {
	return func(r *Recorder) { r.onStop = fn }
}

// WithLogger overrides the component logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

func New(volume Volume, reader sensor.Reader, policy Policy, opts ...Option) *Recorder {
	r := &Recorder{
		volume:  volume,
		sensor:  reader,
		policy:  policy,
		clock:   NewClock(),
		now:     time.Now,
		buf:     make([]byte, 0, 64),
		limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.With("recorder")
	}

	return r
}

// Policy returns the sampling limits in effect.
func (r *Recorder) Policy() Policy {
	return r.policy
}

// Start opens a new session. The name is sanitized and made unique; the
// interval is clamped into the policy range.
func (r *Recorder) Start(requestedName string, requestedIntervalMs uint32) (Info, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.s != nil {
		return Info{}, errFactory.New(errors.ErrAlreadyRecording)
	}
	if !r.volume.Present() {
		return Info{}, errFactory.New(errors.ErrStorageUnavailable)
	}

	interval := r.policy.Clamp(requestedIntervalMs)
	name := PickUnique(r.volume.Exists, Sanitize(requestedName))

	f, err := r.volume.Create(name)
	if err != nil {
		if errors.HasCode(err, errors.ErrFileOpen) {
			return Info{}, err
		}
		return Info{}, errFactory.Wrap(errors.ErrFileOpen, err)
	}
	if err := writeHeader(f); err != nil {
		f.Close()
		return Info{}, errFactory.Wrap(errors.ErrFileOpen, err)
	}

	now := r.clock.Millis()
	r.s = &session{
		file:       f,
		name:       name,
		intervalMs: interval,
		start:      now,
		lastSample: now,
		lastFlush:  now,
		startedAt:  r.now(),
	}

	r.log.Info().
		Str("file", name).
		Uint32("interval_ms", interval).
		Msg("Recording started")

	return r.infoLocked(), nil
}

func writeHeader(f storage.File) error {
	if _, err := f.Write([]byte(header)); err != nil {
		return err
	}

	return f.Sync()
}

// Stop ends the session. It is a no-op when idle. The session is always
// cleared; flush and close failures are counted and returned.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	s := r.s
	if s == nil {
		r.mu.Unlock()
		return nil
	}
	r.s = nil

	var errs []error
	if err := s.file.Sync(); err != nil {
		r.stats.FlushFailures++
		errs = append(errs, err)
	}
	if err := s.file.Close(); err != nil {
		r.stats.CloseFailures++
		errs = append(errs, err)
	}
	onStop := r.onStop
	summary := Summary{
		File:       s.name,
		IntervalMs: s.intervalMs,
		Samples:    s.samples,
		Skipped:    s.skipped,
		StartedAt:  s.startedAt,
		StoppedAt:  r.now(),
	}
	r.mu.Unlock()

	r.log.Info().
		Str("file", summary.File).
		Uint64("samples", summary.Samples).
		Uint64("skipped", summary.Skipped).
		Msg("Recording stopped")

	if onStop != nil {
		onStop(summary)
	}

	if len(errs) == 0 {
		return nil
	}
	err := errors.New().Wrap(errors.ErrOperationFailed, errors.Join(errs...))
	r.log.Warn().Err(err).Str("file", summary.File).Msg("Failed to close recording cleanly")

	return err
}

// Status never fails and never mutates state.
func (r *Recorder) Status() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.infoLocked()
}

func (r *Recorder) infoLocked() Info {
	info := Info{
		IntervalMs: r.policy.DefaultIntervalMs,
		UptimeMs:   r.clock.Millis(),
	}
	if r.s != nil {
		info.Active = true
		info.File = r.s.name
		info.Samples = r.s.samples
		info.Skipped = r.s.skipped
		info.IntervalMs = r.s.intervalMs
	}

	return info
}

func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

// Tick runs one step of the sampling loop. The first tick of a session is
// due immediately; later ones wait for the session interval.
func (r *Recorder) Tick() TickResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.s
	if s == nil {
		return Idle
	}

	now := r.clock.Millis()
	if s.sampled && now-s.lastSample < uint64(s.intervalMs) {
		return NotDue
	}
	s.lastSample = now
	s.sampled = true

	result := Sampled
	sample, err := r.sensor.ReadSample()
	if err != nil {
		s.skipped++
		r.stats.SensorFailures++
		r.throttledWarn(err, "Sensor read failed, sample skipped")
		result = SensorFailed
	} else {
		r.buf = appendRow(r.buf[:0], now-s.start, sample)
		if _, err := s.file.Write(r.buf); err != nil {
			s.skipped++
			r.stats.WriteFailures++
			r.throttledWarn(err, "Row write failed, sample skipped")
			result = WriteFailed
		} else {
			s.samples++
		}
	}

	if now-s.lastFlush >= uint64(r.policy.FlushIntervalMs) {
		if err := s.file.Sync(); err != nil {
			r.stats.FlushFailures++
			r.throttledWarn(err, "Flush failed")
		}
		s.lastFlush = now
	}

	return result
}

func (r *Recorder) throttledWarn(err error, msg string) {
	if !r.limiter.Allow() {
		return
	}
	r.log.Warn().
		Err(err).
		Uint64("sensor_failures", r.stats.SensorFailures).
		Uint64("write_failures", r.stats.WriteFailures).
		Msg(msg)
}

func appendRow(buf []byte, dt uint64, s sensor.Sample) []byte {
	buf = strconv.AppendUint(buf, dt, 10)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, s.X, 'f', 6, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, s.Y, 'f', 6, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, s.Z, 'f', 6, 64)

	return append(buf, '\n')
}

// Run calls Tick every pollEvery until ctx is done, then stops any active
// session.
func (r *Recorder) Run(ctx context.Context, pollEvery time.Duration) {
	if pollEvery <= 0 {
		pollEvery = time.Millisecond
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	r.log.Debug().Dur("poll", pollEvery).Msg("Sampling loop started")

	for {
		select {
		case <-ctx.Done():
			if err := r.Stop(); err != nil {
				r.log.ErrorWithCode(errors.New().Wrap(errors.ErrShutdownFailed, err)).Send()
			}
			r.log.Debug().Msg("Sampling loop stopped")
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Remove deletes a file from the volume. It is refused while any session is
// active.
func (r *Recorder) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.s != nil {
		return errors.New().New(errors.ErrRecordingInProgress)
	}

	if err := r.volume.Remove(name); err != nil {
		return err
	}
	r.log.Info().Str("file", name).Msg("File deleted")

	return nil
}
