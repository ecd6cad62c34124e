package recorder_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "codeberg.org/mutker/acclogger/internal/errors"
	"codeberg.org/mutker/acclogger/internal/recorder"
	"codeberg.org/mutker/acclogger/internal/sensor"
	"codeberg.org/mutker/acclogger/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	ms uint64
}

func (c *fakeClock) Millis() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ms
}

func (c *fakeClock) Advance(ms uint64) {
	c.mu.Lock()
	c.ms += ms
	c.mu.Unlock()
}

type fakeSensor struct {
	mu    sync.Mutex
	reads int
	fail  func(n int) bool
}

func (s *fakeSensor) ReadSample() (sensor.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.fail != nil && s.fail(s.reads) {
		return sensor.Sample{}, errors.New("i2c timeout")
	}
	return sensor.Sample{X: 0.5, Y: -0.25, Z: 9.80665}, nil
}

// faultyFile counts syncs and fails on demand.
type faultyFile struct {
	storage.File
	syncs     int
	failWrite bool
	failClose bool
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.failWrite {
		return 0, errors.New("write error")
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	f.syncs++
	return f.File.Sync()
}

func (f *faultyFile) Close() error {
	err := f.File.Close()
	if f.failClose {
		return errors.New("close error")
	}
	return err
}

type wrappedVolume struct {
	*storage.Volume
	last *faultyFile
	wrap func(*faultyFile)
}

func (v *wrappedVolume) Create(name string) (storage.File, error) {
	f, err := v.Volume.Create(name)
	if err != nil {
		return nil, err
	}
	v.last = &faultyFile{File: f}
	if v.wrap != nil {
		v.wrap(v.last)
	}
	return v.last, nil
}

type fixture struct {
	fs     afero.Fs
	vol    *wrappedVolume
	clock  *fakeClock
	sensor *fakeSensor
	rec    *recorder.Recorder
}

func newFixture(t *testing.T, opts ...recorder.Option) *fixture {
	t.Helper()
	f := &fixture{
		fs:     afero.NewMemMapFs(),
		clock:  &fakeClock{ms: 1000},
		sensor: &fakeSensor{},
	}
	f.vol = &wrappedVolume{Volume: storage.New(f.fs)}
	opts = append([]recorder.Option{recorder.WithClock(f.clock)}, opts...)
	f.rec = recorder.New(f.vol, f.sensor, recorder.DefaultPolicy(), opts...)
	return f
}

func (f *fixture) lines(t *testing.T, name string) []string {
	t.Helper()
	data, err := afero.ReadFile(f.fs, "/"+name)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestStartWritesHeader(t *testing.T) {
	f := newFixture(t)

	info, err := f.rec.Start("My Log.csv", 10)
	require.NoError(t, err)
	assert.True(t, info.Active)
	assert.Equal(t, "My_Log.csv", info.File)
	assert.Equal(t, uint32(10), info.IntervalMs)
	assert.Zero(t, info.Samples)
	assert.Equal(t, 1, f.vol.last.syncs, "header must be flushed")

	require.NoError(t, f.rec.Stop())
	assert.Equal(t, []string{"timedelta_ms,Xacc,Yacc,Zacc"}, f.lines(t, "My_Log.csv"))
}

func TestStartAlreadyRecording(t *testing.T) {
	f := newFixture(t)

	first, err := f.rec.Start("a", 20)
	require.NoError(t, err)
	f.rec.Tick()

	_, err = f.rec.Start("b", 50)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrAlreadyRecording))

	st := f.rec.Status()
	assert.Equal(t, first.File, st.File)
	assert.Equal(t, uint32(20), st.IntervalMs)
	assert.Equal(t, uint64(1), st.Samples)
}

func TestStartStorageUnavailable(t *testing.T) {
	vol := storage.New(afero.NewBasePathFs(afero.NewMemMapFs(), "/nocard"))
	rec := recorder.New(vol, &fakeSensor{}, recorder.DefaultPolicy())

	_, err := rec.Start("x.csv", 5)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrStorageUnavailable))
	assert.False(t, rec.Status().Active)
}

func TestStartOpenFailureLeavesIdle(t *testing.T) {
	vol := storage.New(afero.NewReadOnlyFs(afero.NewMemMapFs()))
	rec := recorder.New(vol, &fakeSensor{}, recorder.DefaultPolicy())

	_, err := rec.Start("x.csv", 5)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrFileOpen))
	assert.Equal(t, "Failed to open file", strings.SplitN(err.Error(), ":", 2)[0])

	st := rec.Status()
	assert.False(t, st.Active)
	assert.Empty(t, st.File)
	assert.Equal(t, recorder.Idle, rec.Tick())
}

func TestStartHeaderFailureLeavesIdle(t *testing.T) {
	f := newFixture(t)
	f.vol.wrap = func(ff *faultyFile) { ff.failWrite = true }

	_, err := f.rec.Start("x.csv", 5)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrFileOpen))
	assert.False(t, f.rec.Status().Active)
}

func TestIntervalIsClamped(t *testing.T) {
	tests := []struct {
		requested uint32
		want      uint32
	}{
		{0, 5},
		{3, 5},
		{5, 5},
		{250, 250},
		{5000, 5000},
		{999999, 5000},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(int(tt.requested)), func(t *testing.T) {
			f := newFixture(t)
			info, err := f.rec.Start("", tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.IntervalMs)
			assert.Equal(t, recorder.DefaultName, info.File)
		})
	}
}

func TestStartPicksUniqueName(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/My_Log.csv", []byte("old"), 0o644))

	info, err := f.rec.Start("My Log.csv", 5)
	require.NoError(t, err)
	assert.Equal(t, "My_Log_001.csv", info.File)

	data, err := afero.ReadFile(f.fs, "/My_Log.csv")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestThrottlingToClampedInterval(t *testing.T) {
	f := newFixture(t)

	info, err := f.rec.Start("t.csv", 3)
	require.NoError(t, err)
	require.Equal(t, uint32(5), info.IntervalMs)

	results := map[recorder.TickResult]int{}
	for i := 0; i < 50; i++ {
		results[f.rec.Tick()]++
		f.clock.Advance(1)
	}
	assert.Equal(t, 10, results[recorder.Sampled])
	assert.Equal(t, 40, results[recorder.NotDue])
	assert.Equal(t, 10, f.sensor.reads)

	require.NoError(t, f.rec.Stop())

	lines := f.lines(t, "t.csv")
	require.Len(t, lines, 11)
	for i, line := range lines[1:] {
		fields := strings.Split(line, ",")
		require.Len(t, fields, 4)
		dt, err := strconv.ParseUint(fields[0], 10, 64)
		require.NoError(t, err)
		assert.Equal(t, uint64(i*5), dt)
		assert.Equal(t, "0.500000", fields[1])
		assert.Equal(t, "-0.250000", fields[2])
		assert.Equal(t, "9.806650", fields[3])
	}
}

func TestTickIdle(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, recorder.Idle, f.rec.Tick())
	assert.Zero(t, f.sensor.reads)
}

func TestSensorFailureSkipsSample(t *testing.T) {
	f := newFixture(t)
	f.sensor.fail = func(n int) bool { return n%2 == 0 }

	_, err := f.rec.Start("s.csv", 10)
	require.NoError(t, err)

	var failed int
	for i := 0; i < 6; i++ {
		if f.rec.Tick() == recorder.SensorFailed {
			failed++
		}
		f.clock.Advance(10)
	}
	assert.Equal(t, 3, failed)

	st := f.rec.Status()
	assert.Equal(t, uint64(3), st.Samples)
	assert.Equal(t, uint64(3), st.Skipped)
	assert.Equal(t, uint64(3), f.rec.Stats().SensorFailures)

	require.NoError(t, f.rec.Stop())
	assert.Len(t, f.lines(t, "s.csv"), 4)
}

func TestWriteFailureSkipsSample(t *testing.T) {
	f := newFixture(t)

	_, err := f.rec.Start("w.csv", 5)
	require.NoError(t, err)
	f.vol.last.failWrite = true

	assert.Equal(t, recorder.WriteFailed, f.rec.Tick())
	assert.Zero(t, f.rec.Status().Samples)
	assert.Equal(t, uint64(1), f.rec.Stats().WriteFailures)
	assert.True(t, f.rec.Status().Active, "a failed row must not end the session")
}

func TestFlushCadence(t *testing.T) {
	f := newFixture(t)

	_, err := f.rec.Start("f.csv", 100)
	require.NoError(t, err)
	file := f.vol.last

	for i := 0; i < 25; i++ {
		f.rec.Tick()
		f.clock.Advance(100)
	}
	// header, then one and two seconds in
	assert.Equal(t, 3, file.syncs)
}

func TestStopTwiceIsNoop(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.Start("x.csv", 5)
	require.NoError(t, err)

	assert.NoError(t, f.rec.Stop())
	assert.NoError(t, f.rec.Stop())
	assert.False(t, f.rec.Status().Active)
}

func TestStopReportsCloseFailure(t *testing.T) {
	f := newFixture(t)
	f.vol.wrap = func(ff *faultyFile) { ff.failClose = true }

	_, err := f.rec.Start("x.csv", 5)
	require.NoError(t, err)

	err = f.rec.Stop()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrOperationFailed))

	st := f.rec.Status()
	assert.False(t, st.Active)
	assert.Empty(t, st.File)
	assert.Equal(t, uint64(1), f.rec.Stats().CloseFailures)
}

func TestOnStopReceivesSummary(t *testing.T) {
	wall := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var got []recorder.Summary

	f := newFixture(t,
		recorder.WithWallClock(func() time.Time { return wall }),
		recorder.WithOnStop(func(s recorder.Summary) { got = append(got, s) }),
	)

	_, err := f.rec.Start("run.csv", 5)
	require.NoError(t, err)
	f.rec.Tick()
	wall = wall.Add(time.Minute)
	require.NoError(t, f.rec.Stop())
	require.NoError(t, f.rec.Stop())

	require.Len(t, got, 1)
	assert.Equal(t, "run.csv", got[0].File)
	assert.Equal(t, uint64(1), got[0].Samples)
	assert.Equal(t, time.Minute, got[0].StoppedAt.Sub(got[0].StartedAt))
}

func TestStatusReportsDefaultIntervalWhenIdle(t *testing.T) {
	f := newFixture(t)

	st := f.rec.Status()
	assert.False(t, st.Active)
	assert.Equal(t, uint32(5), st.IntervalMs)
	assert.Equal(t, uint64(1000), st.UptimeMs)
}

func TestRemoveRefusedWhileRecording(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, "/other.csv", []byte("x"), 0o644))

	_, err := f.rec.Start("active.csv", 5)
	require.NoError(t, err)

	for _, name := range []string{"active.csv", "other.csv", "missing.csv"} {
		err := f.rec.Remove(name)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrRecordingInProgress), name)
	}

	require.NoError(t, f.rec.Stop())
	require.NoError(t, f.rec.Remove("other.csv"))

	err = f.rec.Remove("missing.csv")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestRunStopsSessionOnCancel(t *testing.T) {
	vol := storage.New(afero.NewMemMapFs())
	rec := recorder.New(vol, &fakeSensor{}, recorder.DefaultPolicy())

	_, err := rec.Start("run.csv", 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.Status().Samples > 0 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, rec.Status().Active)
}

func TestConcurrentControlAndTick(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			f.rec.Tick()
			f.clock.Advance(1)
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := f.rec.Start("c.csv", 5)
		require.NoError(t, err)
		_ = f.rec.Status()
		require.NoError(t, f.rec.Stop())
	}
	cancel()
	wg.Wait()
}
