// Package analysis summarizes recorded CSV logs: sample rate from the time
// column, per-axis statistics, and the dominant vibration frequency.
package analysis

import (
	"bufio"
	"io"
	"math"
	"math/cmplx"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/acclogger/internal/errors"
)

const (
	ErrMalformed   = errors.ErrorCode("analysis_malformed_log")
	ErrTooFewRows  = errors.ErrorCode("analysis_too_few_rows")
	minSpectrumLen = 8
	// The lowest bins carry DC leakage after windowing.
	skipBins = 2
)

var columns = []string{"timedelta_ms", "Xacc", "Yacc", "Zacc"}

// Log is a parsed recording. Rows with non-finite values are dropped.
type Log struct {
	T       []float64
	X, Y, Z []float64
}

func (l *Log) Len() int { return len(l.T) }

// Magnitude returns |a| per row.
func (l *Log) Magnitude() []float64 {
	m := make([]float64, l.Len())
	for i := range m {
		m[i] = math.Sqrt(l.X[i]*l.X[i] + l.Y[i]*l.Y[i] + l.Z[i]*l.Z[i])
	}
	return m
}

// Parse reads a log with the header row written by the recorder.
func Parse(r io.Reader) (*Log, error) {
	errFactory := errors.New()
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		return nil, errFactory.WithMessage(ErrMalformed, "empty log")
	}
	if got := strings.Split(strings.TrimSpace(sc.Text()), ","); !equal(got, columns) {
		return nil, errFactory.WithData(ErrMalformed, sc.Text())
	}

	l := &Log{}
	line := 1
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) != len(columns) {
			return nil, errFactory.WithData(ErrMalformed, "line "+strconv.Itoa(line))
		}

		var v [4]float64
		ok := true
		for i, f := range fields {
			n, err := strconv.ParseFloat(f, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				ok = false
				break
			}
			v[i] = n
		}
		if !ok {
			continue
		}
		l.T = append(l.T, v[0])
		l.X = append(l.X, v[1])
		l.Y = append(l.Y, v[2])
		l.Z = append(l.Z, v[3])
	}
	if err := sc.Err(); err != nil {
		return nil, errFactory.Wrap(ErrMalformed, err)
	}

	return l, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// EstimateRate returns the sample rate in Hz and the median positive step in
// milliseconds.
func EstimateRate(t []float64) (hz, medianDtMs float64, err error) {
	steps := make([]float64, 0, len(t))
	for i := 1; i < len(t); i++ {
		if d := t[i] - t[i-1]; d > 0 {
			steps = append(steps, d)
		}
	}
	if len(steps) < 2 {
		return 0, 0, errors.New().WithMessage(ErrTooFewRows, "not enough time steps to estimate the sample rate")
	}

	medianDtMs = median(steps)

	return 1000 / medianDtMs, medianDtMs, nil
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// Stats summarizes one signal.
type Stats struct {
	Mean, Min, Max, RMS float64
}

func Describe(v []float64) Stats {
	if len(v) == 0 {
		return Stats{}
	}
	st := Stats{Min: v[0], Max: v[0]}
	var sum, sq float64
	for _, x := range v {
		sum += x
		sq += x * x
		st.Min = math.Min(st.Min, x)
		st.Max = math.Max(st.Max, x)
	}
	n := float64(len(v))
	st.Mean = sum / n
	st.RMS = math.Sqrt(sq / n)

	return st
}

// Peak finds the strongest frequency in a Hann-windowed one-sided amplitude
// spectrum, ignoring the DC-adjacent bins. maxHz of 0 means Nyquist.
func Peak(signal []float64, fsHz, maxHz float64) (freqHz, amplitude float64, err error) {
	n := len(signal)
	if n < minSpectrumLen {
		return 0, 0, errors.New().WithMessage(ErrTooFewRows, "not enough samples for a spectrum")
	}

	size := 1
	for size < n {
		size <<= 1
	}
	buf := make([]complex128, size)
	var wsum float64
	for i, x := range signal {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		wsum += w
		buf[i] = complex(x*w, 0)
	}
	fft(buf)

	scale := wsum / float64(n)
	binHz := fsHz / float64(size)
	for k := skipBins; k <= size/2; k++ {
		f := float64(k) * binHz
		if maxHz > 0 && f > maxHz {
			break
		}
		mag := cmplx.Abs(buf[k]) / float64(n) * (2 / scale)
		if mag > amplitude {
			freqHz, amplitude = f, mag
		}
	}

	return freqHz, amplitude, nil
}

// fft is an in-place iterative radix-2 transform; len(a) must be a power of 2.
func fft(a []complex128) {
	n := len(a)
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}
	for length := 2; length <= n; length <<= 1 {
		w := cmplx.Exp(complex(0, -2*math.Pi/float64(length)))
		for i := 0; i < n; i += length {
			wn := complex(1, 0)
			for k := 0; k < length/2; k++ {
				u := a[i+k]
				v := a[i+k+length/2] * wn
				a[i+k] = u + v
				a[i+k+length/2] = u - v
				wn *= w
			}
		}
	}
}

// Axis is the report line for one signal.
type Axis struct {
	Name   string
	Stats  Stats
	PeakHz float64
	PeakAm float64
}

// Report is the full summary of a log.
type Report struct {
	Samples    int
	RateHz     float64
	MedianDtMs float64
	Axes       []Axis
}

// Analyze builds a report. maxHz bounds the peak search; 0 means Nyquist.
func Analyze(l *Log, maxHz float64) (*Report, error) {
	hz, dt, err := EstimateRate(l.T)
	if err != nil {
		return nil, err
	}

	rep := &Report{Samples: l.Len(), RateHz: hz, MedianDtMs: dt}
	for _, sig := range []struct {
		name string
		v    []float64
	}{
		{"Xacc", l.X}, {"Yacc", l.Y}, {"Zacc", l.Z}, {"AccMag", l.Magnitude()},
	} {
		ax := Axis{Name: sig.name, Stats: Describe(sig.v)}
		if f, a, err := Peak(sig.v, hz, maxHz); err == nil {
			ax.PeakHz, ax.PeakAm = f, a
		}
		rep.Axes = append(rep.Axes, ax)
	}

	return rep, nil
}
