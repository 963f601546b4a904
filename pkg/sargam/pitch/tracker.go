// Package pitch estimates a fundamental-frequency contour from mono PCM
// samples with the YIN method. The difference function's cross term is
// computed by FFT correlation, so each frame costs O(n log n).
package pitch

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/mjibson/go-dsp/fft"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultFrameLength = 2048
	DefaultHopLength   = 512

	// C2 and C7.
	DefaultMinFrequency = 65.41
	DefaultMaxFrequency = 2093.0

	// DefaultThreshold is the absolute threshold on the cumulative mean
	// normalised difference used to pick the first dip.
	DefaultThreshold = 0.1

	// DefaultVoicingThreshold is the largest normalised difference a frame
	// may have and still be reported as voiced.
	DefaultVoicingThreshold = 0.35

	// DefaultSilenceRMS marks frames quieter than this as unvoiced.
	DefaultSilenceRMS = 1e-4

	framesPerChunk = 64
)

// Config controls the tracker. Zero fields are not filled in; start from
// DefaultConfig.
type Config struct {
	FrameLength      int
	HopLength        int
	MinFrequency     float64
	MaxFrequency     float64
	Threshold        float64
	VoicingThreshold float64
	SilenceRMS       float64
	Workers          int
}

func DefaultConfig() Config {
	return Config{
		FrameLength:      DefaultFrameLength,
		HopLength:        DefaultHopLength,
		MinFrequency:     DefaultMinFrequency,
		MaxFrequency:     DefaultMaxFrequency,
		Threshold:        DefaultThreshold,
		VoicingThreshold: DefaultVoicingThreshold,
		SilenceRMS:       DefaultSilenceRMS,
		Workers:          runtime.GOMAXPROCS(0),
	}
}

// Tracker produces one PitchFrame per hop. It is safe for concurrent use.
type Tracker struct {
	cfg Config
}

// New validates cfg and returns a tracker.
func New(cfg Config) (*Tracker, error) {
	switch {
	case cfg.FrameLength < 4:
		return nil, fmt.Errorf("%w: frame length %d too small", models.ErrInvalidInput, cfg.FrameLength)
	case cfg.HopLength <= 0:
		return nil, fmt.Errorf("%w: hop length must be positive, got %d", models.ErrInvalidInput, cfg.HopLength)
	case !(cfg.MinFrequency > 0) || !(cfg.MaxFrequency > cfg.MinFrequency):
		return nil, fmt.Errorf("%w: frequency range [%v, %v] is empty", models.ErrInvalidInput, cfg.MinFrequency, cfg.MaxFrequency)
	case !(cfg.Threshold > 0) || cfg.Threshold >= 1:
		return nil, fmt.Errorf("%w: threshold %v outside (0,1)", models.ErrInvalidInput, cfg.Threshold)
	case cfg.VoicingThreshold < 0:
		return nil, fmt.Errorf("%w: negative voicing threshold", models.ErrInvalidInput)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Tracker{cfg: cfg}, nil
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// lagRange returns the period search bounds in samples and the integration
// window length for sampleRate.
func (t *Tracker) lagRange(sampleRate int) (minLag, maxLag, window int, err error) {
	sr := float64(sampleRate)
	minLag = int(math.Floor(sr / t.cfg.MaxFrequency))
	if minLag < 2 {
		minLag = 2
	}
	maxLag = int(math.Ceil(sr / t.cfg.MinFrequency))
	window = t.cfg.FrameLength / 2

	if maxLag+1 > window {
		return 0, 0, 0, fmt.Errorf("%w: frame length %d cannot resolve %.2f Hz at %d Hz", models.ErrInvalidInput, t.cfg.FrameLength, t.cfg.MinFrequency, sampleRate)
	}
	if minLag >= maxLag {
		return 0, 0, 0, fmt.Errorf("%w: sample rate %d too low for %.2f Hz", models.ErrInvalidInput, sampleRate, t.cfg.MaxFrequency)
	}
	return minLag, maxLag, window, nil
}

// Track returns one frame per hop, 1 + len(samples)/hop frames in all.
// Frame i is centred on sample i*hop and stamped at i*hop/sampleRate
// seconds; samples outside the buffer count as zero. Unvoiced frames have
// frequency 0.
func (t *Tracker) Track(ctx context.Context, samples []float64, sampleRate int) ([]models.PitchFrame, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", models.ErrInvalidInput, sampleRate)
	}
	minLag, maxLag, window, err := t.lagRange(sampleRate)
	if err != nil {
		return nil, err
	}
	for i, s := range samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: sample %d is not finite", models.ErrInvalidInput, i)
		}
	}
	if len(samples) == 0 {
		return []models.PitchFrame{}, nil
	}

	n := 1 + len(samples)/t.cfg.HopLength
	out := make([]models.PitchFrame, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)

	for lo := 0; lo < n; lo += framesPerChunk {
		lo, hi := lo, min(lo+framesPerChunk, n)
		g.Go(func() error {
			a := newAnalyser(t.cfg, sampleRate, minLag, maxLag, window)
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				a.load(samples, i*t.cfg.HopLength-t.cfg.FrameLength/2)
				freq, voicing := a.estimate()
				out[i] = models.PitchFrame{
					Time:      float64(i*t.cfg.HopLength) / float64(sampleRate),
					Frequency: freq,
					Voicing:   voicing,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// analyser holds the scratch buffers for one goroutine.
type analyser struct {
	cfg                    Config
	sampleRate             int
	minLag, maxLag, window int

	frame  []float64
	padded []float64
	head   []float64
	sq     []float64
	cum    []float64
	diff   []float64
	cmnd   []float64
}

func newAnalyser(cfg Config, sampleRate, minLag, maxLag, window int) *analyser {
	size := 1
	for size < cfg.FrameLength+window {
		size <<= 1
	}
	return &analyser{
		cfg:        cfg,
		sampleRate: sampleRate,
		minLag:     minLag,
		maxLag:     maxLag,
		window:     window,
		frame:      make([]float64, cfg.FrameLength),
		padded:     make([]float64, size),
		head:       make([]float64, size),
		sq:         make([]float64, cfg.FrameLength),
		cum:        make([]float64, cfg.FrameLength),
		diff:       make([]float64, maxLag+2),
		cmnd:       make([]float64, maxLag+2),
	}
}

// load copies the frame starting at sample start, zero-filling outside
// the buffer.
func (a *analyser) load(samples []float64, start int) {
	for j := range a.frame {
		k := start + j
		if k >= 0 && k < len(samples) {
			a.frame[j] = samples[k]
		} else {
			a.frame[j] = 0
		}
	}
}

// estimate returns the frequency and voicing of the loaded frame.
func (a *analyser) estimate() (float64, float64) {
	rms := floats.Norm(a.frame, 2) / math.Sqrt(float64(len(a.frame)))
	if rms < a.cfg.SilenceRMS {
		return 0, 0
	}

	a.difference()
	a.normalise()

	tau := a.pickLag()
	d := a.cmnd[tau]
	voicing := math.Max(0, math.Min(1, 1-d))
	if d > a.cfg.VoicingThreshold {
		return 0, voicing
	}

	period := a.interpolate(tau)
	freq := float64(a.sampleRate) / period
	if freq < a.cfg.MinFrequency || freq > a.cfg.MaxFrequency {
		return 0, voicing
	}
	return freq, voicing
}

// difference fills diff[tau] = sum_{j<W} (x_j - x_{j+tau})^2 for
// tau in [0, maxLag+1], expanding the square into two energies and a cross
// term taken from FFT correlation.
func (a *analyser) difference() {
	for j, v := range a.frame {
		a.sq[j] = v * v
	}
	floats.CumSum(a.cum, a.sq)

	for i := range a.padded {
		a.padded[i], a.head[i] = 0, 0
	}
	copy(a.padded, a.frame)
	copy(a.head, a.frame[:a.window])

	whole := fft.FFTReal(a.padded)
	lead := fft.FFTReal(a.head)
	for i := range whole {
		whole[i] *= complex(real(lead[i]), -imag(lead[i]))
	}
	corr := fft.IFFT(whole)

	energy := func(from, to int) float64 { // sum of squares over [from, to)
		if from == 0 {
			return a.cum[to-1]
		}
		return a.cum[to-1] - a.cum[from-1]
	}

	e0 := energy(0, a.window)
	for tau := range a.diff {
		d := e0 + energy(tau, tau+a.window) - 2*real(corr[tau])
		a.diff[tau] = math.Max(0, d)
	}
}

// normalise turns diff into the cumulative mean normalised difference.
func (a *analyser) normalise() {
	a.cmnd[0] = 1
	running := 0.0
	for tau := 1; tau < len(a.diff); tau++ {
		running += a.diff[tau]
		if running == 0 {
			a.cmnd[tau] = 1
			continue
		}
		a.cmnd[tau] = a.diff[tau] * float64(tau) / running
	}
}

// pickLag returns the first lag whose normalised difference dips under the
// threshold, walked down to its local minimum, or the global minimum of the
// search range when nothing dips.
func (a *analyser) pickLag() int {
	for tau := a.minLag; tau <= a.maxLag; tau++ {
		if a.cmnd[tau] < a.cfg.Threshold {
			for tau+1 <= a.maxLag && a.cmnd[tau+1] < a.cmnd[tau] {
				tau++
			}
			return tau
		}
	}
	return a.minLag + floats.MinIdx(a.cmnd[a.minLag:a.maxLag+1])
}

// interpolate refines tau with a parabola through the raw difference at
// tau and its neighbours.
func (a *analyser) interpolate(tau int) float64 {
	if tau <= 0 || tau+1 >= len(a.diff) {
		return float64(tau)
	}
	l, c, r := a.diff[tau-1], a.diff[tau], a.diff[tau+1]
	den := l - 2*c + r
	if den <= 0 {
		return float64(tau)
	}
	shift := 0.5 * (l - r) / den
	if math.Abs(shift) > 1 {
		return float64(tau)
	}
	return float64(tau) + shift
}
