package audio

import (
	"context"
	"fmt"
	"os"

	"github.com/himanishpuri/sargam/pkg/models"
)

const (
	MinDurationSec = 0.5
	MaxDurationSec = 300.0
)

// ErrDurationOutOfRange is returned for recordings shorter than
// MinDurationSec or longer than MaxDurationSec. It wraps
// models.ErrInvalidInput.
var ErrDurationOutOfRange = fmt.Errorf("%w: audio duration out of range", models.ErrInvalidInput)

// Buffer is a decoded mono recording.
type Buffer struct {
	Samples     []float64
	SampleRate  int
	DurationSec float64
}

type LoaderConfig struct {
	SampleRate  int
	TempDir     string
	MinDuration float64
	MaxDuration float64
}

// Loader turns an uploaded file into a normalised mono buffer at a fixed
// sample rate.
type Loader struct {
	cfg LoaderConfig
}

func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = MinDurationSec
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = MaxDurationSec
	}
	return &Loader{cfg: cfg}
}

// SampleRate returns the rate buffers are delivered at.
func (l *Loader) SampleRate() int {
	return l.cfg.SampleRate
}

// Load converts path with ffmpeg, decodes it and enforces the duration
// bounds. The intermediate WAV is removed before returning.
func (l *Loader) Load(ctx context.Context, path string) (*Buffer, error) {
	wavPath, err := ConvertToMonoWAV(ctx, path, l.cfg.TempDir, ConvertWAVConfig{SampleRate: l.cfg.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("convert audio: %w", err)
	}
	defer os.Remove(wavPath)

	return l.LoadWAV(wavPath)
}

// LoadWAV decodes a WAV file that is already at the target format. The
// samples are peak normalised.
func (l *Loader) LoadWAV(path string) (*Buffer, error) {
	samples, rate, err := DecodeWAV(path)
	if err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}

	buf := &Buffer{
		Samples:     samples,
		SampleRate:  rate,
		DurationSec: float64(len(samples)) / float64(rate),
	}
	if err := l.CheckDuration(buf.DurationSec); err != nil {
		return nil, err
	}

	Normalize(buf.Samples)
	return buf, nil
}

// CheckDuration reports ErrDurationOutOfRange when seconds is outside the
// configured bounds.
func (l *Loader) CheckDuration(seconds float64) error {
	if seconds < l.cfg.MinDuration || seconds > l.cfg.MaxDuration {
		return fmt.Errorf("%w: %.2fs is outside [%.1fs, %.1fs]", ErrDurationOutOfRange, seconds, l.cfg.MinDuration, l.cfg.MaxDuration)
	}
	return nil
}
