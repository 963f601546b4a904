package pitch

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/sargam/pkg/models"
)

const testRate = 44100

func sine(freq, seconds, amp float64) []float64 {
	n := int(seconds * testRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return out
}

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New(DefaultConfig()) error: %v", err)
	}
	return tr
}

func TestTrackSine(t *testing.T) {
	for _, freq := range []float64{110, 220, 392, 880} {
		samples := sine(freq, 1, 0.5)

		frames, err := newTracker(t).Track(context.Background(), samples, testRate)
		if err != nil {
			t.Fatalf("Track error: %v", err)
		}
		if want := 1 + len(samples)/DefaultHopLength; len(frames) != want {
			t.Fatalf("%v Hz: got %d frames, expected %d", freq, len(frames), want)
		}

		// Skip frames whose window runs off either end of the buffer.
		for i := 4; i < len(frames)-4; i++ {
			f := frames[i]
			if f.Frequency == 0 {
				t.Errorf("%v Hz: frame %d unvoiced (voicing %.3f)", freq, i, f.Voicing)
				continue
			}
			if cents := 1200 * math.Abs(math.Log2(f.Frequency/freq)); cents > 5 {
				t.Errorf("%v Hz: frame %d estimated %.2f Hz (%.1f cents off)", freq, i, f.Frequency, cents)
			}
			if f.Voicing < 0.9 {
				t.Errorf("%v Hz: frame %d voicing %.3f, expected close to 1", freq, i, f.Voicing)
			}
		}
	}
}

func TestTrackFrameTimes(t *testing.T) {
	frames, err := newTracker(t).Track(context.Background(), sine(220, 0.2, 0.5), testRate)
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}
	for i, f := range frames {
		want := float64(i*DefaultHopLength) / testRate
		if f.Time != want {
			t.Fatalf("frame %d at %.6f s, expected %.6f s", i, f.Time, want)
		}
	}
}

func TestTrackSilence(t *testing.T) {
	frames, err := newTracker(t).Track(context.Background(), make([]float64, testRate/2), testRate)
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}
	for i, f := range frames {
		if f.Frequency != 0 || f.Voicing != 0 {
			t.Fatalf("silent frame %d = %+v, expected unvoiced", i, f)
		}
	}
}

func TestTrackEmpty(t *testing.T) {
	frames, err := newTracker(t).Track(context.Background(), nil, testRate)
	if err != nil {
		t.Fatalf("Track error: %v", err)
	}
	if frames == nil || len(frames) != 0 {
		t.Errorf("expected an empty slice, got %#v", frames)
	}
}

func TestTrackSingleWorkerMatchesParallel(t *testing.T) {
	samples := sine(330, 0.5, 0.3)

	cfg := DefaultConfig()
	cfg.Workers = 1
	serial, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workers = 8
	parallel, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	a, err := serial.Track(context.Background(), samples, testRate)
	if err != nil {
		t.Fatal(err)
	}
	b, err := parallel.Track(context.Background(), samples, testRate)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("frame counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestTrackCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTracker(t).Track(ctx, sine(220, 1, 0.5), testRate)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Track error = %v, expected context.Canceled", err)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	mutate := func(fn func(*Config)) Config {
		c := DefaultConfig()
		fn(&c)
		return c
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero frame", mutate(func(c *Config) { c.FrameLength = 0 })},
		{"zero hop", mutate(func(c *Config) { c.HopLength = 0 })},
		{"inverted range", mutate(func(c *Config) { c.MinFrequency, c.MaxFrequency = 500, 100 })},
		{"threshold of one", mutate(func(c *Config) { c.Threshold = 1 })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("New error = %v, expected ErrInvalidInput", err)
			}
		})
	}
}

func TestInvalidTrackInput(t *testing.T) {
	tr := newTracker(t)

	if _, err := tr.Track(context.Background(), sine(220, 0.1, 0.5), 0); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("zero sample rate: error = %v, expected ErrInvalidInput", err)
	}

	// 2048-sample frames cannot hold two periods of 65 Hz at 192 kHz.
	if _, err := tr.Track(context.Background(), sine(220, 0.1, 0.5), 192000); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("high sample rate: error = %v, expected ErrInvalidInput", err)
	}

	bad := sine(220, 0.1, 0.5)
	bad[10] = math.NaN()
	if _, err := tr.Track(context.Background(), bad, testRate); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("NaN sample: error = %v, expected ErrInvalidInput", err)
	}
}
