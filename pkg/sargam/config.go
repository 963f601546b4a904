package sargam

import (
	"os"
	"runtime"

	"github.com/himanishpuri/sargam/pkg/sargam/audio"
	"github.com/himanishpuri/sargam/pkg/sargam/pitch"
	"github.com/himanishpuri/sargam/pkg/sargam/swaram"
)

// DefaultTonic is the Sa used when a request does not name one.
const DefaultTonic = 131.0

type Config struct {
	TempDir        string
	SampleRate     int
	DefaultTonic   float64
	CatalogDB      string
	Catalog        CatalogSource
	Logger         Logger
	ToleranceCents float64
	HopLength      int
	FrameLength    int
	Workers        int
}

type Option func(*Config)

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithDefaultTonic(hz float64) Option {
	return func(c *Config) {
		c.DefaultTonic = hz
	}
}

// WithCatalogDB loads the raaga catalog from a SQLite file, seeding it
// with the built-in raagas when it is empty.
func WithCatalogDB(path string) Option {
	return func(c *Config) {
		c.CatalogDB = path
	}
}

// WithCatalog loads the raaga catalog from src. It takes precedence over
// WithCatalogDB.
func WithCatalog(src CatalogSource) Option {
	return func(c *Config) {
		c.Catalog = src
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithTolerance(cents float64) Option {
	return func(c *Config) {
		c.ToleranceCents = cents
	}
}

func WithHopLength(samples int) Option {
	return func(c *Config) {
		c.HopLength = samples
	}
}

func WithFrameLength(samples int) Option {
	return func(c *Config) {
		c.FrameLength = samples
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

func defaultConfig() *Config {
	return &Config{
		TempDir:        os.TempDir(),
		SampleRate:     audio.DefaultSampleRate,
		DefaultTonic:   DefaultTonic,
		ToleranceCents: swaram.DefaultToleranceCents,
		HopLength:      pitch.DefaultHopLength,
		FrameLength:    pitch.DefaultFrameLength,
		Workers:        runtime.GOMAXPROCS(0),
		Logger:         nil,
	}
}

// hopSeconds is the frame spacing produced by the tracker.
func (c *Config) hopSeconds() float64 {
	return float64(c.HopLength) / float64(c.SampleRate)
}
