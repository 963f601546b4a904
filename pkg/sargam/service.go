package sargam

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/sargam/pkg/logger"
	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/audio"
	"github.com/himanishpuri/sargam/pkg/sargam/midifile"
	"github.com/himanishpuri/sargam/pkg/sargam/pitch"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
	"github.com/himanishpuri/sargam/pkg/sargam/segment"
	"github.com/himanishpuri/sargam/pkg/sargam/swaram"
	"github.com/himanishpuri/sargam/pkg/utils"
)

// sargamService is the default implementation of the Service interface.
type sargamService struct {
	log    Logger
	config *Config

	source     CatalogSource
	sourceName string
	matcher    *raaga.Matcher
	segmenter  *segment.Segmenter
	tracker    *pitch.Tracker
	loader     *audio.Loader
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().With("sargam")
	}
	if !(cfg.DefaultTonic > 0) || math.IsInf(cfg.DefaultTonic, 0) {
		return nil, fmt.Errorf("%w: default tonic must be positive, got %v", models.ErrInvalidInput, cfg.DefaultTonic)
	}
	if cfg.SampleRate <= 0 || cfg.HopLength <= 0 {
		return nil, fmt.Errorf("%w: sample rate and hop length must be positive", models.ErrInvalidInput)
	}

	trackerCfg := pitch.DefaultConfig()
	trackerCfg.HopLength = cfg.HopLength
	trackerCfg.FrameLength = cfg.FrameLength
	trackerCfg.Workers = cfg.Workers
	tracker, err := pitch.New(trackerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pitch tracker: %w", err)
	}

	// Create or use provided catalog
	var src CatalogSource
	var sourceName string
	switch {
	case cfg.Catalog != nil:
		src, sourceName = cfg.Catalog, "custom"
	case cfg.CatalogDB != "":
		src, err = NewSQLiteCatalog(cfg.CatalogDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		sourceName = "sqlite"
	default:
		sourceName = "builtin"
	}

	catalog := raaga.DefaultCatalog()
	if src != nil {
		defs, err := src.Definitions()
		if err == nil {
			catalog, err = raaga.NewCatalog(defs)
		}
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	cfg.Logger.Debugf("Loaded %d raagas from %s catalog", catalog.Len(), sourceName)

	return &sargamService{
		log:        cfg.Logger,
		config:     cfg,
		source:     src,
		sourceName: sourceName,
		matcher:    raaga.NewMatcher(catalog),
		segmenter: segment.New(
			segment.WithMapper(swaram.NewMapper(cfg.ToleranceCents)),
			segment.WithFrameDuration(cfg.hopSeconds()),
		),
		tracker: tracker,
		loader: audio.NewLoader(audio.LoaderConfig{
			SampleRate: cfg.SampleRate,
			TempDir:    cfg.TempDir,
		}),
	}, nil
}

// Transcribe reads a recording or a MIDI file and transcribes it.
func (s *sargamService) Transcribe(ctx context.Context, audioPath string, tonic float64) (*models.Transcription, error) {
	tonic, err := s.resolveTonic(tonic)
	if err != nil {
		return nil, err
	}

	id := utils.NewRequestID()
	if info, err := os.Stat(audioPath); err == nil {
		s.log.Infof("[%s] Transcribing %s (%s) with Sa=%.2f Hz", id, filepath.Base(audioPath), humanize.Bytes(uint64(info.Size())), tonic)
	} else {
		return nil, fmt.Errorf("%w: cannot read %s: %v", models.ErrInvalidInput, audioPath, err)
	}

	var (
		frames   []models.PitchFrame
		lyrics   []models.LyricLine
		duration float64
	)

	if utils.HasExtension(audioPath, ".mid", ".midi") {
		score, err := midifile.Parse(audioPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		duration = score.Duration()
		if err := s.loader.CheckDuration(duration); err != nil {
			return nil, err
		}
		frames, err = score.PitchFrames(s.config.hopSeconds())
		if err != nil {
			return nil, err
		}
		lyrics = score.Lyrics
		s.log.Infof("[%s] MIDI melody: %d notes, %d lyric events", id, len(score.Notes), len(lyrics))
	} else {
		// 1. Probe so an unreadable upload fails before conversion
		if meta, err := audio.ReadMetadataFFmpeg(ctx, audioPath); err != nil {
			s.log.Warnf("[%s] ffprobe failed: %v", id, err)
		} else if meta.DurationSec > 0 {
			if err := s.loader.CheckDuration(meta.DurationSec); err != nil {
				return nil, err
			}
		}

		// 2. Convert, decode and normalise
		buf, err := s.loader.Load(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		duration = buf.DurationSec

		// 3. Track pitch
		frames, err = s.tracker.Track(ctx, buf.Samples, buf.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("pitch tracking failed: %w", err)
		}
		s.log.Infof("[%s] Tracked %d frames over %.2fs", id, len(frames), duration)
	}

	t, err := s.transcribe(frames, tonic)
	if err != nil {
		return nil, err
	}
	t.RequestID = id
	t.Source = filepath.Base(audioPath)
	t.DurationSec = duration
	t.Lyrics = lyrics
	s.logResult(t)
	return t, nil
}

// TranscribeYouTube downloads the audio of a video and transcribes it.
func (s *sargamService) TranscribeYouTube(ctx context.Context, youtubeURL string, tonic float64) (*models.Transcription, error) {
	if !utils.IsYouTubeURL(youtubeURL) {
		return nil, fmt.Errorf("%w: not a YouTube URL: %s", models.ErrInvalidInput, youtubeURL)
	}

	dir := filepath.Join(s.config.TempDir, "youtube")
	if err := utils.MakeDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	s.log.Infof("Downloading audio from %s", youtubeURL)
	path, err := audio.DownloadYouTubeAudio(ctx, youtubeURL, dir)
	if err != nil {
		return nil, fmt.Errorf("youtube download failed: %w", err)
	}
	defer func() {
		if err := utils.DeleteFile(path); err != nil {
			s.log.Warnf("Failed to remove download %s: %v", path, err)
		}
	}()

	t, err := s.Transcribe(ctx, path, tonic)
	if err != nil {
		return nil, err
	}
	t.Source = youtubeURL
	return t, nil
}

// TranscribeFrames segments externally tracked pitch frames and matches
// the result against the catalog.
func (s *sargamService) TranscribeFrames(frames []models.PitchFrame, tonic float64) (*models.Transcription, error) {
	tonic, err := s.resolveTonic(tonic)
	if err != nil {
		return nil, err
	}

	t, err := s.transcribe(frames, tonic)
	if err != nil {
		return nil, err
	}
	t.RequestID = utils.NewRequestID()
	t.Source = "frames"
	if n := len(frames); n > 0 {
		t.DurationSec = frames[n-1].Time + s.config.hopSeconds()
	}
	if k := len(t.Swarams); k > 0 && t.Swarams[k-1].End > t.DurationSec {
		t.DurationSec = t.Swarams[k-1].End
	}
	s.logResult(t)
	return t, nil
}

func (s *sargamService) DetectRaaga(events []models.NoteEvent) (*models.RaagaMatch, error) {
	return s.matcher.Match(events)
}

// ScoreRaagas returns the score breakdown of every catalog raaga in
// catalog order.
func (s *sargamService) ScoreRaagas(events []models.NoteEvent) ([]raaga.Score, error) {
	return s.matcher.Scores(events)
}

func (s *sargamService) Raagas() []models.RaagaDefinition {
	return s.matcher.Catalog().Definitions()
}

func (s *sargamService) Raaga(name string) (models.RaagaDefinition, bool) {
	return s.matcher.Catalog().Lookup(name)
}

func (s *sargamService) Status(ctx context.Context) Status {
	return Status{
		Raagas:        s.matcher.Catalog().Len(),
		CatalogSource: s.sourceName,
		FFmpeg:        onPath("ffmpeg") && onPath("ffprobe"),
		YTDLP:         onPath("yt-dlp"),
		SampleRate:    s.config.SampleRate,
		DefaultTonic:  s.config.DefaultTonic,
	}
}

func (s *sargamService) Close() error {
	if s.source != nil {
		return s.source.Close()
	}
	return nil
}

func (s *sargamService) transcribe(frames []models.PitchFrame, tonic float64) (*models.Transcription, error) {
	events, err := s.segmenter.Segment(frames, tonic)
	if err != nil {
		return nil, err
	}

	t := &models.Transcription{
		Tonic:   tonic,
		Swarams: events,
		Lyrics:  []models.LyricLine{},
	}
	if len(events) == 0 {
		return t, nil
	}

	match, err := s.matcher.Match(events)
	if err != nil {
		return nil, err
	}
	t.Raaga = match
	return t, nil
}

// resolveTonic substitutes the configured default for a zero tonic.
func (s *sargamService) resolveTonic(tonic float64) (float64, error) {
	if tonic == 0 {
		return s.config.DefaultTonic, nil
	}
	if !(tonic > 0) || math.IsInf(tonic, 0) {
		return 0, fmt.Errorf("%w: tonic must be a positive frequency, got %v", models.ErrInvalidInput, tonic)
	}
	return tonic, nil
}

func (s *sargamService) logResult(t *models.Transcription) {
	if t.Raaga != nil {
		s.log.Infof("[%s] %d swarams, raaga %s (%.0f%%)", t.RequestID, len(t.Swarams), t.Raaga.Name, t.Raaga.Confidence*100)
		return
	}
	s.log.Infof("[%s] %d swarams, no raaga match", t.RequestID, len(t.Swarams))
}

func onPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
