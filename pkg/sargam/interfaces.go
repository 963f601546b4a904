package sargam

import (
	"context"

	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
)

type Service interface {
	Transcribe(ctx context.Context, audioPath string, tonic float64) (*models.Transcription, error)
	TranscribeYouTube(ctx context.Context, youtubeURL string, tonic float64) (*models.Transcription, error)
	TranscribeFrames(frames []models.PitchFrame, tonic float64) (*models.Transcription, error)
	DetectRaaga(events []models.NoteEvent) (*models.RaagaMatch, error)
	ScoreRaagas(events []models.NoteEvent) ([]raaga.Score, error)
	Raagas() []models.RaagaDefinition
	Raaga(name string) (models.RaagaDefinition, bool)
	Status(ctx context.Context) Status
	Close() error
}

// CatalogSource supplies raaga definitions once, at service construction.
type CatalogSource interface {
	Definitions() ([]models.RaagaDefinition, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
