package main

import (
	"fmt"

	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam/raaga"
)

const (
	// MaxUploadBytes bounds a multipart upload.
	MaxUploadBytes = 100 << 20

	// MaxJSONBytes bounds a JSON request body.
	MaxJSONBytes = 8 << 20

	// MaxFrames is the largest frame batch accepted by /api/transcribe/frames
	// (about ten minutes at the default hop).
	MaxFrames = 60000
)

// TranscriptionResponse is the body of every transcription endpoint.
type TranscriptionResponse struct {
	RequestID   string             `json:"request_id"`
	Source      string             `json:"source"`
	Tonic       float64            `json:"tonic"`
	DurationSec float64            `json:"duration_sec"`
	Swarams     []models.NoteEvent `json:"swarams"`
	Raaga       *models.RaagaMatch `json:"raaga"`
	Lyrics      []models.LyricLine `json:"lyrics"`
}

func newTranscriptionResponse(t *models.Transcription) TranscriptionResponse {
	resp := TranscriptionResponse{
		RequestID:   t.RequestID,
		Source:      t.Source,
		Tonic:       t.Tonic,
		DurationSec: t.DurationSec,
		Swarams:     t.Swarams,
		Raaga:       t.Raaga,
	}
	if resp.Swarams == nil {
		resp.Swarams = []models.NoteEvent{}
	}
	// Absent lyrics are reported as null.
	if len(t.Lyrics) > 0 {
		resp.Lyrics = t.Lyrics
	}
	return resp
}

// TranscribeYouTubeRequest is the request body for POST /api/transcribe/youtube
type TranscribeYouTubeRequest struct {
	YouTubeURL string  `json:"youtube_url"`
	Sruti      float64 `json:"sruti,omitempty"`
}

func (r *TranscribeYouTubeRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required")
	}
	return validateSruti(r.Sruti)
}

// TranscribeFramesRequest is the request body for POST /api/transcribe/frames
type TranscribeFramesRequest struct {
	Frames []models.PitchFrame `json:"frames"`
	Sruti  float64             `json:"sruti,omitempty"`
}

func (r *TranscribeFramesRequest) Validate() error {
	if len(r.Frames) > MaxFrames {
		return fmt.Errorf("too many frames: %d (maximum: %d)", len(r.Frames), MaxFrames)
	}
	return validateSruti(r.Sruti)
}

// DetectRaagaRequest is the request body for POST /api/raaga/detect
type DetectRaagaRequest struct {
	Swarams []models.NoteEvent `json:"swarams"`
	All     bool               `json:"all,omitempty"`
}

// DetectRaagaResponse carries the best match and, when requested, the
// score of every catalog raaga.
type DetectRaagaResponse struct {
	Raaga  *models.RaagaMatch `json:"raaga"`
	Scores []raaga.Score      `json:"scores,omitempty"`
}

// RaagaListResponse is the response for GET /api/raagas
type RaagaListResponse struct {
	Raagas []models.RaagaDefinition `json:"raagas"`
	Count  int                      `json:"count"`
}

// HealthResponse is the response for GET /api/health
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Services      map[string]string `json:"services"`
	CatalogSource string            `json:"catalog_source"`
	Raagas        int               `json:"raagas"`
	SampleRate    int               `json:"sample_rate"`
	DefaultTonic  float64           `json:"default_tonic"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// validateSruti accepts zero (use the default) or a positive frequency.
func validateSruti(hz float64) error {
	if hz < 0 {
		return fmt.Errorf("sruti must be a positive frequency in Hz, got %v", hz)
	}
	return nil
}
