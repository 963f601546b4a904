package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/sargam/pkg/logger"
	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam"
	"github.com/himanishpuri/sargam/pkg/utils"
)

const version = "1.0.0"

var uploadExtensions = []string{".mp3", ".wav", ".mid", ".midi"}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service sargam.Service
	config  *ServerConfig
	log     sargam.Logger
	http    *http.Server
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	CatalogDB      string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
	LogRequests    bool
}

func NewServer(service sargam.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().With("http"),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondFailure maps a service error to 400 for bad input and 500 for
// everything else.
func (s *Server) respondFailure(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, models.ErrInvalidInput) {
		s.log.Warnf("%s rejected: %v", action, err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Errorf("%s failed: %v", action, err)
	s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed: %v", action, err))
}

// decodeJSON reads a bounded JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "Sargam API",
		"message": "Sargam API is running",
		"version": version,
		"endpoints": map[string]string{
			"health":            "GET /health",
			"status":            "GET /api/health",
			"transcribe":        "POST /api/transcribe",
			"transcribeYouTube": "POST /api/transcribe/youtube",
			"transcribeFrames":  "POST /api/transcribe/frames",
			"detectRaaga":       "POST /api/raaga/detect",
			"raagas":            "GET /api/raagas",
			"raaga":             "GET /api/raagas/{name}",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStatus handles GET /api/health
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status(r.Context())

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version,
		Services: map[string]string{
			"audio_processor": readiness(st.FFmpeg),
			"pitch_tracker":   "ready",
			"transcriber":     "ready",
			"raaga_detector":  readiness(st.Raagas > 0),
			"youtube":         readiness(st.YTDLP),
		},
		CatalogSource: st.CatalogSource,
		Raagas:        st.Raagas,
		SampleRate:    st.SampleRate,
		DefaultTonic:  st.DefaultTonic,
	})
}

func readiness(ok bool) string {
	if ok {
		return "ready"
	}
	return "unavailable"
}

// handleTranscribeFile handles POST /api/transcribe (multipart file upload)
func (s *Server) handleTranscribeFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	sruti, err := parseSruti(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	contentType := header.Header.Get("Content-Type")
	if !strings.Contains(contentType, "audio") && !strings.Contains(contentType, "midi") &&
		!utils.HasExtension(name, uploadExtensions...) {
		s.respondError(w, http.StatusBadRequest, "Invalid file type. Please upload MP3, WAV, or MIDI file.")
		return
	}

	// Save to temporary file, keeping the extension for format detection
	tempFile := filepath.Join(s.config.TempDir, "upload_"+utils.NewRequestID()+"_"+name)
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.Remove(tempFile)

	size, err := io.Copy(out, file)
	out.Close()
	if err != nil {
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	s.log.Infof("Received %s (%s, %s)", name, contentType, humanize.Bytes(uint64(size)))

	t, err := s.service.Transcribe(ctx, tempFile, sruti)
	if err != nil {
		s.respondFailure(w, "Transcription", err)
		return
	}
	t.Source = name
	s.respondJSON(w, http.StatusOK, newTranscriptionResponse(t))
}

// handleTranscribeYouTube handles POST /api/transcribe/youtube
func (s *Server) handleTranscribeYouTube(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req TranscribeYouTubeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := s.service.TranscribeYouTube(ctx, req.YouTubeURL, req.Sruti)
	if err != nil {
		s.respondFailure(w, "YouTube transcription", err)
		return
	}
	s.respondJSON(w, http.StatusOK, newTranscriptionResponse(t))
}

// handleTranscribeFrames handles POST /api/transcribe/frames
func (s *Server) handleTranscribeFrames(w http.ResponseWriter, r *http.Request) {
	var req TranscribeFramesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := s.service.TranscribeFrames(req.Frames, req.Sruti)
	if err != nil {
		s.respondFailure(w, "Frame transcription", err)
		return
	}
	s.respondJSON(w, http.StatusOK, newTranscriptionResponse(t))
}

// handleDetectRaaga handles POST /api/raaga/detect
func (s *Server) handleDetectRaaga(w http.ResponseWriter, r *http.Request) {
	var req DetectRaagaRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	match, err := s.service.DetectRaaga(req.Swarams)
	if err != nil {
		s.respondFailure(w, "Raaga detection", err)
		return
	}
	resp := DetectRaagaResponse{Raaga: match}
	if req.All {
		if resp.Scores, err = s.service.ScoreRaagas(req.Swarams); err != nil {
			s.respondFailure(w, "Raaga scoring", err)
			return
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleListRaagas handles GET /api/raagas
func (s *Server) handleListRaagas(w http.ResponseWriter, r *http.Request) {
	defs := s.service.Raagas()
	s.respondJSON(w, http.StatusOK, RaagaListResponse{Raagas: defs, Count: len(defs)})
}

// handleGetRaaga handles GET /api/raagas/{name}
func (s *Server) handleGetRaaga(w http.ResponseWriter, r *http.Request, name string) {
	def, ok := s.service.Raaga(name)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Raaga %q not found", name))
		return
	}
	s.respondJSON(w, http.StatusOK, def)
}

// handleTranscribe routes requests to /api/transcribe
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleTranscribeFile(w, r)
}

// postOnly wraps a POST handler.
func (s *Server) postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

// handleRaagas routes requests to /api/raagas
func (s *Server) handleRaagas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleListRaagas(w, r)
}

// handleRaaga routes requests to /api/raagas/{name}
func (s *Server) handleRaaga(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/raagas/")
	if name == "" {
		s.handleRaagas(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleGetRaaga(w, r, name)
}

// parseSruti reads the optional tonic from the form or the query string.
// A missing value yields 0, meaning the service default.
func parseSruti(r *http.Request) (float64, error) {
	raw := strings.TrimSpace(r.FormValue("sruti"))
	if raw == "" {
		return 0, nil
	}
	hz, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("sruti must be a number in Hz, got %q", raw)
	}
	if err := validateSruti(hz); err != nil {
		return 0, err
	}
	return hz, nil
}
