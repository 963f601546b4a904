package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/himanishpuri/sargam/pkg/logger"
	"github.com/himanishpuri/sargam/pkg/models"
	"github.com/himanishpuri/sargam/pkg/sargam"
	"github.com/himanishpuri/sargam/pkg/sargam/midifile"
	"github.com/himanishpuri/sargam/pkg/sargam/swaram"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const testOrigin = "http://localhost:3000"

var scale = []models.SwaramName{
	models.Sa, models.Ri2, models.Ga3, models.Ma1, models.Pa, models.Da2, models.Ni3, models.Sa,
	models.Ni3, models.Da2, models.Pa, models.Ma1, models.Ga3, models.Ri2, models.Sa,
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc, err := sargam.NewService(
		sargam.WithLogger(logger.New(logger.Config{Output: io.Discard})),
		sargam.WithTempDir(t.TempDir()),
		sargam.WithTolerance(20),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	srv := NewServer(svc, &ServerConfig{
		TempDir:        t.TempDir(),
		SampleRate:     44100,
		AllowedOrigins: []string{testOrigin},
	})
	return srv.setupRoutes()
}

func do(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, h http.Handler, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, h, http.MethodPost, path, bytes.NewReader(body), "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func scaleFrames(t *testing.T) []models.PitchFrame {
	t.Helper()
	hop := 512.0 / 44100.0
	var frames []models.PitchFrame
	for i, s := range scale {
		octave := models.Madhya
		if i == 7 {
			octave = models.Tara
		}
		f, _ := swaram.ReferenceFrequency(s, octave, sargam.DefaultTonic)
		for k := 0; k < 8; k++ {
			frames = append(frames, models.PitchFrame{Time: float64(len(frames)) * hop, Frequency: f, Voicing: 0.95})
		}
	}
	return frames
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestHandler(t)

	if rec := do(t, h, http.MethodGet, "/health", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("GET /health: expected 200, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/health: expected 200, got %d", rec.Code)
	}
	health := decode[HealthResponse](t, rec)
	if health.Raagas != 6 || health.CatalogSource != "builtin" || health.Services["transcriber"] != "ready" {
		t.Errorf("Unexpected health response: %+v", health)
	}

	if rec := do(t, h, http.MethodGet, "/nope", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Unknown path: expected 404, got %d", rec.Code)
	}
}

func TestRaagaEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/api/raagas", nil, "")
	list := decode[RaagaListResponse](t, rec)
	if rec.Code != http.StatusOK || list.Count != 6 || list.Raagas[0].Name != "Mayamalavagowla" {
		t.Errorf("Unexpected raaga list: %d %+v", rec.Code, list)
	}

	rec = do(t, h, http.MethodGet, "/api/raagas/kalyani", nil, "")
	def := decode[models.RaagaDefinition](t, rec)
	if rec.Code != http.StatusOK || def.Name != "Kalyani" || def.Tradition != models.Carnatic {
		t.Errorf("Unexpected raaga: %d %+v", rec.Code, def)
	}

	if rec := do(t, h, http.MethodGet, "/api/raagas/Unknown", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Unknown raaga: expected 404, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/raagas", nil, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/raagas: expected 405, got %d", rec.Code)
	}
}

func TestTranscribeFramesEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/api/transcribe/frames", TranscribeFramesRequest{Frames: scaleFrames(t)})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[TranscriptionResponse](t, rec)
	if len(resp.Swarams) != len(scale) {
		t.Errorf("Expected %d swarams, got %d", len(scale), len(resp.Swarams))
	}
	if resp.Raaga == nil || resp.Raaga.Name != "Shankarabharanam" {
		t.Errorf("Expected Shankarabharanam, got %+v", resp.Raaga)
	}
	if resp.Tonic != sargam.DefaultTonic || resp.Lyrics != nil {
		t.Errorf("Unexpected tonic or lyrics: %+v", resp)
	}

	rec = postJSON(t, h, "/api/transcribe/frames", TranscribeFramesRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("Empty frames: expected 200, got %d", rec.Code)
	}
	empty := decode[TranscriptionResponse](t, rec)
	if empty.Swarams == nil || len(empty.Swarams) != 0 || empty.Raaga != nil {
		t.Errorf("Empty frames: expected [] swarams and null raaga, got %+v", empty)
	}
}

func TestTranscribeFramesRejectsBadInput(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body any
	}{
		{"negative sruti", TranscribeFramesRequest{Frames: scaleFrames(t), Sruti: -1}},
		{"voicing out of range", TranscribeFramesRequest{Frames: []models.PitchFrame{{Time: 0, Frequency: 131, Voicing: 2}}}},
		{"decreasing time", TranscribeFramesRequest{Frames: []models.PitchFrame{{Time: 1}, {Time: 0.5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postJSON(t, h, "/api/transcribe/frames", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	rec := do(t, h, http.MethodPost, "/api/transcribe/frames", bytes.NewBufferString("{not json"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Malformed JSON: expected 400, got %d", rec.Code)
	}
}

func TestDetectRaagaEndpoint(t *testing.T) {
	h := newTestHandler(t)

	events := make([]models.NoteEvent, len(scale))
	for i, s := range scale {
		events[i] = models.NoteEvent{Start: float64(i), End: float64(i + 1), Swaram: s, Octave: models.Madhya, Confidence: 0.9}
	}

	rec := postJSON(t, h, "/api/raaga/detect", DetectRaagaRequest{Swarams: events, All: true})
	resp := decode[DetectRaagaResponse](t, rec)
	if rec.Code != http.StatusOK || resp.Raaga == nil || resp.Raaga.Name != "Shankarabharanam" {
		t.Fatalf("Unexpected detection: %d %+v", rec.Code, resp)
	}
	if len(resp.Scores) != 6 {
		t.Errorf("Expected 6 scores, got %d", len(resp.Scores))
	}

	rec = postJSON(t, h, "/api/raaga/detect", DetectRaagaRequest{Swarams: events[:3]})
	if short := decode[DetectRaagaResponse](t, rec); rec.Code != http.StatusOK || short.Raaga != nil {
		t.Errorf("Too few notes: expected 200 with null raaga, got %d %+v", rec.Code, short)
	}

	events[2].Swaram = "Zz"
	if rec := postJSON(t, h, "/api/raaga/detect", DetectRaagaRequest{Swarams: events}); rec.Code != http.StatusBadRequest {
		t.Errorf("Unknown swaram: expected 400, got %d", rec.Code)
	}
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte, sruti float64) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	if sruti > 0 {
		mw.WriteField("sruti", strconv.FormatFloat(sruti, 'f', -1, 64))
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func midiScale(t *testing.T) []byte {
	t.Helper()
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, smf.MetaLyric("sa"))
	for _, k := range []uint8{48, 50, 52, 53, 55, 57, 59, 60, 59, 57, 55, 53, 52, 50, 48} {
		tr.Add(0, midi.NoteOn(0, k, 100))
		tr.Add(480, midi.NoteOff(0, k))
	}
	tr.Close(0)

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(960)
	if err := file.Add(tr); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "scale.mid")
	if err := file.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestTranscribeUpload(t *testing.T) {
	h := newTestHandler(t)

	body, ct := multipartUpload(t, "scale.mid", "audio/midi", midiScale(t), midifile.KeyFrequency(48))
	rec := do(t, h, http.MethodPost, "/api/transcribe", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[TranscriptionResponse](t, rec)
	if resp.Source != "scale.mid" || resp.RequestID == "" {
		t.Errorf("Unexpected source or request id: %+v", resp)
	}
	if len(resp.Swarams) != len(scale) || resp.Raaga == nil || resp.Raaga.Name != "Shankarabharanam" {
		t.Errorf("Unexpected transcription: %+v", resp)
	}
	if len(resp.Lyrics) != 1 || resp.Lyrics[0].Text != "sa" {
		t.Errorf("Expected one lyric, got %+v", resp.Lyrics)
	}
}

func TestTranscribeUploadRejections(t *testing.T) {
	h := newTestHandler(t)

	body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"), 0)
	if rec := do(t, h, http.MethodPost, "/api/transcribe", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("Text upload: expected 400, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodPost, "/api/transcribe", bytes.NewBufferString("x"), "text/plain"); rec.Code != http.StatusBadRequest {
		t.Errorf("Non-multipart body: expected 400, got %d", rec.Code)
	}

	if rec := do(t, h, http.MethodGet, "/api/transcribe", nil, ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/transcribe: expected 405, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/transcribe", nil)
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Preflight: expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Expected allowed origin %q, got %q", testOrigin, got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Disallowed origin should get no CORS header, got %q", got)
	}
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		origins     []string
		wantOrigin  string
		credentials string
	}{
		{"wildcard", []string{"*"}, "*", ""},
		{"no origins configured", nil, "*", ""},
		{"explicit origin", []string{testOrigin}, testOrigin, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", testOrigin)
			rec := httptest.NewRecorder()
			corsMiddleware(tt.origins)(ok).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, expected %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.credentials {
				t.Errorf("Allow-Credentials = %q, expected %q", got, tt.credentials)
			}
		})
	}
}

func TestParseOrigins(t *testing.T) {
	if got := parseOrigins("*"); len(got) != 1 || got[0] != "*" {
		t.Errorf("parseOrigins(*) = %v", got)
	}
	got := parseOrigins(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("parseOrigins = %v", got)
	}
}
