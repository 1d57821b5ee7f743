package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/frankwiersma/speech-to-jira/internal/app"
	"github.com/frankwiersma/speech-to-jira/internal/apperr"
	"github.com/frankwiersma/speech-to-jira/internal/models"
	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
	"github.com/frankwiersma/speech-to-jira/internal/service/export"
	"github.com/frankwiersma/speech-to-jira/internal/service/pipeline"
	"github.com/frankwiersma/speech-to-jira/internal/service/tickets"
)

const (
	audioField       = "audio"
	defaultAudioType = "audio/mpeg"
	maxJSONBody      = 10 << 20
	multipartMemory  = 32 << 20
	multipartSlack   = 1 << 20 // room for multipart framing around the file

	droppedHeader = "X-Dropped-Tickets"
)

// Handlers serves the pipeline over HTTP.
type Handlers struct {
	app      *app.Application
	pipeline *pipeline.Service
	logger   zerolog.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(application *app.Application, svc *pipeline.Service) *Handlers {
	return &Handlers{
		app:      application,
		pipeline: svc,
		logger:   logging.WithComponent("http"),
	}
}

type transcribeResponse struct {
	Success               bool               `json:"success"`
	Transcript            string             `json:"transcript"`
	TimestampedTranscript string             `json:"timestampedTranscript"`
	Duration              float64            `json:"duration"`
	Confidence            float64            `json:"confidence"`
	Utterances            []models.Utterance `json:"utterances,omitempty"`
}

type ticketsResponse struct {
	Success               bool            `json:"success"`
	RunID                 string          `json:"runId"`
	Transcript            string          `json:"transcript,omitempty"`
	TimestampedTranscript string          `json:"timestampedTranscript,omitempty"`
	Duration              float64         `json:"duration,omitempty"`
	Tickets               []models.Ticket `json:"tickets"`
	Summary               string          `json:"summary"`
	Count                 int             `json:"count"`
	Dropped               int             `json:"dropped,omitempty"`
}

type healthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	App       *app.Status `json:"app,omitempty"`
}

type generateRequest struct {
	Transcript string `json:"transcript"`
}

type exportRequest struct {
	Tickets []models.Ticket `json:"tickets"`
	Format  string          `json:"format"`
}

// Transcribe handles POST /api/transcribe.
func (h *Handlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	if err := h.pipeline.CheckCredentials(pipeline.FlowTranscribe, credentialsFromRequest(r)); err != nil {
		writeError(w, logger, err)
		return
	}
	in, err := h.readAudio(w, r)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	res, err := h.pipeline.ProcessAudio(r.Context(), in)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Success:               true,
		Transcript:            res.Transcript,
		TimestampedTranscript: res.TimestampedTranscript,
		Duration:              res.Duration,
		Confidence:            res.Confidence,
		Utterances:            res.Utterances,
	})
}

// Process handles POST /api/process.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	if err := h.pipeline.CheckCredentials(pipeline.FlowProcess, credentialsFromRequest(r)); err != nil {
		writeError(w, logger, err)
		return
	}
	in, err := h.readAudio(w, r)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	res, err := h.pipeline.ProcessAudioAndGenerate(r.Context(), in)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ticketsResponse{
		Success:               true,
		RunID:                 res.RunID,
		Transcript:            res.Transcription.Transcript,
		TimestampedTranscript: res.Transcription.TimestampedTranscript,
		Duration:              res.Transcription.Duration,
		Tickets:               res.Generation.Tickets,
		Summary:               res.Generation.Summary,
		Count:                 len(res.Generation.Tickets),
		Dropped:               len(res.Dropped),
	})
}

// Generate handles POST /api/generate.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, logger, err)
		return
	}

	res, err := h.pipeline.GenerateFromTranscript(r.Context(), req.Transcript, credentialsFromRequest(r))
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, http.StatusOK, ticketsResponse{
		Success: true,
		RunID:   res.RunID,
		Tickets: res.Generation.Tickets,
		Summary: res.Generation.Summary,
		Count:   len(res.Generation.Tickets),
		Dropped: len(res.Dropped),
	})
}

// Export handles POST /api/export. The format comes from the body or the
// format query parameter and defaults to JSON. Posted tickets are normalized
// like generated ones; the count of dropped entries is reported in the
// X-Dropped-Tickets header, and a batch with nothing valid is refused.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	logger := h.requestLogger(r)

	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, logger, err)
		return
	}

	name := req.Format
	if name == "" {
		name = r.URL.Query().Get("format")
	}
	if name == "" {
		name = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	normalized, dropped := tickets.NewNormalizer(tickets.NewRunPrefix()).Normalize(tickets.Drafts(req.Tickets))
	for _, d := range dropped {
		logger.Warn().
			Int("index", d.Index).
			Str("id", d.ID).
			Str("reason", d.Reason).
			Msg("Dropped posted ticket")
	}
	if len(normalized) == 0 && len(req.Tickets) > 0 {
		writeError(w, logger, apperr.Validationf("No valid tickets to export"))
		return
	}

	body, err := export.Serialize(normalized, format)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename()))
	if len(dropped) > 0 {
		w.Header().Set(droppedHeader, strconv.Itoa(len(dropped)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Index handles GET /.
func (h *Handlers) Index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "Speech-to-Jira API",
		"endpoints": map[string]string{
			"transcribe": "POST /api/transcribe",
			"process":    "POST /api/process",
			"generate":   "POST /api/generate",
			"export":     "POST /api/export",
		},
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.app != nil {
		st := h.app.Status()
		resp.App = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

// Readiness handles GET /v1/readiness.
func (h *Handlers) Readiness(w http.ResponseWriter, _ *http.Request) {
	if h.app != nil && !h.app.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// readAudio extracts the uploaded recording. Callers check credentials first.
// A missing file is not an error here; the pipeline reports it.
func (h *Handlers) readAudio(w http.ResponseWriter, r *http.Request) (pipeline.AudioInput, error) {
	in := pipeline.AudioInput{Credentials: credentialsFromRequest(r)}
	limit := h.pipeline.Limits().MaxAudioBytes

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return in, apperr.Validationf("File too large. Maximum size is %s", pipeline.FormatBytes(limit))
		case errors.Is(err, http.ErrNotMultipart):
			return in, apperr.Validationf("Expected multipart/form-data with an %q file", audioField)
		default:
			return in, apperr.Validationf("Invalid multipart form")
		}
	}

	file, header, err := r.FormFile(audioField)
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return in, apperr.Validationf("Invalid audio upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return in, apperr.Validationf("Could not read audio upload")
	}

	in.Data = data
	in.Filename = header.Filename
	in.MimeType = uploadType(header.Header.Get("Content-Type"), data)
	return in, nil
}

// uploadType returns the declared type, or a sniffed audio type when the
// client sent none. Unknown content falls back to audio/mpeg.
func uploadType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if detected := mimetype.Detect(data); strings.HasPrefix(detected.String(), "audio/") {
		return detected.String()
	}
	return defaultAudioType
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty body, leave dst zero
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validationf("Request body too large")
		}
		return apperr.Validationf("Invalid JSON body")
	}
	return nil
}

func (h *Handlers) requestLogger(r *http.Request) zerolog.Logger {
	return h.logger.With().
		Str("requestId", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Logger()
}
