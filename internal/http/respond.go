package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/frankwiersma/speech-to-jira/internal/apperr"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// writeError maps err to a status and a caller-safe body. Full detail goes to
// the log only.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)

	resp := errorResponse{
		Error: apperr.Public(err),
		Stage: apperr.StageOf(err),
	}
	switch kind {
	case apperr.KindValidation, apperr.KindAuthorization:
	default:
		resp.Details = kind.String()
	}

	ev := logger.Warn()
	if status >= http.StatusInternalServerError && kind != apperr.KindUpstream &&
		kind != apperr.KindMalformedResponse && kind != apperr.KindEmptyResult && kind != apperr.KindTimeout {
		ev = logger.Error()
	}
	ev.Err(err).Int("status", status).Msg("Request failed")

	writeJSON(w, status, resp)
}
