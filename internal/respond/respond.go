// Package respond writes the JSON envelopes shared by every API handler.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"creative-automation/internal/apperr"
)

// ErrorEnvelope is the JSON body of every error response.
type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
	Meta    map[string]any      `json:"meta,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func OK(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusOK, payload)
}

// Error converts err into an error envelope. 5xx causes are logged.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ae := apperr.From(err)
	if ae.HTTPStatus >= 500 {
		logger.ErrorContext(r.Context(), "api server error",
			"code", ae.Code,
			"path", r.URL.Path,
			"cause", ae.Cause,
		)
	}

	JSON(w, ae.HTTPStatus, ErrorEnvelope{
		Error:   ae.Message,
		Code:    ae.Code,
		Details: ae.Details,
		Meta:    ae.Meta,
	})
}
