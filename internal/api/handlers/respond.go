package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/alphapulse/internal/analysis"
	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/ingest"
	"github.com/wonny/alphapulse/internal/risk"
	"github.com/wonny/alphapulse/pkg/httputil"
	"github.com/wonny/alphapulse/pkg/logger"
)

// respondJSON encodes before writing the header so an unencodable value
// becomes a 500 instead of an empty 200
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// StatusFor maps a service error to an HTTP status code
func StatusFor(err error) int {
	var statusErr *httputil.StatusError

	switch {
	case contracts.IsInputError(err),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrInvalidURL),
		errors.Is(err, risk.ErrEmptyCurve):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, contracts.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with its mapped status. Server-side failures
// are logged and their detail is not exposed.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, msg string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error(msg)
		respondError(w, status, msg)
		return
	}
	respondError(w, status, err.Error())
}
