package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/johnnyfleury87-ctrl/JETC-IMMO-SaaS-sub001/pkg/apierrors"
)

// Envelope is the uniform result wrapper for every workflow operation
type Envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *EnvelopeError `json:"error,omitempty"`
}

// EnvelopeError carries the structured error part of the envelope
type EnvelopeError struct {
	Kind    apierrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

// RespondWithJSON sends a JSON response with the given status code
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already written, so just log the failure
		slog.Error("Failed to encode JSON response", "error", err, "statusCode", statusCode)
	}
}

// RespondWithData wraps payload in a success envelope
func RespondWithData(w http.ResponseWriter, statusCode int, payload interface{}) {
	RespondWithJSON(w, statusCode, Envelope{Success: true, Data: payload})
}

// RespondWithError maps a workflow error onto the failure envelope
func RespondWithError(w http.ResponseWriter, err error) {
	wf := apierrors.AsWorkflowError(err)
	if wf.Kind == apierrors.KindInternal {
		slog.Error("Internal error", "error", wf.InternalErr, "message", wf.Message)
	}
	RespondWithJSON(w, wf.HTTPStatus, Envelope{
		Success: false,
		Error:   &EnvelopeError{Kind: wf.Kind, Message: wf.Message},
	})
}

// GetEnvOrDefault returns the environment variable value or a default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
