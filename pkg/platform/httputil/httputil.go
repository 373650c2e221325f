// Package httputil centralizes JSON response writing and request decoding so
// handlers stay focused on orchestration.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "attest/pkg/domain-errors"
)

// errorResponse is the wire envelope for all error responses.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written; nothing recoverable remains.
		return
	}
}

// WriteError maps a domain error onto an HTTP error envelope.
//
// Internal errors deliberately omit the description so infrastructure details
// never reach clients; every other code includes the domain message.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(err)
	resp := errorResponse{Error: string(dErrors.CodeOf(err))}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, resp)
}

// Validatable is implemented by request DTOs that normalize and validate
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// maxRequestBody bounds request bodies to keep malformed or hostile payloads
// from exhausting memory. Provider sync payloads are the largest legitimate
// bodies and stay well under this.
const maxRequestBody = 4 << 20

// Decode reads a JSON body into T. Returns CodeBadRequest for unreadable or
// syntactically invalid JSON.
func Decode[T any](r *http.Request) (*T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	if err := dec.Decode(&v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body too large")
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body")
	}
	return &v, nil
}

// ReadBody reads a raw request body under the same size bound as Decode.
// Provider payloads are handed to the ingest parser verbatim, so they skip
// JSON decoding here.
func ReadBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body too large")
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "failed to read request body")
	}
	return body, nil
}

// DecodeAndPrepare decodes a JSON body into T and runs its Validate method.
// On failure it writes the error response and returns ok=false; handlers
// simply return when ok is false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	v, err := Decode[T](r)
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request decode failed", "request_id", requestID, "error", err)
		}
		WriteError(w, err)
		return nil, false
	}
	pv := PT(v)
	if err := pv.Validate(); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request validation failed", "request_id", requestID, "error", err)
		}
		WriteError(w, err)
		return nil, false
	}
	return pv, true
}
