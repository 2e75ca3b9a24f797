// Package httputil holds the JSON request/response helpers shared by every
// handler, including the single error-to-status mapper.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "bciers/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// Validatable is implemented by request payloads.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the JSON error envelope. Internal errors
// never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if de, ok := dErrors.As(err); ok {
			body["error_description"] = de.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// Decode reads a JSON body into v, rejecting unknown fields and oversized bodies.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return nil
}

// DecodeAndPrepare decodes and validates a request payload. On failure it
// writes the error response and returns false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := Decode(r, &req); err != nil {
		logWarn(ctx, logger, "failed to decode request", requestID, err)
		WriteError(w, err)
		return nil, false
	}
	if err := PT(&req).Validate(); err != nil {
		logWarn(ctx, logger, "invalid request", requestID, err)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}

func logWarn(ctx context.Context, logger *slog.Logger, msg, requestID string, err error) {
	if logger == nil {
		return
	}
	logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
}

// URLParam returns the named chi path parameter.
func URLParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
