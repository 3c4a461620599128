package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nekruzvatanshoev/carzone/pkg/carzone/auth"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/moderation"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/otp"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/query"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/session"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/store"
	"github.com/nekruzvatanshoev/carzone/pkg/carzone/valuation"
)

var (
	errBadRequest  = errors.New("bad request")
	errNotVerified = errors.New("email not verified for this session")
)

type errorResponse struct {
	Error string `json:"error"`
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, query.ErrInvalidCriteria),
		errors.Is(err, valuation.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, otp.ErrInvalidEmail),
		errors.Is(err, otp.ErrNoCode),
		errors.Is(err, session.ErrNoEmail):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, otp.ErrCodeMismatch),
		errors.Is(err, otp.ErrCodeExpired):
		return http.StatusUnauthorized
	case errors.Is(err, errNotVerified):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, moderation.ErrInvalidTransition),
		errors.Is(err, session.ErrEmailChanged):
		return http.StatusConflict
	case errors.Is(err, valuation.ErrUnknownModel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, otp.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (h *httpServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err,
			"request_id", requestIDFrom(r.Context()))
		msg = http.StatusText(status)
	} else {
		h.log.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}
