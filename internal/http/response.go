package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
)

// envelope wraps every successful payload.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

// ResponseBuilder writes JSON responses in the API envelope.
type ResponseBuilder struct {
	statusCode int
	data       any
	message    string
}

func NewResponse(data any) *ResponseBuilder {
	return &ResponseBuilder{statusCode: http.StatusOK, data: data}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.message = msg
	return b
}

func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	writeJSON(w, b.statusCode, envelope{Success: true, Data: b.data, Message: b.message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", applog.FieldError, err)
	}
}

func ok(w http.ResponseWriter, data any) {
	NewResponse(data).Write(w)
}

func created(w http.ResponseWriter, data any) {
	NewResponse(data).Status(http.StatusCreated).Write(w)
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// statusOf maps an error kind onto its HTTP status.
func statusOf(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindConflict:
		return http.StatusConflict
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": msg}. Internal and database errors
// are logged with their cause and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *core.Error
	if !errors.As(err, &appErr) {
		appErr = core.InternalError("unexpected error", err)
	}

	status := statusOf(appErr.Kind)
	msg := appErr.Message
	if !appErr.Public() {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, appErr.Message, applog.Fields{
				applog.FieldMethod: r.Method,
				applog.FieldPath:   r.URL.Path,
			})
		msg = "Internal server error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
