package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// HTTPError is an error with a status code and a message safe to show clients.
type HTTPError struct {
	cause   error
	Code    int
	Message string
}

func (he *HTTPError) Error() string { return he.Message }
func (he *HTTPError) Unwrap() error { return he.cause }

func newHTTPError(code int, message string, cause error) *HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return &HTTPError{cause: cause, Code: code, Message: message}
}

func ErrBadRequest(message string, cause error) *HTTPError {
	return newHTTPError(http.StatusBadRequest, message, cause)
}

func ErrNotFound(message string) *HTTPError {
	return newHTTPError(http.StatusNotFound, message, nil)
}

func ErrUnauthorized() *HTTPError {
	return newHTTPError(http.StatusUnauthorized, "", auth.ErrNoSession)
}

// AppHandler is a handler that reports failures instead of writing them.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler turns an AppHandler into an http.HandlerFunc that logs the
// error and answers with {"error": "..."}.
func MakeHandler(log logger.Logger, h AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		var httpErr *HTTPError
		var code int
		var msg string

		switch {
		case errors.As(err, &httpErr):
			code, msg = httpErr.Code, httpErr.Message
		case errors.Is(err, auth.ErrNoSession):
			code, msg = http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized)
		case errors.Is(err, domain.ErrInvalidBookmark):
			code, msg = http.StatusBadRequest, err.Error()
		default:
			code, msg = http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
		}

		fields := []logger.Field{
			logger.Int("status", code),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Warn("request rejected", fields...)
		}

		if w.Header().Get("Content-Type") != "" {
			// headers are gone, nothing more to say
			return
		}
		respondJSON(w, code, map[string]string{"error": msg})
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
