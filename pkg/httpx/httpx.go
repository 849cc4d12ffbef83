// Package httpx holds small helpers for JSON HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HandlerFunc is a function that handles HTTP requests and may return an error
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// StatusError is an error that carries the HTTP status to answer with
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// WithStatus attaches an HTTP status to err
func WithStatus(status int, err error) error {
	return &StatusError{Status: status, Err: err}
}

// Wrap converts a HandlerFunc to an http.HandlerFunc. Errors become JSON
// error bodies, 500 unless the error carries a StatusError.
func Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			status := http.StatusInternalServerError
			var se *StatusError
			if errors.As(err, &se) {
				status = se.Status
			}
			Error(w, status, err.Error())
		}
	}
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error writes a JSON error response with the given status code and message
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}
