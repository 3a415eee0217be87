package apperr

import (
	"errors"
	"net/http"
)

// Error is a typed, status-aware application error. Handlers match on the
// sentinel values below instead of inspecting free-form error strings.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Status  int            `json:"-"`
	Fields  map[string]any `json:"fields,omitempty"`
	Err     error          `json:"-"`
}

// Closed taxonomy for the identity lifecycle. Every error leaving the engine
// is one of these (possibly wrapped around a lower-level cause).
var (
	ErrValidation = &Error{Code: "validation_error", Status: http.StatusBadRequest}
	ErrConflict   = &Error{Code: "conflict", Status: http.StatusBadRequest}
	ErrNotFound   = &Error{Code: "not_found", Status: http.StatusNotFound}
	ErrExpired    = &Error{Code: "expired", Status: http.StatusBadRequest}
	ErrInvalid    = &Error{Code: "invalid_token", Status: http.StatusBadRequest}
	ErrUnauth     = &Error{Code: "unauthorized", Status: http.StatusUnauthorized}
	ErrUpstream   = &Error{Code: "upstream_failure", Status: http.StatusInternalServerError}
	ErrInternal   = &Error{Code: "internal_error", Status: http.StatusInternalServerError}
)

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches wrapped errors against the taxonomy sentinels by code, so
// errors.Is(err, apperr.ErrNotFound) works on derived instances.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New derives a new error from a sentinel with a specific message.
func New(base *Error, message string) *Error {
	if base == nil {
		base = ErrInternal
	}
	c := *base
	c.Message = message
	return &c
}

// Wrap attaches a cause to a sentinel-derived error.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	c := *base
	if message != "" {
		c.Message = message
	}
	c.Err = err
	return &c
}

// WithFields attaches per-field validation details.
func WithFields(base *Error, fields map[string]any) *Error {
	if base == nil {
		return nil
	}
	c := *base
	c.Fields = fields
	return &c
}

// As extracts a typed error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// Status returns the HTTP status for an error, defaulting to 500.
func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Code returns the taxonomy code for an error.
func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

// Message returns the human-readable message for an error.
func Message(err error) string {
	if e, ok := As(err); ok {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Code
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Payload builds the JSON error body served by the API.
func Payload(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	payload := map[string]any{
		"success": false,
		"error":   Code(err),
		"message": Message(err),
	}
	if e, ok := As(err); ok && len(e.Fields) > 0 {
		payload["fields"] = e.Fields
	}
	return payload
}
