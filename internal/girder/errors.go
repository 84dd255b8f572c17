// Package girder provides an HTTP client for the Girder REST API covering
// the collection, folder, item, and file endpoints an uploader needs.
package girder

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, girder.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("girder: bad request")
	ErrUnauthorized = errors.New("girder: unauthorized")
	ErrForbidden    = errors.New("girder: forbidden")
	ErrNotFound     = errors.New("girder: not found")
	ErrServerError  = errors.New("girder: server error")
)

// GirderError wraps a sentinel error with the HTTP status code and the
// message and type fields from Girder's JSON error body.
type GirderError struct {
	StatusCode int
	Type       string // "rest", "validation", "access", ...
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *GirderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("girder: HTTP %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}

	return fmt.Sprintf("girder: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *GirderError) Unwrap() error {
	return e.Err
}

// errorBody mirrors Girder's error response JSON.
type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes with no dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// newGirderError builds a GirderError from a status code and raw body.
// Bodies that are not Girder JSON are kept verbatim as the message.
func newGirderError(code int, body []byte) *GirderError {
	ge := &GirderError{
		StatusCode: code,
		Err:        classifyStatus(code),
	}

	var eb errorBody
	if err := jsonUnmarshal(body, &eb); err == nil && eb.Message != "" {
		ge.Message = eb.Message
		ge.Type = eb.Type

		return ge
	}

	ge.Message = string(body)

	return ge
}
