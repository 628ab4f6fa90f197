package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced to clients
type ErrorKind string

const (
	ErrorKindValidation          ErrorKind = "validation_error"
	ErrorKindUnsupportedPlatform ErrorKind = "unsupported_platform"
	ErrorKindVideoNotFound       ErrorKind = "video_not_found"
	ErrorKindExtraction          ErrorKind = "extraction_error"
	ErrorKindTimeout             ErrorKind = "timeout"
	ErrorKindInternal            ErrorKind = "internal_error"
)

// Default suggestions per error kind
var defaultSuggestions = map[ErrorKind]string{
	ErrorKindValidation:          "Please check that the URL is valid and from a supported platform",
	ErrorKindUnsupportedPlatform: "Try a URL from YouTube, TikTok, Instagram, Facebook, Twitter, Reddit, or Vimeo",
	ErrorKindVideoNotFound:       "Check that the video exists and is publicly accessible",
	ErrorKindExtraction:          "Please try again or contact support if the problem persists",
	ErrorKindTimeout:             "The request took too long to process. Please try again",
	ErrorKindInternal:            "Please try again or contact support if the problem persists",
}

var statusCodes = map[ErrorKind]int{
	ErrorKindValidation:          http.StatusBadRequest,
	ErrorKindUnsupportedPlatform: http.StatusBadRequest,
	ErrorKindVideoNotFound:       http.StatusNotFound,
	ErrorKindExtraction:          http.StatusInternalServerError,
	ErrorKindTimeout:             http.StatusServiceUnavailable,
	ErrorKindInternal:            http.StatusInternalServerError,
}

// Error is the typed failure returned by the metadata pipeline
type Error struct {
	Kind       ErrorKind
	Message    string
	Suggestion string
	// Transient marks an extraction error caused by the network, which
	// clients may retry.
	Transient bool
	Details   map[string]string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether a client may retry the request
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ErrorKindTimeout, ErrorKindInternal:
		return true
	case ErrorKindExtraction:
		return e.Transient
	}
	return false
}

// HTTPStatus maps the error kind to a response status
func (e *Error) HTTPStatus() int {
	if code, ok := statusCodes[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion overrides the default suggestion
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// NewError creates an error of the given kind with the default suggestion
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		Suggestion: defaultSuggestions[kind],
		Err:        err,
	}
}

func NewValidationError(message string) *Error {
	return NewError(ErrorKindValidation, message, nil)
}

func NewUnsupportedPlatformError(message string) *Error {
	return NewError(ErrorKindUnsupportedPlatform, message, nil)
}

func NewVideoNotFoundError(message string, err error) *Error {
	return NewError(ErrorKindVideoNotFound, message, err)
}

func NewExtractionError(message string, err error) *Error {
	return NewError(ErrorKindExtraction, message, err)
}

// NewNetworkError is a retryable extraction error
func NewNetworkError(message string, err error) *Error {
	e := NewError(ErrorKindExtraction, message, err)
	e.Transient = true
	return e
}

func NewTimeoutError(message string, err error) *Error {
	return NewError(ErrorKindTimeout, message, err)
}

func NewInternalError(message string, err error) *Error {
	return NewError(ErrorKindInternal, message, err)
}

// AsError returns err as a typed *Error. Untyped errors become internal errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternalError("An unexpected error occurred", err)
}

// IsKind reports whether err is a typed error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
