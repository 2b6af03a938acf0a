package common

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies sync failures for the run error log.
type ErrorType string

const (
	// ErrorTypeConfiguration for missing or invalid process configuration
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeWikiFetch for transport or non-2xx wiki responses
	ErrorTypeWikiFetch ErrorType = "wiki_fetch"
	// ErrorTypeWikiNotFound for a wiki page that 404s
	ErrorTypeWikiNotFound ErrorType = "wiki_not_found"
	// ErrorTypeMapping for metadata the mapper cannot coerce
	ErrorTypeMapping ErrorType = "mapping"
	// ErrorTypeStorage for store write failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeInternal for everything else
	ErrorTypeInternal ErrorType = "internal"
)

// SyncError is a structured error carrying the failure class and, where
// relevant, the wiki page it occurred on.
type SyncError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Page      string    `json:"page,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Cause     error     `json:"-"`
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// WithPage attaches the wiki page path the error occurred on.
func (e *SyncError) WithPage(page string) *SyncError {
	e.Page = page
	return e
}

func NewError(errorType ErrorType, message string) *SyncError {
	return &SyncError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewConfigurationError(message string) *SyncError {
	return NewError(ErrorTypeConfiguration, message)
}

func NewWikiFetchError(message string) *SyncError {
	return NewError(ErrorTypeWikiFetch, message)
}

func NewWikiNotFoundError(message string) *SyncError {
	return NewError(ErrorTypeWikiNotFound, message)
}

func NewMappingError(message string) *SyncError {
	return NewError(ErrorTypeMapping, message)
}

func NewStorageError(message string) *SyncError {
	return NewError(ErrorTypeStorage, message)
}

// WrapError attaches a cause to a new SyncError.
func WrapError(err error, errorType ErrorType, message string) *SyncError {
	return &SyncError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// IsErrorType reports whether err or anything it wraps is a SyncError of
// the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Type == errorType
	}
	return false
}
