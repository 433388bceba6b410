package internal

import (
	"errors"
	"fmt"
	"time"
)

// NetworkError represents a failed request: either the transport failed or
// the backend answered with a non-2xx status.
type NetworkError struct {
	Method     string
	Path       string
	StatusCode int    // 0 when the request never got a response
	Detail     string // message taken from the backend's error body
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("network error: %s %s: %v", e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("network error: %s %s (HTTP %d): %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.StatusCode == 401
}

// ParseError represents errors parsing data
type ParseError struct {
	Source string // "api", "cache", "archive"
	Key    string // endpoint path, file path or row key
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when a job never reached a terminal status
// within the polling budget.
type TimeoutError struct {
	JobID      string
	Elapsed    time.Duration
	LastStatus JobStatus
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: job %s still %s after %s", e.JobID, e.LastStatus, e.Elapsed.Round(time.Millisecond))
}

// ValidationError represents invalid user input caught before any request.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// StorageError represents errors accessing local cache or archive files
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "query"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
