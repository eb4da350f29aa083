package types

import (
	"errors"
	"fmt"
)

// Frontier rejections.
var (
	ErrDuplicate  = errors.New("duplicate URL")
	ErrInvalidURL = errors.New("invalid URL")
	ErrOffDomain  = errors.New("URL outside crawl scope")
	ErrVisitCap   = errors.New("visit cap reached")
)

// Run and driver failures.
var (
	ErrMaxRetries         = errors.New("max attempts exhausted")
	ErrNoResultsContainer = errors.New("no results container found")
	ErrUnsupported        = errors.New("operation not supported by driver")
	ErrCacheMiss          = errors.New("cache miss")
	ErrBodyTooLarge       = errors.New("response body too large")
	ErrWaitTimeout        = errors.New("page wait timed out")
)

// FetchError is a failed page load. Retryable is false for responses that
// will not change on a second request, such as a 404.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("load %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error     { return e.Err }
func (e *FetchError) IsRetryable() bool { return e.Retryable }

// IsPermanent reports whether err carries a client-error response, or an
// oversized body, that a retry cannot fix.
func IsPermanent(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Retryable {
		return false
	}
	return (fe.StatusCode >= 400 && fe.StatusCode < 500) || errors.Is(fe.Err, ErrBodyTooLarge)
}

// ExtractError is one failed attempt at visiting a URL.
type ExtractError struct {
	URL     string
	Attempt int // 0-based
	Err     error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("attempt %d on %s: %v", e.Attempt+1, e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// StorageError is a failure inside one export backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError names the middleware that rejected or failed a record.
type PipelineError struct {
	Stage  string
	Record *Record
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
