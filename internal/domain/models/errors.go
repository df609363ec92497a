package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies an upstream fetch failure. Adapters tag every error
// they return so the orchestrator never has to inspect message strings.
type ErrorKind int

const (
	// ErrTransient covers network failures and HTTP 5xx; retried a bounded
	// number of times with the same request.
	ErrTransient ErrorKind = iota
	// ErrRateLimited means the upstream throttled us; retried after a backoff.
	ErrRateLimited
	// ErrNoData is benign: the symbol has no data in the requested window.
	ErrNoData
	// ErrFatal means bad credentials, bad symbol or an unrecoverable response
	// shape; the symbol is abandoned, the batch continues.
	ErrFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrRateLimited:
		return "rate_limited"
	case ErrNoData:
		return "no_data"
	case ErrFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// FetchError is the typed error every source adapter returns. RetryAfter is
// an optional hint for how long to back off before retrying (TwelveData's
// per-minute credit window, HTTP Retry-After, ...).
type FetchError struct {
	Source     string
	Kind       ErrorKind
	Msg        string
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf extracts the error kind. Untyped errors (transport failures bubbled
// up from the HTTP client) count as transient.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ErrTransient
}

// RetryAfterOf returns the backoff hint carried by err, or zero.
func RetryAfterOf(err error) time.Duration {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.RetryAfter
	}
	return 0
}
