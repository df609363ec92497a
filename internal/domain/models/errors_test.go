package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	fe := &FetchError{Source: "binance", Kind: ErrRateLimited, Msg: "throttled"}
	if KindOf(fe) != ErrRateLimited {
		t.Fatalf("direct kind lost")
	}
	wrapped := fmt.Errorf("fetch page: %w", fe)
	if KindOf(wrapped) != ErrRateLimited {
		t.Fatalf("kind must survive wrapping")
	}
	if KindOf(errors.New("plain")) != ErrTransient {
		t.Fatalf("untyped errors default to transient")
	}
}

func TestRetryAfterOf(t *testing.T) {
	fe := &FetchError{Source: "twelvedata", Kind: ErrRateLimited, RetryAfter: 58 * time.Second}
	if RetryAfterOf(fmt.Errorf("wrap: %w", fe)) != 58*time.Second {
		t.Fatalf("retry hint must survive wrapping")
	}
	if RetryAfterOf(errors.New("plain")) != 0 {
		t.Fatalf("untyped errors carry no hint")
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	fe := &FetchError{Source: "oanda", Kind: ErrTransient, Msg: "request failed", Err: cause}
	if !errors.Is(fe, cause) {
		t.Fatalf("cause must be reachable through Unwrap")
	}
	if fe.Error() != "oanda: request failed: connection reset" {
		t.Fatalf("unexpected message: %q", fe.Error())
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		ErrTransient:   "transient",
		ErrRateLimited: "rate_limited",
		ErrNoData:      "no_data",
		ErrFatal:       "fatal",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Fatalf("%d: expected %q, got %q", kind, want, kind.String())
		}
	}
}
