package login

import (
	"errors"
	"fmt"
)

// Kind classifies why a login attempt failed
type Kind int

const (
	KindMalformedRedirectURL Kind = iota + 1
	KindProviderDenied
	KindMissingExpectedField
	KindExchangeFailed
)

func (k Kind) String() string {
	switch k {
	case KindMalformedRedirectURL:
		return "malformed redirect url"
	case KindProviderDenied:
		return "provider denied"
	case KindMissingExpectedField:
		return "missing expected field"
	case KindExchangeFailed:
		return "code exchange failed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against a *Error of the same kind
var (
	ErrMalformedRedirectURL = &Error{Kind: KindMalformedRedirectURL}
	ErrProviderDenied       = &Error{Kind: KindProviderDenied}
	ErrMissingExpectedField = &Error{Kind: KindMissingExpectedField}
	ErrExchangeFailed       = &Error{Kind: KindExchangeFailed}
)

// Error is the failure side of an Outcome. It carries whatever the redirect
// gave us so the caller can inspect it.
type Error struct {
	Kind   Kind
	Params Params
	RawURL string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind only
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or 0 if err is not a login error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
