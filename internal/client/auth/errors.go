package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshFailed matches every failure to obtain a fresh access token.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrSessionExpired means the user has to log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnavailable means the refresh endpoint could not be reached.
	ErrUnavailable = errors.New("refresh endpoint unavailable")

	// ErrNoRefreshToken is returned when a refresh is needed but none is stored.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrMalformedResponse is returned for a 2xx refresh answer without an
	// access token.
	ErrMalformedResponse = errors.New("malformed refresh response")
)

// FailureKind classifies a RefreshError.
type FailureKind int

const (
	// FailureRejected: the refresh endpoint answered with a non-2xx status.
	FailureRejected FailureKind = iota + 1
	// FailureTransport: no answer, including timeouts.
	FailureTransport
	// FailureMalformed: a 2xx answer that could not be used.
	FailureMalformed
	// FailureNoToken: there was no refresh token to send.
	FailureNoToken
)

func (k FailureKind) String() string {
	switch k {
	case FailureRejected:
		return "rejected"
	case FailureTransport:
		return "transport"
	case FailureMalformed:
		return "malformed"
	case FailureNoToken:
		return "no_token"
	default:
		return "unknown"
	}
}

// RefreshError describes why a refresh did not produce a token.
type RefreshError struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *RefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token refresh failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token refresh failed (%s): %v", e.Kind, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool {
	switch target {
	case ErrRefreshFailed:
		return true
	case ErrSessionExpired:
		return e.Kind == FailureRejected || e.Kind == FailureNoToken
	case ErrUnavailable:
		return e.Kind == FailureTransport
	default:
		return false
	}
}
