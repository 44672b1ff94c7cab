package requester

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNetwork        = errors.New("network error")
	ErrRequestTimeout = errors.New("request timed out")
	ErrUnparsableJSON = errors.New("could not parse the incoming response as JSON")
	// ErrUnsupportedProtocol is returned before any I/O for URLs that are
	// neither http nor https.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// NetworkError is a transport failure before a full response was received.
type NetworkError struct {
	URL     string
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s: %s", e.URL, e.Message)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// RequestTimeoutError means no full response arrived within the deadline.
type RequestTimeoutError struct {
	URL      string
	Duration time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.Duration)
}

func (e *RequestTimeoutError) Unwrap() error { return ErrRequestTimeout }

// Timeout lets callers treat the error like a net.Error.
func (e *RequestTimeoutError) Timeout() bool { return true }

// UnparsableJSONError carries the raw text of a body that was not valid JSON.
type UnparsableJSONError struct {
	URL        string
	StatusCode int
	More       string
	Err        error
}

func (e *UnparsableJSONError) Error() string {
	return fmt.Sprintf("%s (status %d, %d bytes)", ErrUnparsableJSON, e.StatusCode, len(e.More))
}

func (e *UnparsableJSONError) Unwrap() []error {
	return []error{ErrUnparsableJSON, e.Err}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrRequestTimeout):
		return outcomeTimeout
	case errors.Is(err, ErrUnparsableJSON):
		return outcomeUnparsable
	default:
		return outcomeNetwork
	}
}
