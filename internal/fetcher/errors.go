package fetcher

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed fetch
type ErrorKind int

const (
	NoConnectivity ErrorKind = iota + 1
	Timeout
	HTTPStatus
	Decode
)

func (k ErrorKind) String() string {
	switch k {
	case NoConnectivity:
		return "no connectivity"
	case Timeout:
		return "timeout"
	case HTTPStatus:
		return "http status"
	case Decode:
		return "decode error"
	default:
		return "unknown"
	}
}

var (
	ErrNoConnectivity = errors.New("no connectivity")
	ErrTimeout        = errors.New("request timed out")
	ErrHTTPStatus     = errors.New("unexpected http status")
	ErrDecode         = errors.New("failed to decode response")
)

// FetchError is returned by every failed fetch. errors.Is matches it against
// the sentinel of its kind.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int // set for HTTPStatus
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == HTTPStatus {
		return fmt.Sprintf("fetch failed: %s %d", e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch failed: %s: %v", e.Kind, e.Err)
	}
	return "fetch failed: " + e.Kind.String()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNoConnectivity:
		return e.Kind == NoConnectivity
	case ErrTimeout:
		return e.Kind == Timeout
	case ErrHTTPStatus:
		return e.Kind == HTTPStatus
	case ErrDecode:
		return e.Kind == Decode
	}
	return false
}

// transient reports whether another attempt might succeed
func (e *FetchError) transient() bool {
	switch e.Kind {
	case NoConnectivity, Timeout:
		return true
	case HTTPStatus:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}
