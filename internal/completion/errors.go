package completion

import (
	"errors"
	"fmt"
)

// Kind classifies a failed completion call.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindAuth
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

var (
	ErrAuth      = errors.New("completion: authentication failed")
	ErrRateLimit = errors.New("completion: rate limited")
	ErrTransport = errors.New("completion: transport failure")
)

// APIError is returned by Complete for every runtime failure. Status is the upstream
// HTTP status when one was received, zero otherwise.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("completion %s error (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("completion %s error: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches the package sentinels by kind.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrRateLimit:
		return e.Kind == KindRateLimit
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// ConfigError reports a client that cannot be built from its configuration.
// It is a startup failure, distinct from an upstream auth rejection.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("completion: %s not set", e.Field)
}
