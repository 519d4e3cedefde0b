package common

import (
	"errors"
	"fmt"
)

// Sentinel errors used to classify failures across the identity and
// notification paths. Callers detect the kind with errors.Is.
var (
	// ErrValidation marks unusable caller input, e.g. a phone number without digits.
	ErrValidation = errors.New("validation error")
	// ErrConfig marks missing or undecryptable settings.
	ErrConfig = errors.New("config error")
	// ErrTransport marks network failures and unexpected HTTP statuses.
	ErrTransport = errors.New("transport error")
	// ErrProtocol marks gateway responses that do not match the expected shape.
	ErrProtocol = errors.New("protocol error")
)

// WrapValidation annotates an error as a validation failure.
func WrapValidation(err error) error {
	return wrap(ErrValidation, err)
}

// WrapConfig annotates an error as a configuration failure.
func WrapConfig(err error) error {
	return wrap(ErrConfig, err)
}

// WrapTransport annotates an error as a transport failure.
func WrapTransport(err error) error {
	return wrap(ErrTransport, err)
}

// WrapProtocol annotates an error as a protocol failure.
func WrapProtocol(err error) error {
	return wrap(ErrProtocol, err)
}

func wrap(kind, err error) error {
	if err == nil {
		return kind
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Kind returns a short label for the error classification, used in logs,
// metrics and status events.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "unknown"
	}
}
