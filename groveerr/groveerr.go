// Package groveerr defines the error taxonomy shared across the Compound
// Learning Gate and the fail-open helpers that keep recoverable failures
// from propagating out of the core.
package groveerr

import (
	"errors"
	"fmt"
	"log/slog"
)

// Kind tags an error with the taxonomy described in the design docs. Kinds
// drive how the caller is expected to react, not how the error is displayed.
type Kind int

const (
	// KindSchema means a candidate or an on-disk record failed validation.
	// Always surfaced as a typed rejection, never aborts a batch.
	KindSchema Kind = iota
	// KindBackend means an I/O, parse, or backend-specific failure. Fail-open.
	KindBackend
	// KindConfig means a malformed configuration value.
	KindConfig
	// KindStorage means a session-store read/write failure. Fail-open.
	KindStorage
	// KindSerde means a JSON/TOML parse error.
	KindSerde
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindBackend:
		return "backend"
	case KindConfig:
		return "config"
	case KindStorage:
		return "storage"
	case KindSerde:
		return "serde"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error wrapping an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a Kind-tagged error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var ge *Error
		if !errors.As(err, &ge) {
			return false
		}
		if ge.Kind == kind {
			return true
		}
		err = ge.Err
	}
	return false
}

// Backend wraps err as a KindBackend error for the named operation.
func Backend(op string, err error) error { return New(KindBackend, op, err) }

// Storage wraps err as a KindStorage error for the named operation.
func Storage(op string, err error) error { return New(KindStorage, op, err) }

// Serde wraps err as a KindSerde error for the named operation.
func Serde(op string, err error) error { return New(KindSerde, op, err) }

// FailOpenLog logs a recoverable error at warn level and swallows it. Call
// sites use this at the fail-open boundary described in the design notes:
// the core never lets a Backend/Storage/Serde error escape uncaught.
func FailOpenLog(logger *slog.Logger, op string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("recoverable failure, degrading to safe default", "op", op, "error", err)
}
