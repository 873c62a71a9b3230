package storage

import (
	"errors"
	"fmt"

	"github.com/conorfennell/lingoreview/internal/domain"
)

var (
	// ErrScopeMismatch is returned when a backend is asked for a scope it does not own.
	ErrScopeMismatch = errors.New("scope is not served by this store")
	// ErrUnsupportedVersion is returned when a device bucket was written by a newer schema.
	ErrUnsupportedVersion = errors.New("unsupported local schema version")
)

// AdapterError wraps a backend read or write failure. Callers use it to tell
// an outage apart from bad input.
type AdapterError struct {
	Op    string
	Scope domain.Scope
	Err   error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("storage %s for %s: %v", e.Op, e.Scope, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsAdapterError reports whether err or anything it wraps is an AdapterError.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}

func adapterErr(op string, scope domain.Scope, err error) error {
	return &AdapterError{Op: op, Scope: scope, Err: err}
}

func scopeErr(scope domain.Scope, want domain.ScopeKind) error {
	if err := scope.Validate(); err != nil {
		return domain.Invalid("scope", err.Error())
	}
	if scope.Kind != want {
		return fmt.Errorf("%w: %s", ErrScopeMismatch, scope)
	}
	return nil
}
