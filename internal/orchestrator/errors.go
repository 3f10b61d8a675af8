package orchestrator

import (
	"errors"
	"fmt"

	"github.com/ashureev/promptlabs/internal/catalogue"
	"github.com/ashureev/promptlabs/internal/gateway"
)

// ValidationError reports a missing or malformed request field. No state is
// touched before validation passes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a progress store transaction failure. The
// transaction is atomic, so a wrapped failure never leaves partial effects.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("progress store: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err means the challenge or level does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, catalogue.ErrNotFound)
}

// IsGateway reports whether err is a model gateway failure.
func IsGateway(err error) bool {
	return gateway.IsGatewayError(err)
}

// IsPersistence reports whether err is a progress store failure.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
