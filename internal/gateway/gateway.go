// Package gateway abstracts the generative model behind a single Generate
// call. The core performs no retries; provider failures surface as a
// GatewayError and leave session history untouched.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/promptlabs/internal/domain"
)

// Model sends an assembled prompt to a generative model and returns the
// reply text.
type Model interface {
	Generate(ctx context.Context, system string, turns []domain.Turn) (string, error)
}

// Error wraps any model provider failure, including timeouts.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("model gateway: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsGatewayError reports whether err is a gateway failure.
func IsGatewayError(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}
