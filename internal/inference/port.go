// Package inference defines the single call the engine makes to a language
// model and the adapters and middleware that implement it.
package inference

import (
	"context"
	"errors"
)

// Port is the only blocking dependency of the engine.
// Implementations must honour ctx cancellation.
type Port interface {
	CallModel(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PortFunc adapts a function to Port.
type PortFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f PortFunc) CallModel(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// NewPermanentError wraps err so Retry gives up immediately.
func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
