package advice

import (
	"context"
	"errors"
)

var (
	// ErrServiceUnavailable reports that the advice backend could not be
	// reached or refused the request.
	ErrServiceUnavailable = errors.New("advice service unavailable")
	// ErrInvalidResponse reports a reply that carried no usable text.
	ErrInvalidResponse = errors.New("invalid advice response")
)

// Generator sends a prompt to a generative text service.
type Generator interface {
	GenerateAdvice(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) GenerateAdvice(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Disabled is used when no provider is configured; every call fails with
// ErrServiceUnavailable.
type Disabled struct{}

func (Disabled) GenerateAdvice(context.Context, string) (string, error) {
	return "", errors.Join(ErrServiceUnavailable, errors.New("no advice provider configured"))
}
