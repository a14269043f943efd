// Package llm is the boundary to the hosted language model.
package llm

import (
	"context"
	"errors"
)

// ErrMalformedOutput reports model output that does not follow the requested
// field layout.
var ErrMalformedOutput = errors.New("malformed model output")

// LanguageModel completes a single prompt.
type LanguageModel interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to LanguageModel.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Infer(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
