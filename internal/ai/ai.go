package ai

import (
	"context"

	"github.com/pkg/errors"
)

var ErrEmptyResponse = errors.New("solver returned no choices")

type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Solver turns a planning prompt into raw model text. Implementations do not retry.
type Solver interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
