// Package generator defines the Text Generator boundary: a black-box
// text-in/text-out call to a hosted language model, plus a grounded variant
// that also reports the web sources the model consulted.
package generator

import (
	"context"
	"fmt"
)

// TextGenerator returns model text for a system prompt and a user prompt.
// The returned text is untrusted and carries no schema guarantee.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GroundedGenerator is a TextGenerator that can also answer with web search
// grounding.
type GroundedGenerator interface {
	TextGenerator
	GenerateGrounded(ctx context.Context, systemPrompt, userPrompt string) (*GroundedText, error)
}

// Citation is one web source used to ground a response.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// GroundedText is the result of a grounded generation.
type GroundedText struct {
	Text          string
	Citations     []Citation
	SearchQueries []string
}

// TransportError wraps a network or API failure from the model provider.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("generator: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Func adapts a plain function to TextGenerator.
type Func func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
