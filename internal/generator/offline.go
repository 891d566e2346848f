package generator

import "context"

// Compile-time interface check.
var _ GroundedGenerator = Offline{}

// Offline answers every prompt with an empty JSON object. Combined with the
// lenient response policy it yields a fully defaulted skeleton report, which
// is useful for dry runs without an API key.
type Offline struct{}

// Generate returns "{}" unless ctx is done.
func (Offline) Generate(ctx context.Context, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Op: "offline", Err: err}
	}
	return "{}", nil
}

// GenerateGrounded returns "{}" with no citations.
func (o Offline) GenerateGrounded(ctx context.Context, system, user string) (*GroundedText, error) {
	text, err := o.Generate(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return &GroundedText{Text: text}, nil
}
