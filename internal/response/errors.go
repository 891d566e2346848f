package response

import (
	"fmt"
	"strings"
)

// MalformedResponse reports model output that could not be decoded as a JSON
// object. Raw holds the text exactly as the generator returned it.
type MalformedResponse struct {
	Stage string
	Raw   string
	Err   error
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("response: stage %q: malformed response: %v", e.Stage, e.Err)
}

func (e *MalformedResponse) Unwrap() error { return e.Err }

// SchemaViolation is returned under the Strict policy when required fields are
// missing or declared fields have the wrong shape.
type SchemaViolation struct {
	Stage    string
	Problems []string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("response: stage %q: schema violation: %s", e.Stage, strings.Join(e.Problems, "; "))
}
