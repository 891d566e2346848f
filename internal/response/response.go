// Package response turns untrusted model text into typed stage records.
//
// Model output carries no schema guarantee: it may be wrapped in Markdown
// code fences, omit fields, or return the wrong shape for a field. Parse
// decodes into a permissive map and normalizes it against a Schema; Decode
// then maps the normalized value onto a Go struct.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	fence        = "```"
	langTagChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_ "
)

// StripFences trims surrounding whitespace and removes a leading code fence
// (with an optional language tag such as "json") and a trailing code fence.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]
		// Drop the language tag up to the end of the opening fence line.
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
			s = s[i+1:]
		} else {
			s = strings.TrimLeft(s, langTagChars)
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// Parse decodes raw model text into a JSON object normalized against schema.
// Text that is not a JSON object yields a *MalformedResponse carrying raw.
// Under Strict, schema problems yield a *SchemaViolation.
func Parse(stage, raw string, schema Schema, policy Policy) (map[string]any, error) {
	body := StripFences(raw)
	if body == "" {
		return nil, &MalformedResponse{Stage: stage, Raw: raw, Err: errors.New("empty response")}
	}

	var v any
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&v); err != nil {
		return nil, &MalformedResponse{Stage: stage, Raw: raw, Err: err}
	}
	if dec.More() {
		return nil, &MalformedResponse{Stage: stage, Raw: raw, Err: errors.New("trailing data after JSON value")}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &MalformedResponse{Stage: stage, Raw: raw, Err: fmt.Errorf("want JSON object, got %s", shapeOf(v))}
	}

	var problems []string
	schema.normalize(obj, policy, "", &problems)
	if len(problems) > 0 {
		return nil, &SchemaViolation{Stage: stage, Problems: problems}
	}
	return obj, nil
}

// Decode parses raw and maps the normalized object onto T.
func Decode[T any](stage, raw string, schema Schema, policy Policy) (*T, error) {
	obj, err := Parse(stage, raw, schema, policy)
	if err != nil {
		return nil, err
	}
	var out T
	if err := Convert(obj, &out); err != nil {
		return nil, &MalformedResponse{Stage: stage, Raw: raw, Err: err}
	}
	return &out, nil
}

// Convert maps a generic JSON value onto dst through a JSON round trip.
func Convert(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("response: marshal: %w", err)
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(dst); err != nil {
		return fmt.Errorf("response: decode: %w", err)
	}
	return nil
}
