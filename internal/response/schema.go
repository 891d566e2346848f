package response

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Kind is the JSON shape expected for a field.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Policy controls what happens when model output does not match its schema.
type Policy int

const (
	// Lenient replaces absent or mis-shaped fields with their defaults.
	Lenient Policy = iota
	// Strict fails on missing required fields and on mis-shaped fields.
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// ParsePolicy maps "strict" and "lenient" (case-insensitive, empty means
// lenient) to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("response: unknown policy %q", s)
	}
}

// Field declares one expected key of a JSON object.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Default is used for absent scalar fields. Zero values apply when nil.
	// Numbers should be given as float64 to match decoded JSON.
	Default any

	// Fields is the nested schema of a KindObject field.
	Fields []Field

	// Items is the schema applied to object elements of a KindArray field.
	Items *Schema

	// Elem is the shape of scalar elements of a KindArray field.
	Elem *Field
}

// Schema lists the fields a stage expects in its top-level JSON object.
type Schema struct {
	Fields []Field
}

// Object is a convenience constructor for a schema.
func Object(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// Str, Num, Bool, Arr and Obj build fields of the matching kind.
func Str(name string) Field { return Field{Name: name, Kind: KindString} }
func Num(name string) Field { return Field{Name: name, Kind: KindNumber} }
func Bool(name string) Field { return Field{Name: name, Kind: KindBool} }
func Arr(name string) Field { return Field{Name: name, Kind: KindArray} }
func Obj(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindObject, Fields: fields}
}

// ArrOf declares an array whose object elements follow the given fields.
func ArrOf(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindArray, Items: &Schema{Fields: fields}}
}

// ArrOfKind declares an array of scalars of the given kind.
func ArrOfKind(name string, kind Kind) Field {
	return Field{Name: name, Kind: KindArray, Elem: &Field{Kind: kind}}
}

// Strs declares an array of strings.
func Strs(name string) Field { return ArrOfKind(name, KindString) }

// Require returns a copy of f marked as required.
func (f Field) Require() Field {
	f.Required = true
	return f
}

// WithDefault returns a copy of f with the given scalar default.
func (f Field) WithDefault(v any) Field {
	f.Default = v
	return f
}

// matches reports whether v already has the field's shape.
func (f Field) matches(v any) bool {
	switch f.Kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindArray:
		_, ok := v.([]any)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

// defaultValue builds a fresh default for the field. Objects are normalized
// against their nested schema so that nested collections are never nil.
func (f Field) defaultValue() any {
	switch f.Kind {
	case KindArray:
		return []any{}
	case KindObject:
		m := map[string]any{}
		Schema{Fields: f.Fields}.normalize(m, Lenient, "", nil)
		return m
	}
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case KindString:
		return ""
	case KindNumber:
		return float64(0)
	case KindBool:
		return false
	}
	return nil
}

// normalize fills defaults in obj in place. Under Strict, problems are
// appended instead of substituting.
func (s Schema) normalize(obj map[string]any, policy Policy, path string, problems *[]string) {
	for _, f := range s.Fields {
		key := f.Name
		if path != "" {
			key = path + "." + f.Name
		}

		v, ok := obj[f.Name]
		if !ok || v == nil {
			if policy == Strict && f.Required {
				*problems = append(*problems, fmt.Sprintf("%s: missing required %s", key, f.Kind))
				continue
			}
			obj[f.Name] = f.defaultValue()
			continue
		}

		if !f.matches(v) {
			if coerced, ok := coerce(f.Kind, v); ok && policy == Lenient {
				obj[f.Name] = coerced
				continue
			}
			if policy == Strict {
				*problems = append(*problems, fmt.Sprintf("%s: want %s, got %s", key, f.Kind, shapeOf(v)))
				continue
			}
			obj[f.Name] = f.defaultValue()
			continue
		}

		switch f.Kind {
		case KindObject:
			if len(f.Fields) > 0 {
				Schema{Fields: f.Fields}.normalize(v.(map[string]any), policy, key, problems)
			}
		case KindArray:
			obj[f.Name] = f.normalizeItems(v.([]any), policy, key, problems)
		}
	}
}

// normalizeItems checks array elements against Items or Elem. Under Lenient,
// elements that cannot be coerced are dropped.
func (f Field) normalizeItems(items []any, policy Policy, key string, problems *[]string) []any {
	if f.Items == nil && f.Elem == nil {
		return items
	}
	want := KindObject
	if f.Elem != nil {
		want = f.Elem.Kind
	}

	kept := make([]any, 0, len(items))
	for i, el := range items {
		at := fmt.Sprintf("%s[%d]", key, i)
		if f.Items != nil {
			if m, ok := el.(map[string]any); ok {
				f.Items.normalize(m, policy, at, problems)
				kept = append(kept, m)
				continue
			}
		} else if f.Elem.matches(el) {
			kept = append(kept, el)
			continue
		}

		if policy == Strict {
			*problems = append(*problems, fmt.Sprintf("%s: want %s, got %s", at, want, shapeOf(el)))
			continue
		}
		if coerced, ok := coerce(want, el); ok {
			kept = append(kept, coerced)
		}
	}
	return kept
}

// coerce converts numeric strings to numbers and flattens any other value
// into text where a string is expected.
func coerce(kind Kind, v any) (any, bool) {
	switch kind {
	case KindNumber:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, false
		}
		return n, true
	case KindString:
		if v == nil {
			return nil, false
		}
		if text := flatten(v); text != "" {
			return text, true
		}
	}
	return nil, false
}

// flatten renders a decoded JSON value as text. Object keys are sorted and
// written as "key: value" pairs separated by "; ".
func flatten(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, el := range v {
			if s := flatten(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		parts := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			if s := flatten(v[k]); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func shapeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
