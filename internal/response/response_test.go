package response

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategicLikeSchema = Object(
	Arr("angles"),
	Num("scoreRentabilite"),
	Obj("vocabulaireSectoriel",
		Arr("termesMetier"),
		Arr("expressionsClients"),
	),
	ArrOf("painPoints",
		Str("probleme"),
		Arr("solutions"),
	),
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"single line fence", "```json{\"a\":1}```", `{"a":1}`},
		{"tag and body on one line", "```json {\"a\":1}\n```", `{"a":1}`},
		{"only trailing fence", "{\"a\":1}\n```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParse_FencedMissingScalarGetsDefault(t *testing.T) {
	schema := Object(
		Arr("angles"),
		Num("scoreRentabilite").WithDefault(float64(50)),
	)

	got, err := Parse("strategic", "```json\n{\"angles\": []}\n```", schema, Lenient)
	require.NoError(t, err)

	want := map[string]any{
		"angles":           []any{},
		"scoreRentabilite": float64(50),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_RoundTripWithRemovedKeys(t *testing.T) {
	original := map[string]any{
		"angles":           []any{"prix", "urgence"},
		"scoreRentabilite": float64(72),
		"vocabulaireSectoriel": map[string]any{
			"termesMetier":       []any{"siphon", "colonne"},
			"expressionsClients": []any{"fuite d'eau"},
		},
		"painPoints": []any{
			map[string]any{"probleme": "fuite", "solutions": []any{"intervention"}},
		},
		"extra": "kept",
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	got, err := Parse("strategic", "```json\n"+string(data)+"\n```", strategicLikeSchema, Lenient)
	require.NoError(t, err)
	if diff := cmp.Diff(original, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Remove declared keys and expect defaults in their place.
	trimmed := map[string]any{
		"scoreRentabilite": float64(72),
		"painPoints": []any{
			map[string]any{"probleme": "fuite"},
		},
	}
	data, err = json.Marshal(trimmed)
	require.NoError(t, err)

	got, err = Parse("strategic", string(data), strategicLikeSchema, Lenient)
	require.NoError(t, err)

	want := map[string]any{
		"angles":           []any{},
		"scoreRentabilite": float64(72),
		"vocabulaireSectoriel": map[string]any{
			"termesMetier":       []any{},
			"expressionsClients": []any{},
		},
		"painPoints": []any{
			map[string]any{"probleme": "fuite", "solutions": []any{}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaulted mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_WrongShapeReplacedUnderLenient(t *testing.T) {
	raw := `{"angles": "not a list", "vocabulaireSectoriel": null, "scoreRentabilite": "64"}`

	got, err := Parse("strategic", raw, strategicLikeSchema, Lenient)
	require.NoError(t, err)

	assert.Equal(t, []any{}, got["angles"])
	assert.Equal(t, float64(64), got["scoreRentabilite"], "numeric strings are coerced")
	require.IsType(t, map[string]any{}, got["vocabulaireSectoriel"])
	assert.Equal(t, []any{}, got["vocabulaireSectoriel"].(map[string]any)["termesMetier"])
}

func TestParse_MalformedKeepsRawText(t *testing.T) {
	raw := "Sorry, I cannot help with that."

	_, err := Parse("cluster", raw, strategicLikeSchema, Lenient)
	require.Error(t, err)

	var mr *MalformedResponse
	require.True(t, errors.As(err, &mr))
	assert.Equal(t, "cluster", mr.Stage)
	assert.Equal(t, raw, mr.Raw)
}

func TestParse_NonObjectIsMalformed(t *testing.T) {
	for _, raw := range []string{`[1,2,3]`, `"text"`, `42`, "", "```json\n```", `{"a":1} {"b":2}`} {
		_, err := Parse("content", raw, Schema{}, Lenient)
		var mr *MalformedResponse
		assert.True(t, errors.As(err, &mr), "raw %q should be malformed, got %v", raw, err)
	}
}

func TestParse_StrictRejectsMissingRequired(t *testing.T) {
	schema := Object(
		Arr("angles").Require(),
		Num("scoreRentabilite").Require(),
		Arr("optionnel"),
	)

	_, err := Parse("strategic", `{"angles": []}`, schema, Strict)
	require.Error(t, err)

	var sv *SchemaViolation
	require.True(t, errors.As(err, &sv))
	assert.Equal(t, "strategic", sv.Stage)
	require.Len(t, sv.Problems, 1)
	assert.Contains(t, sv.Problems[0], "scoreRentabilite")
}

func TestParse_StrictRejectsWrongShape(t *testing.T) {
	_, err := Parse("strategic", `{"angles": {}, "painPoints": [{"solutions": "x"}]}`, strategicLikeSchema, Strict)

	var sv *SchemaViolation
	require.True(t, errors.As(err, &sv))
	assert.Len(t, sv.Problems, 2)
	assert.Contains(t, sv.Error(), "painPoints[0].solutions")
}

func TestParse_StrictStillDefaultsOptionalFields(t *testing.T) {
	got, err := Parse("strategic", `{"angles": ["a"]}`, strategicLikeSchema, Strict)
	require.NoError(t, err)
	assert.Equal(t, float64(0), got["scoreRentabilite"])
}

func TestDecode_Typed(t *testing.T) {
	type record struct {
		Angles           []string `json:"angles"`
		ScoreRentabilite int      `json:"scoreRentabilite"`
		Vocabulaire      struct {
			TermesMetier []string `json:"termesMetier"`
		} `json:"vocabulaireSectoriel"`
	}

	got, err := Decode[record]("strategic", "```json\n{\"angles\": [\"urgence\"]}\n```", strategicLikeSchema, Lenient)
	require.NoError(t, err)
	assert.Equal(t, []string{"urgence"}, got.Angles)
	assert.Equal(t, 0, got.ScoreRentabilite)
	assert.NotNil(t, got.Vocabulaire.TermesMetier)
	assert.Empty(t, got.Vocabulaire.TermesMetier)
}

func TestDecode_UndeclaredTypeMismatchIsMalformed(t *testing.T) {
	type record struct {
		Count int `json:"count"`
	}
	_, err := Decode[record]("stage", `{"count": "many"}`, Schema{}, Lenient)

	var mr *MalformedResponse
	require.True(t, errors.As(err, &mr))
	assert.Equal(t, `{"count": "many"}`, mr.Raw)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Lenient, p)

	_, err = ParsePolicy("paranoid")
	assert.Error(t, err)
}

func TestParse_LenientFixesArrayElements(t *testing.T) {
	schema := Object(
		Strs("angles"),
		ArrOfKind("mois", KindNumber),
		ArrOf("painPoints", Str("probleme")),
	)
	raw := `{"angles": [{"titre": "x"}, 3, true, null, "prix"], "mois": ["2", "bientôt", 4], "painPoints": ["fuite", {"probleme": 7}]}`

	got, err := Parse("strategic", raw, schema, Lenient)
	require.NoError(t, err)

	want := map[string]any{
		"angles":     []any{"titre: x", "3", "true", "prix"},
		"mois":       []any{float64(2), float64(4)},
		"painPoints": []any{map[string]any{"probleme": "7"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_StrictReportsArrayElements(t *testing.T) {
	schema := Object(Strs("angles"), ArrOf("painPoints", Str("probleme")))

	_, err := Parse("strategic", `{"angles": ["a", {"titre": "x"}], "painPoints": ["fuite"]}`, schema, Strict)

	var sv *SchemaViolation
	require.True(t, errors.As(err, &sv))
	assert.Equal(t, []string{
		"angles[1]: want string, got object",
		"painPoints[0]: want object, got string",
	}, sv.Problems)
}

func TestDecode_StringFieldKeepsObjectText(t *testing.T) {
	type record struct {
		Avatar string   `json:"avatar"`
		Angles []string `json:"angles"`
	}
	schema := Object(Str("avatar"), Strs("angles"))

	got, err := Decode[record]("strategic", `{"avatar": {"nom": "Marc", "age": 45}, "angles": [{"titre": "x"}]}`, schema, Lenient)
	require.NoError(t, err)
	assert.Equal(t, "age: 45; nom: Marc", got.Avatar)
	assert.Equal(t, []string{"titre: x"}, got.Angles)
}
