package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(outputs map[string]any, errs map[string]map[string]any) *Resolver {
	return NewResolver(
		func(taskID string) (any, bool) {
			out, ok := outputs[taskID]

			return out, ok
		},
		func(taskID string) (map[string]any, bool) {
			record, ok := errs[taskID]

			return record, ok
		},
	)
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("prefix ${a.result.value} mid ${error.b.message} suffix")

	require.Len(t, tokens, 2)
	assert.Equal(t, "${a.result.value}", tokens[0].Raw)
	assert.Equal(t, "a", tokens[0].Namespace)
	assert.Equal(t, []string{"result", "value"}, tokens[0].Path)
	assert.Equal(t, ErrorNamespace, tokens[1].Namespace)
	assert.Equal(t, []string{"b", "message"}, tokens[1].Path)
}

func TestTokenize_IgnoresNonReferences(t *testing.T) {
	assert.Empty(t, Tokenize("no tokens here"))
	assert.Empty(t, Tokenize("${single}"))
	assert.Empty(t, Tokenize("${}"))
	assert.Empty(t, Tokenize("${unclosed"))
}

func TestScanValue_Nested(t *testing.T) {
	value := map[string]any{
		"direct": "${a.result.x}",
		"nested": map[string]any{
			"list": []any{"${b.result.y}", 42},
		},
	}

	tokens := ScanValue(value)
	require.Len(t, tokens, 2)

	namespaces := []string{tokens[0].Namespace, tokens[1].Namespace}
	assert.ElementsMatch(t, []string{"a", "b"}, namespaces)
}

func TestResolver_WholeTokenPreservesType(t *testing.T) {
	r := testResolver(map[string]any{
		"a": map[string]any{"result": map[string]any{"count": float64(42)}},
	}, nil)

	resolved, err := r.ResolveValue("${a.result.count}")
	require.NoError(t, err)

	// Exactly-one-token strings keep the native type.
	assert.Equal(t, float64(42), resolved)
}

func TestResolver_EmbeddedTokenStringifies(t *testing.T) {
	r := testResolver(map[string]any{
		"a": map[string]any{"result": map[string]any{
			"count": float64(42),
			"obj":   map[string]any{"k": "v"},
		}},
	}, nil)

	resolved, err := r.ResolveValue("count=${a.result.count} obj=${a.result.obj}")
	require.NoError(t, err)
	assert.Equal(t, `count=42 obj={"k":"v"}`, resolved)
}

func TestResolver_SequenceIndex(t *testing.T) {
	r := testResolver(map[string]any{
		"a": map[string]any{"result": map[string]any{
			"items": []any{"first", "second"},
		}},
	}, nil)

	resolved, err := r.ResolveValue("${a.result.items.1}")
	require.NoError(t, err)
	assert.Equal(t, "second", resolved)
}

func TestResolver_ErrorNamespace(t *testing.T) {
	r := testResolver(nil, map[string]map[string]any{
		"b": {"message": "connection refused", "code": "CONNECTION_ERROR"},
	})

	resolved, err := r.ResolveValue("${error.b.message}")
	require.NoError(t, err)
	assert.Equal(t, "connection refused", resolved)

	// A bare ${error.b} resolves to the whole record.
	record, err := r.ResolveValue("${error.b}")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"message": "connection refused", "code": "CONNECTION_ERROR"}, record)
}

func TestResolver_UnresolvableNamesToken(t *testing.T) {
	r := testResolver(map[string]any{}, map[string]map[string]any{})

	_, err := r.ResolveValue("${ghost.result.x}")
	require.Error(t, err)

	var resErr *ResolutionError

	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "ghost.result.x", resErr.Token)
	assert.Contains(t, err.Error(), "ghost.result.x")
}

func TestResolver_MissingField(t *testing.T) {
	r := testResolver(map[string]any{
		"a": map[string]any{"result": map[string]any{}},
	}, nil)

	_, err := r.ResolveValue("${a.result.missing}")
	require.Error(t, err)

	var resErr *ResolutionError

	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, resErr.Reason, `missing field "missing"`)
}

func TestResolver_ResolveInput(t *testing.T) {
	r := testResolver(map[string]any{
		"a": map[string]any{"result": map[string]any{"greeting": "hello"}},
	}, nil)

	input := map[string]any{
		"message": "${a.result.greeting} world",
		"source":  "${a.result.greeting}",
		"static":  true,
	}

	resolved, err := r.ResolveInput(input)
	require.NoError(t, err)

	assert.Equal(t, "hello world", resolved["message"])
	assert.Equal(t, "hello", resolved["source"])
	assert.Equal(t, true, resolved["static"])

	// Original input is untouched.
	assert.Equal(t, "${a.result.greeting} world", input["message"])
}

func TestResolver_NilInput(t *testing.T) {
	r := testResolver(nil, nil)

	resolved, err := r.ResolveInput(nil)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}
