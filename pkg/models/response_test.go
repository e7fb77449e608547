package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSuccess(t *testing.T) {
	resp := NewSuccess(map[string]any{"value": 1})

	assert.True(t, resp.Success)
	assert.Equal(t, ResponseSuccess, resp.Status)
	assert.Equal(t, resp.Result, resp.Response)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestNewFailure_EmptyCodeFallsBack(t *testing.T) {
	resp := NewFailure("boom", "", nil)

	assert.False(t, resp.Success)
	assert.Equal(t, ResponseError, resp.Status)
	assert.Equal(t, CodeUnknown, resp.ErrorCode)
}

func TestNormalize_BareValue(t *testing.T) {
	resp := Normalize("hello")

	assert.True(t, resp.Success)
	assert.Equal(t, ResponseSuccess, resp.Status)
	assert.Equal(t, "hello", resp.Result)
}

func TestNormalize_MapWithoutContractKeys(t *testing.T) {
	raw := map[string]any{"rows": 3}

	resp := Normalize(raw)
	assert.True(t, resp.Success)
	assert.Equal(t, raw, resp.Result)
}

func TestNormalize_PartialErrorMap(t *testing.T) {
	resp := Normalize(map[string]any{
		"success": false,
		"error":   "upstream rejected",
	})

	require.False(t, resp.Success)
	assert.Equal(t, ResponseError, resp.Status)
	// Missing code is completed so the invariant holds.
	assert.Equal(t, CodeUnknown, resp.ErrorCode)
	assert.Equal(t, "upstream rejected", resp.Error)
}

func TestNormalize_StatusImpliesSuccess(t *testing.T) {
	resp := Normalize(map[string]any{
		"status": "warning",
		"result": "partial",
	})

	assert.True(t, resp.Success)
	assert.Equal(t, ResponseWarning, resp.Status)
	assert.Equal(t, "partial", resp.Result)
}

func TestNormalize_ResponseKeyAliasesResult(t *testing.T) {
	resp := Normalize(map[string]any{
		"success":  true,
		"response": "legacy",
	})

	assert.Equal(t, "legacy", resp.Result)
	assert.Equal(t, "legacy", resp.Response)
}

func TestNormalize_ConformantPassesThrough(t *testing.T) {
	in := NewWarning("r", "w", "W_CODE", nil)
	out := Normalize(in)

	assert.Same(t, in, out)
	assert.Equal(t, ResponseWarning, out.Status)
}

func TestResponse_View(t *testing.T) {
	resp := NewSuccess(map[string]any{"greeting": "hello"})
	view := resp.View()

	assert.Equal(t, true, view["success"])
	assert.Equal(t, "success", view["status"])
	assert.Equal(t, resp.Result, view["result"])
	assert.Equal(t, resp.Result, view["response"])
	assert.NotContains(t, view, "error")
}

func TestResponse_View_Failure(t *testing.T) {
	resp := NewFailure("boom", CodeExecution, map[string]any{"attempt": 1})
	view := resp.View()

	assert.Equal(t, false, view["success"])
	assert.Equal(t, "boom", view["error"])
	assert.Equal(t, CodeExecution, view["error_code"])
	assert.Equal(t, map[string]any{"attempt": 1}, view["error_details"])
	assert.NotContains(t, view, "result")
}
