package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskline/taskline/pkg/models"
)

const validPlan = `{
	"name": "fetch and report",
	"steps": [
		{
			"step_id": "fetch",
			"type": "tool",
			"name": "http_request",
			"inputs": {"url": "https://example.com/data"},
			"max_retries": 2,
			"retry_delay_seconds": 0.5
		},
		{
			"step_id": "report",
			"type": "handler",
			"name": "log",
			"inputs": {"message": "${fetch.result.body}"},
			"depends_on": ["fetch"]
		}
	]
}`

func TestParse_ValidPlan(t *testing.T) {
	p, err := Parse([]byte(validPlan))
	require.NoError(t, err)

	assert.Equal(t, "fetch and report", p.Name)
	require.Len(t, p.Steps, 2)

	fetch := p.Steps[0]
	assert.Equal(t, "fetch", fetch.StepID)
	assert.Equal(t, "tool", fetch.Type)
	require.NotNil(t, fetch.MaxRetries)
	assert.Equal(t, 2, *fetch.MaxRetries)
	require.NotNil(t, fetch.RetryDelaySeconds)
	assert.InDelta(t, 0.5, *fetch.RetryDelaySeconds, 0.001)

	report := p.Steps[1]
	require.Len(t, report.DependsOn, 1)
	assert.Equal(t, models.Dependency{TaskID: "fetch"}, report.DependsOn[0])
}

func TestParse_DependencyObjectForm(t *testing.T) {
	p, err := Parse([]byte(`{
		"name": "tolerant",
		"steps": [
			{"step_id": "a", "type": "tool", "name": "http_request"},
			{
				"step_id": "b",
				"type": "handler",
				"name": "log",
				"depends_on": [{"task_id": "a", "tolerate_failure": true}]
			}
		]
	}`))
	require.NoError(t, err)

	require.Len(t, p.Steps[1].DependsOn, 1)
	assert.True(t, p.Steps[1].DependsOn[0].TolerateFailure)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParse_SchemaViolationsAreListed(t *testing.T) {
	// Missing name, step missing type.
	_, err := Parse([]byte(`{
		"steps": [{"step_id": "a", "name": "http_request"}]
	}`))
	require.Error(t, err)

	var schemaErr *SchemaError

	require.ErrorAs(t, err, &schemaErr)
	assert.NotEmpty(t, schemaErr.Violations)
}

func TestParse_RejectsUnknownType(t *testing.T) {
	_, err := Parse([]byte(`{
		"name": "bad",
		"steps": [{"step_id": "a", "type": "widget", "name": "x"}]
	}`))

	var schemaErr *SchemaError

	require.ErrorAs(t, err, &schemaErr)
}

func TestParse_NoRepair(t *testing.T) {
	// A malformed document is refused outright, never patched up.
	_, err := Parse([]byte(`{"name": "empty", "steps": []}`))
	assert.Error(t, err)
}

func TestMaterialize(t *testing.T) {
	p, err := Parse([]byte(validPlan))
	require.NoError(t, err)

	wf, err := p.Materialize(nil, Defaults{MaxRetries: 1, RetryDelay: time.Second})
	require.NoError(t, err)

	assert.NotEmpty(t, wf.ID)
	assert.Equal(t, "fetch and report", wf.Name)
	assert.Equal(t, 2, wf.Len())

	fetch, ok := wf.Task("fetch")
	require.True(t, ok)
	assert.Equal(t, "http_request", fetch.ToolName)
	assert.Empty(t, fetch.HandlerName)
	// Step overrides beat defaults.
	assert.Equal(t, 2, fetch.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, fetch.RetryDelay)

	report, ok := wf.Task("report")
	require.True(t, ok)
	assert.Equal(t, "log", report.HandlerName)
	// Defaults fill unset fields.
	assert.Equal(t, 1, report.MaxRetries)
	assert.Equal(t, time.Second, report.RetryDelay)
}

func TestMaterialize_KeepsWorkflowID(t *testing.T) {
	p, err := Parse([]byte(`{
		"workflow_id": "wf-42",
		"name": "named",
		"steps": [{"step_id": "a", "type": "tool", "name": "http_request"}]
	}`))
	require.NoError(t, err)

	wf, err := p.Materialize(nil, Defaults{})
	require.NoError(t, err)
	assert.Equal(t, "wf-42", wf.ID)
}

func TestMaterialize_GraphErrorsSurface(t *testing.T) {
	p, err := Parse([]byte(`{
		"name": "broken",
		"steps": [
			{"step_id": "b", "type": "tool", "name": "http_request", "depends_on": ["a"]}
		]
	}`))
	require.NoError(t, err)

	_, err = p.Materialize(nil, Defaults{})
	assert.ErrorIs(t, err, models.ErrUnknownDependency)
}
