// Package plan consumes the dynamic plan schema produced by an external
// planner and materializes it into an executable workflow graph.
package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/taskline/taskline/pkg/models"
	"github.com/taskline/taskline/pkg/registry"
)

// Step is one planner-produced step. Outputs is documentation only; the
// template resolver addresses outputs by path, never by this list.
type Step struct {
	StepID      string              `json:"step_id"     validate:"required"`
	Description string              `json:"description"`
	Type        string              `json:"type"        validate:"required,oneof=tool handler"`
	Name        string              `json:"name"        validate:"required"`
	Inputs      map[string]any      `json:"inputs,omitempty"`
	Outputs     []string            `json:"outputs,omitempty"`
	DependsOn   []models.Dependency `json:"depends_on,omitempty"`

	MaxRetries        *int     `json:"max_retries,omitempty"`
	RetryDelaySeconds *float64 `json:"retry_delay_seconds,omitempty"`
}

// Plan is an ordered sequence of steps plus naming metadata.
type Plan struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	Name       string `json:"name"  validate:"required"`
	Steps      []Step `json:"steps" validate:"required,min=1,dive"`
}

// Defaults supplies task fields the plan leaves unset. Values come from
// the caller's configuration surface; the engine reads no config itself.
type Defaults struct {
	MaxRetries int
	RetryDelay time.Duration
}

// SchemaError lists every schema violation of a refused plan document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "plan does not satisfy schema: " + strings.Join(e.Violations, "; ")
}

// Parse validates raw JSON against the plan schema and unmarshals it.
// Anything malformed is refused with the exact violations.
func Parse(data []byte) (*Plan, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(Document),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("plan is not valid JSON: %w", err)
	}

	if !result.Valid() {
		schemaErr := &SchemaError{}
		for _, desc := range result.Errors() {
			schemaErr.Violations = append(schemaErr.Violations, desc.String())
		}

		return nil, schemaErr
	}

	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("plan failed validation: %w", err)
	}

	return &p, nil
}

// Materialize builds the workflow graph: one task per step, in plan
// order. When a registry is supplied, dispatch names are checked here so
// unknown tools and handlers are rejected before anything runs. All graph
// construction errors (duplicate ids, unknown dependencies, cycles,
// forward references) surface from here and are fatal to building the
// workflow.
func (p *Plan) Materialize(reg *registry.Registry, defaults Defaults) (*models.Workflow, error) {
	workflowID := p.WorkflowID
	if workflowID == "" {
		workflowID = uuid.New().String()
	}

	wf := models.NewWorkflow(workflowID, p.Name)

	for _, step := range p.Steps {
		task := models.NewTask(step.StepID, step.Name)
		task.InputData = step.Inputs
		task.DependsOn = step.DependsOn
		task.MaxRetries = defaults.MaxRetries
		task.RetryDelay = defaults.RetryDelay

		if step.MaxRetries != nil {
			task.MaxRetries = *step.MaxRetries
		}

		if step.RetryDelaySeconds != nil {
			task.RetryDelay = time.Duration(*step.RetryDelaySeconds * float64(time.Second))
		}

		switch step.Type {
		case "tool":
			task.ToolName = step.Name
		case "handler":
			task.HandlerName = step.Name
		}

		if reg != nil {
			if err := reg.ValidateTask(task); err != nil {
				return nil, fmt.Errorf("step %q: %w", step.StepID, err)
			}
		}

		if err := wf.AddTask(task); err != nil {
			return nil, err
		}
	}

	return wf, nil
}
