package registry

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateInput checks a resolved task input against a capability's JSON
// schema. A nil schema accepts anything. Violations come back as one error
// listing every failed constraint.
func ValidateInput(schema map[string]any, input map[string]any) error {
	if schema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(input),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed to run: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msg := "input does not satisfy schema:"
	for _, desc := range result.Errors() {
		msg += " " + desc.String() + ";"
	}

	return fmt.Errorf("%s", msg)
}
