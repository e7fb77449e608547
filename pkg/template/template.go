// Package template resolves ${...} references inside task inputs against
// the outputs and recorded errors of upstream tasks.
//
// A reference token is ${<namespace>.<path>}. The namespace is either a
// task id or the literal "error"; the path is a dot-separated sequence of
// map keys and numeric slice indices. For the error namespace the first
// path segment names the task whose error record is addressed.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ErrorNamespace addresses the error context instead of task outputs.
const ErrorNamespace = "error"

// Token is one parsed ${...} span inside a string value.
type Token struct {
	// Raw is the full span including the ${ } delimiters.
	Raw string
	// Reference is the span content, e.g. "taskA.result.value".
	Reference string
	Namespace string
	Path      []string
	start     int
	end       int
}

// ResolutionError names the exact token that could not be resolved.
type ResolutionError struct {
	Token  string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve reference ${%s}: %s", e.Token, e.Reason)
}

// Tokenize extracts every well-formed ${namespace.path} span from s, in
// order of appearance. Spans without a namespace/path separator are left
// in place untouched (they are not references).
func Tokenize(s string) []Token {
	var tokens []Token

	for i := 0; i < len(s); {
		start := strings.Index(s[i:], "${")
		if start < 0 {
			break
		}

		start += i

		end := strings.Index(s[start:], "}")
		if end < 0 {
			break
		}

		end += start

		ref := s[start+2 : end]
		i = end + 1

		segments := strings.Split(ref, ".")
		if len(segments) < 2 || segments[0] == "" {
			continue
		}

		tokens = append(tokens, Token{
			Raw:       s[start : end+1],
			Reference: ref,
			Namespace: segments[0],
			Path:      segments[1:],
			start:     start,
			end:       end + 1,
		})
	}

	return tokens
}

// ScanValue collects every token reachable from v, descending through
// nested maps and slices. Used at graph construction to enforce
// forward-only wiring before anything runs.
func ScanValue(v any) []Token {
	var tokens []Token

	switch val := v.(type) {
	case string:
		tokens = append(tokens, Tokenize(val)...)
	case map[string]any:
		for _, nested := range val {
			tokens = append(tokens, ScanValue(nested)...)
		}
	case []any:
		for _, nested := range val {
			tokens = append(tokens, ScanValue(nested)...)
		}
	}

	return tokens
}

// OutputFunc returns the output value for a terminal upstream task.
type OutputFunc func(taskID string) (any, bool)

// ErrorFunc returns the error-record view for an upstream task. The engine
// hooks error propagation bookkeeping into this callback.
type ErrorFunc func(taskID string) (map[string]any, bool)

// Resolver substitutes reference tokens using the supplied lookups.
type Resolver struct {
	outputs OutputFunc
	errors  ErrorFunc
}

func NewResolver(outputs OutputFunc, errors ErrorFunc) *Resolver {
	return &Resolver{outputs: outputs, errors: errors}
}

// ResolveInput resolves every value of a task input mapping. The input is
// not mutated; a resolved copy is returned. The first unresolvable token
// aborts resolution with a ResolutionError.
func (r *Resolver) ResolveInput(input map[string]any) (map[string]any, error) {
	if input == nil {
		return nil, nil
	}

	resolved := make(map[string]any, len(input))

	for key, value := range input {
		out, err := r.ResolveValue(value)
		if err != nil {
			return nil, err
		}

		resolved[key] = out
	}

	return resolved, nil
}

// ResolveValue resolves a single value, descending through nested maps and
// slices.
func (r *Resolver) ResolveValue(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return r.resolveString(v)
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, nested := range v {
			resolved, err := r.ResolveValue(nested)
			if err != nil {
				return nil, err
			}

			out[key] = resolved
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, nested := range v {
			resolved, err := r.ResolveValue(nested)
			if err != nil {
				return nil, err
			}

			out[i] = resolved
		}

		return out, nil
	default:
		return value, nil
	}
}

func (r *Resolver) resolveString(s string) (any, error) {
	tokens := Tokenize(s)
	if len(tokens) == 0 {
		return s, nil
	}

	// A string that is exactly one token resolves to the native value.
	if len(tokens) == 1 && tokens[0].start == 0 && tokens[0].end == len(s) {
		return r.resolveToken(tokens[0])
	}

	var sb strings.Builder

	last := 0

	for _, tok := range tokens {
		value, err := r.resolveToken(tok)
		if err != nil {
			return nil, err
		}

		sb.WriteString(s[last:tok.start])
		sb.WriteString(stringify(value))

		last = tok.end
	}

	sb.WriteString(s[last:])

	return sb.String(), nil
}

func (r *Resolver) resolveToken(tok Token) (any, error) {
	if tok.Namespace == ErrorNamespace {
		return r.resolveErrorToken(tok)
	}

	output, ok := r.outputs(tok.Namespace)
	if !ok {
		return nil, &ResolutionError{
			Token:  tok.Reference,
			Reason: fmt.Sprintf("task %q has no terminal output", tok.Namespace),
		}
	}

	return walk(output, tok.Path, tok)
}

func (r *Resolver) resolveErrorToken(tok Token) (any, error) {
	sourceID := tok.Path[0]

	record, ok := r.errors(sourceID)
	if !ok {
		return nil, &ResolutionError{
			Token:  tok.Reference,
			Reason: fmt.Sprintf("no error recorded for task %q", sourceID),
		}
	}

	if len(tok.Path) == 1 {
		return record, nil
	}

	return walk(record, tok.Path[1:], tok)
}

// walk applies path segments to a value: map keys for mappings, numeric
// indices for sequences.
func walk(value any, path []string, tok Token) (any, error) {
	current := value

	for _, segment := range path {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[segment]
			if !ok {
				return nil, &ResolutionError{
					Token:  tok.Reference,
					Reason: fmt.Sprintf("missing field %q", segment),
				}
			}

			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, &ResolutionError{
					Token:  tok.Reference,
					Reason: fmt.Sprintf("invalid index %q for sequence of length %d", segment, len(v)),
				}
			}

			current = v[idx]
		default:
			return nil, &ResolutionError{
				Token:  tok.Reference,
				Reason: fmt.Sprintf("cannot descend into %T with segment %q", current, segment),
			}
		}
	}

	return current, nil
}

// stringify renders an embedded token value into its surrounding string.
// Structured values serialize as compact JSON; scalars print naturally.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
