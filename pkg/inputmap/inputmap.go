// Package inputmap implements the declarative parameter mapping evaluated
// before each task invocation. A mapping binds target parameter names to
// literal values, payload path references, or formatted compositions, which
// keeps call-site string interpolation out of the engine.
package inputmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/payload"
)

// ResolveContext carries what a mapping may reference: the live payload and
// the execution metadata used for deterministic job naming.
type ResolveContext struct {
	ExecutionID string
	Payload     payload.Payload
}

// Value is one binding in a mapping.
type Value interface {
	Resolve(rc ResolveContext) (any, error)
}

// Mapping binds parameter names to values.
type Mapping map[string]Value

// Resolve evaluates every binding against the context. A referenced payload
// path that does not exist is a graph definition error.
func (m Mapping) Resolve(rc ResolveContext) (map[string]any, error) {
	params := make(map[string]any, len(m))

	for name, value := range m {
		resolved, err := value.Resolve(rc)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}

		params[name] = resolved
	}

	return params, nil
}

// Literal is a fixed JSON-like value.
type Literal struct {
	Value any
}

func (v Literal) Resolve(ResolveContext) (any, error) {
	return v.Value, nil
}

// Path reads a payload path.
type Path struct {
	Path string
}

func (v Path) Resolve(rc ResolveContext) (any, error) {
	value, err := rc.Payload.Get(v.Path)
	if err != nil {
		if errors.Is(err, payload.ErrPathNotFound) {
			return nil, execution.Definitional(fmt.Errorf("input mapping references %s: %w", v.Path, err))
		}

		return nil, execution.Definitional(err)
	}

	return value, nil
}

// ExecutionRef reads a field of the execution metadata. The only supported
// field is "id": job submissions derive their remote name from it, so a
// retried submission lands on the same remote job.
type ExecutionRef struct {
	Field string
}

func (v ExecutionRef) Resolve(rc ResolveContext) (any, error) {
	switch v.Field {
	case "id":
		return rc.ExecutionID, nil
	default:
		return nil, execution.Definitional(fmt.Errorf("unknown execution field %q", v.Field))
	}
}

// Format composes a string from a template with "{}" placeholders, each
// filled by the corresponding argument in order.
type Format struct {
	Template string
	Args     []Value
}

func (v Format) Resolve(rc ResolveContext) (any, error) {
	placeholders := strings.Count(v.Template, "{}")
	if placeholders != len(v.Args) {
		return nil, execution.Definitional(fmt.Errorf(
			"format %q declares %d placeholders but has %d args", v.Template, placeholders, len(v.Args)))
	}

	var builder strings.Builder

	remaining := v.Template

	for _, arg := range v.Args {
		idx := strings.Index(remaining, "{}")
		builder.WriteString(remaining[:idx])

		resolved, err := arg.Resolve(rc)
		if err != nil {
			return nil, err
		}

		builder.WriteString(stringify(resolved))

		remaining = remaining[idx+2:]
	}

	builder.WriteString(remaining)

	return builder.String(), nil
}

func stringify(value any) string {
	if str, ok := value.(string); ok {
		return str
	}

	return fmt.Sprint(value)
}
