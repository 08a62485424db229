// Package payload implements the JSON-like document threaded through a run.
//
// Every task state writes its result under a declared output path; later
// states read prior results by path. Paths use JSONPath syntax ("$.a.b[0]")
// so graph definitions stay plain data.
package payload

import (
	"errors"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// ErrPathNotFound indicates a read of a payload path that no value has been
// written to. Callers treat this as a graph definition problem, not as data.
var ErrPathNotFound = errors.New("payload path not found")

// Payload is the mutable execution document. Values are JSON-like: strings,
// numbers, booleans, nested map[string]any and []any.
type Payload map[string]any

// New returns an empty payload.
func New() Payload {
	return Payload{}
}

// Get resolves a JSONPath expression against the payload. A path with no
// match returns ErrPathNotFound.
func (p Payload) Get(path string) (any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid payload path %q: %w", path, err)
	}

	matches := expr.Get(map[string]any(p))
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}

	return matches[0], nil
}

// GetString resolves a path and asserts the value is a string.
func (p Payload) GetString(path string) (string, error) {
	value, err := p.Get(path)
	if err != nil {
		return "", err
	}

	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("payload path %s holds %T, not a string", path, value)
	}

	return str, nil
}

// Has reports whether a path resolves to a value.
func (p Payload) Has(path string) bool {
	_, err := p.Get(path)

	return err == nil
}

// Set writes a value at the given path, creating intermediate objects as
// needed. Only the targeted path changes; sibling fields are untouched.
func (p Payload) Set(path string, value any) error {
	expr, err := jp.ParseString(path)
	if err != nil {
		return fmt.Errorf("invalid payload path %q: %w", path, err)
	}

	if len(expr) < 2 {
		return fmt.Errorf("payload path %q does not address a field", path)
	}

	if err := expr.Set(map[string]any(p), value); err != nil {
		return fmt.Errorf("cannot write payload path %q: %w", path, err)
	}

	return nil
}

// Clone returns a deep copy. The copy can be mutated without affecting the
// original, which is what makes checkpoint snapshots safe.
func (p Payload) Clone() Payload {
	cloned := make(Payload, len(p))
	for key, value := range p {
		cloned[key] = cloneValue(value)
	}

	return cloned
}

// Snapshot renders the payload as compact JSON for trace output.
func (p Payload) Snapshot() string {
	return oj.JSON(map[string]any(p))
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(typed))
		for key, nested := range typed {
			copied[key] = cloneValue(nested)
		}

		return copied
	case []any:
		copied := make([]any, len(typed))
		for i, nested := range typed {
			copied[i] = cloneValue(nested)
		}

		return copied
	default:
		return typed
	}
}
