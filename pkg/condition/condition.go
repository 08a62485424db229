// Package condition implements the predicate expression tree evaluated by
// choice states. Predicates are data, not code: they reference payload paths
// and compose with and/or/not, so a graph's branching can be validated and
// tested without touching the engine.
package condition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/payload"
)

// Predicate is one node of the expression tree.
type Predicate interface {
	// Evaluate resolves the predicate against the live payload. A referenced
	// path that is absent is a graph definition error, never "false": it
	// surfaces graph/data mismatches instead of silently taking a branch.
	Evaluate(pl payload.Payload) (bool, error)

	// String renders the predicate for trace output.
	String() string
}

// StringEquals is an exact string comparison against a payload path.
type StringEquals struct {
	Path  string
	Value string
}

func (p StringEquals) Evaluate(pl payload.Payload) (bool, error) {
	actual, err := lookupString(pl, p.Path)
	if err != nil {
		return false, err
	}

	return actual == p.Value, nil
}

func (p StringEquals) String() string {
	return fmt.Sprintf("%s == %q", p.Path, p.Value)
}

// StringMatches is a wildcard comparison against a payload path. The pattern
// may contain "*" which matches any run of characters, covering prefix
// ("en*"), suffix ("*.mp4") and infix forms.
type StringMatches struct {
	Path    string
	Pattern string
}

func (p StringMatches) Evaluate(pl payload.Payload) (bool, error) {
	actual, err := lookupString(pl, p.Path)
	if err != nil {
		return false, err
	}

	return Wildcard(p.Pattern, actual), nil
}

func (p StringMatches) String() string {
	return fmt.Sprintf("%s matches %q", p.Path, p.Pattern)
}

// And is true when every child predicate is true.
type And struct {
	Predicates []Predicate
}

func (p And) Evaluate(pl payload.Payload) (bool, error) {
	for _, child := range p.Predicates {
		ok, err := child.Evaluate(pl)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func (p And) String() string {
	return compose("and", p.Predicates)
}

// Or is true when at least one child predicate is true.
type Or struct {
	Predicates []Predicate
}

func (p Or) Evaluate(pl payload.Payload) (bool, error) {
	for _, child := range p.Predicates {
		ok, err := child.Evaluate(pl)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

func (p Or) String() string {
	return compose("or", p.Predicates)
}

// Not negates its child predicate.
type Not struct {
	Predicate Predicate
}

func (p Not) Evaluate(pl payload.Payload) (bool, error) {
	ok, err := p.Predicate.Evaluate(pl)
	if err != nil {
		return false, err
	}

	return !ok, nil
}

func (p Not) String() string {
	return fmt.Sprintf("not(%s)", p.Predicate)
}

// Wildcard reports whether value matches pattern, where "*" matches any run
// of characters. Comparison is case sensitive.
func Wildcard(pattern, value string) bool {
	segments := strings.Split(pattern, "*")
	if len(segments) == 1 {
		return pattern == value
	}

	if !strings.HasPrefix(value, segments[0]) {
		return false
	}

	value = value[len(segments[0]):]

	last := segments[len(segments)-1]
	if !strings.HasSuffix(value, last) {
		return false
	}

	value = value[:len(value)-len(last)]

	for _, segment := range segments[1 : len(segments)-1] {
		idx := strings.Index(value, segment)
		if idx < 0 {
			return false
		}

		value = value[idx+len(segment):]
	}

	return true
}

func lookupString(pl payload.Payload, path string) (string, error) {
	value, err := pl.Get(path)
	if err != nil {
		if errors.Is(err, payload.ErrPathNotFound) {
			return "", execution.Definitional(fmt.Errorf("predicate references %s: %w", path, err))
		}

		return "", execution.Definitional(err)
	}

	str, ok := value.(string)
	if !ok {
		return "", execution.Definitional(fmt.Errorf("predicate path %s holds %T, not a string", path, value))
	}

	return str, nil
}

func compose(op string, children []Predicate) string {
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = child.String()
	}

	return fmt.Sprintf("%s(%s)", op, strings.Join(parts, ", "))
}
