// Package states defines the declarative state graph the engine interprets:
// task, wait, choice, pass, fail and terminal states keyed by name. Graphs
// are data; they may contain cycles (the polling loop is one) and are
// validated structurally before a run starts.
package states

import (
	"errors"
	"fmt"
	"time"

	"github.com/voxflow/voxflow/pkg/condition"
	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/inputmap"
)

// Type discriminates the state variants.
type Type string

const (
	TypeTask     Type = "task"
	TypeWait     Type = "wait"
	TypeChoice   Type = "choice"
	TypePass     Type = "pass"
	TypeFail     Type = "fail"
	TypeTerminal Type = "terminal"
)

// State is one named node of the graph.
type State interface {
	Name() string
	Type() Type
}

// Task invokes a named external operation with parameters resolved from the
// payload, writes the result at OutputPath, then transitions to Next. Task
// states are the engine's only I/O points.
type Task struct {
	StateName  string
	Operation  string
	Input      inputmap.Mapping
	OutputPath string
	Next       string
}

func (s Task) Name() string { return s.StateName }
func (s Task) Type() Type   { return TypeTask }

// Wait suspends the execution for Duration, then transitions to Next.
type Wait struct {
	StateName string
	Duration  time.Duration
	Next      string
}

func (s Wait) Name() string { return s.StateName }
func (s Wait) Type() Type   { return TypeWait }

// ChoiceRule pairs a predicate with its target state.
type ChoiceRule struct {
	When condition.Predicate
	Next string
}

// Choice picks its successor by evaluating rules in declaration order; the
// first rule whose predicate is true wins, else Default.
type Choice struct {
	StateName string
	Rules     []ChoiceRule
	Default   string
}

func (s Choice) Name() string { return s.StateName }
func (s Choice) Type() Type   { return TypeChoice }

// Pass is a no-op transition that may copy one payload field to another
// path, which is how a branch and its alternative converge on a common
// field name.
type Pass struct {
	StateName string
	CopyFrom  string
	CopyTo    string
	Next      string
}

func (s Pass) Name() string { return s.StateName }
func (s Pass) Type() Type   { return TypePass }

// Fail terminates the run as FAILED with a permanent error. It lets graph
// data route an externally reported job failure to a FAILED outcome.
type Fail struct {
	StateName string
	Reason    string
}

func (s Fail) Name() string { return s.StateName }
func (s Fail) Type() Type   { return TypeFail }

// Terminal ends the execution as SUCCEEDED.
type Terminal struct {
	StateName string
}

func (s Terminal) Name() string { return s.StateName }
func (s Terminal) Type() Type   { return TypeTerminal }

// Graph is the full state machine: a name, exactly one entry state, and the
// named states.
type Graph struct {
	Name    string
	StartAt string
	States  map[string]State
}

// Validate checks the graph's structural invariants. Violations classify as
// graph definition errors.
func (g *Graph) Validate() error {
	var problems []error

	if g.StartAt == "" {
		problems = append(problems, errors.New("graph declares no entry state"))
	} else if _, ok := g.States[g.StartAt]; !ok {
		problems = append(problems, fmt.Errorf("entry state %q does not exist", g.StartAt))
	}

	if len(g.States) == 0 {
		problems = append(problems, errors.New("graph has no states"))
	}

	for name, state := range g.States {
		if state.Name() != name {
			problems = append(problems, fmt.Errorf("state keyed %q declares name %q", name, state.Name()))
		}

		problems = append(problems, g.validateState(state)...)
	}

	if len(problems) > 0 {
		return execution.Definitional(errors.Join(problems...))
	}

	return nil
}

func (g *Graph) validateState(state State) []error {
	var problems []error

	requireTarget := func(target, label string) {
		if target == "" {
			problems = append(problems, fmt.Errorf("state %q has empty %s", state.Name(), label))

			return
		}

		if _, ok := g.States[target]; !ok {
			problems = append(problems, fmt.Errorf("state %q %s references unknown state %q", state.Name(), label, target))
		}
	}

	switch typed := state.(type) {
	case Task:
		if typed.Operation == "" {
			problems = append(problems, fmt.Errorf("task state %q names no operation", typed.StateName))
		}

		if typed.OutputPath == "" {
			problems = append(problems, fmt.Errorf("task state %q declares no output path", typed.StateName))
		}

		requireTarget(typed.Next, "next")

	case Wait:
		if typed.Duration <= 0 {
			problems = append(problems, fmt.Errorf("wait state %q has non-positive duration", typed.StateName))
		}

		requireTarget(typed.Next, "next")

	case Choice:
		if len(typed.Rules) == 0 {
			problems = append(problems, fmt.Errorf("choice state %q has no rules", typed.StateName))
		}

		for i, rule := range typed.Rules {
			if rule.When == nil {
				problems = append(problems, fmt.Errorf("choice state %q rule %d has no predicate", typed.StateName, i))
			}

			requireTarget(rule.Next, fmt.Sprintf("rule %d target", i))
		}

		requireTarget(typed.Default, "default target")

	case Pass:
		if (typed.CopyFrom == "") != (typed.CopyTo == "") {
			problems = append(problems, fmt.Errorf("pass state %q must set both copyFrom and copyTo or neither", typed.StateName))
		}

		requireTarget(typed.Next, "next")

	case Fail, Terminal:
		// No outgoing transitions.

	default:
		problems = append(problems, fmt.Errorf("state %q has unsupported type %T", state.Name(), state))
	}

	return problems
}
