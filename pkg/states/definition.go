package states

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/voxflow/voxflow/pkg/condition"
	"github.com/voxflow/voxflow/pkg/inputmap"
)

// Definition documents are the JSON form of a graph. ParseDefinition checks
// the document against the embedded schema, decodes the tagged state
// variants, and validates the resulting graph.

type graphDoc struct {
	Name    string                     `json:"name"`
	StartAt string                     `json:"startAt"`
	States  map[string]json.RawMessage `json:"states"`
}

type stateDoc struct {
	Type       Type              `json:"type"`
	Operation  string            `json:"operation,omitempty"`
	Input      json.RawMessage   `json:"input,omitempty"`
	OutputPath string            `json:"outputPath,omitempty"`
	Seconds    float64           `json:"seconds,omitempty"`
	Rules      []ruleDoc         `json:"rules,omitempty"`
	Default    string            `json:"default,omitempty"`
	CopyFrom   string            `json:"copyFrom,omitempty"`
	CopyTo     string            `json:"copyTo,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Next       string            `json:"next,omitempty"`
}

type ruleDoc struct {
	When json.RawMessage `json:"when"`
	Next string          `json:"next"`
}

// ParseDefinition decodes and validates a graph definition document.
func ParseDefinition(raw []byte) (*Graph, error) {
	if err := CheckDefinitionSchema(raw); err != nil {
		return nil, err
	}

	var doc graphDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid graph definition: %w", err)
	}

	graph := &Graph{
		Name:    doc.Name,
		StartAt: doc.StartAt,
		States:  make(map[string]State, len(doc.States)),
	}

	for name, rawState := range doc.States {
		state, err := parseState(name, rawState)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", name, err)
		}

		graph.States[name] = state
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	return graph, nil
}

// CheckDefinitionSchema validates a definition document against the embedded
// JSON schema without decoding it.
func CheckDefinitionSchema(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("graph definition schema check: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, schemaErr := range result.Errors() {
			descriptions = append(descriptions, schemaErr.String())
		}

		return fmt.Errorf("graph definition is not valid: %s", strings.Join(descriptions, "; "))
	}

	return nil
}

// EncodeDefinition renders a graph back into its document form.
func EncodeDefinition(graph *Graph) ([]byte, error) {
	doc := graphDoc{
		Name:    graph.Name,
		StartAt: graph.StartAt,
		States:  make(map[string]json.RawMessage, len(graph.States)),
	}

	for name, state := range graph.States {
		encoded, err := encodeState(state)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", name, err)
		}

		doc.States[name] = encoded
	}

	return json.MarshalIndent(doc, "", "  ")
}

func parseState(name string, raw json.RawMessage) (State, error) {
	var doc stateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	switch doc.Type {
	case TypeTask:
		input := inputmap.Mapping{}

		if len(doc.Input) > 0 {
			parsed, err := inputmap.ParseMapping(doc.Input)
			if err != nil {
				return nil, err
			}

			input = parsed
		}

		return Task{
			StateName:  name,
			Operation:  doc.Operation,
			Input:      input,
			OutputPath: doc.OutputPath,
			Next:       doc.Next,
		}, nil

	case TypeWait:
		return Wait{
			StateName: name,
			Duration:  time.Duration(doc.Seconds * float64(time.Second)),
			Next:      doc.Next,
		}, nil

	case TypeChoice:
		rules := make([]ChoiceRule, len(doc.Rules))

		for i, rule := range doc.Rules {
			predicate, err := condition.Parse(rule.When)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}

			rules[i] = ChoiceRule{When: predicate, Next: rule.Next}
		}

		return Choice{StateName: name, Rules: rules, Default: doc.Default}, nil

	case TypePass:
		return Pass{StateName: name, CopyFrom: doc.CopyFrom, CopyTo: doc.CopyTo, Next: doc.Next}, nil

	case TypeFail:
		return Fail{StateName: name, Reason: doc.Reason}, nil

	case TypeTerminal:
		return Terminal{StateName: name}, nil

	case "":
		return nil, errors.New("state declares no type")

	default:
		return nil, fmt.Errorf("unknown state type %q", doc.Type)
	}
}

func encodeState(state State) (json.RawMessage, error) {
	switch typed := state.(type) {
	case Task:
		input, err := inputmap.EncodeMapping(typed.Input)
		if err != nil {
			return nil, err
		}

		return json.Marshal(stateDoc{
			Type:       TypeTask,
			Operation:  typed.Operation,
			Input:      input,
			OutputPath: typed.OutputPath,
			Next:       typed.Next,
		})

	case Wait:
		return json.Marshal(stateDoc{
			Type:    TypeWait,
			Seconds: typed.Duration.Seconds(),
			Next:    typed.Next,
		})

	case Choice:
		rules := make([]ruleDoc, len(typed.Rules))

		for i, rule := range typed.Rules {
			when, err := condition.Encode(rule.When)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}

			rules[i] = ruleDoc{When: when, Next: rule.Next}
		}

		return json.Marshal(stateDoc{Type: TypeChoice, Rules: rules, Default: typed.Default})

	case Pass:
		return json.Marshal(stateDoc{
			Type:     TypePass,
			CopyFrom: typed.CopyFrom,
			CopyTo:   typed.CopyTo,
			Next:     typed.Next,
		})

	case Fail:
		return json.Marshal(stateDoc{Type: TypeFail, Reason: typed.Reason})

	case Terminal:
		return json.Marshal(stateDoc{Type: TypeTerminal})

	default:
		return nil, fmt.Errorf("unsupported state type %T", state)
	}
}
