package inputmap

import (
	"encoding/json"
	"fmt"
)

// JSON form of a binding. An object carrying one of the reserved keys
// ("path", "format", "execution", "value") decodes to the matching variant;
// any other JSON value decodes to a literal.
type valueDoc struct {
	Path      *string         `json:"path,omitempty"`
	Format    *string         `json:"format,omitempty"`
	Args      []json.RawMessage `json:"args,omitempty"`
	Execution *string         `json:"execution,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// ParseMapping decodes a mapping from its JSON object form.
func ParseMapping(raw []byte) (Mapping, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid input mapping document: %w", err)
	}

	mapping := make(Mapping, len(fields))

	for name, rawValue := range fields {
		value, err := parseValue(rawValue)
		if err != nil {
			return nil, fmt.Errorf("input mapping field %q: %w", name, err)
		}

		mapping[name] = value
	}

	return mapping, nil
}

// EncodeMapping renders a mapping in its JSON object form.
func EncodeMapping(m Mapping) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m))

	for name, value := range m {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("input mapping field %q: %w", name, err)
		}

		fields[name] = encoded
	}

	return json.Marshal(fields)
}

func parseValue(raw json.RawMessage) (Value, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	obj, isObject := probe.(map[string]any)
	if !isObject {
		return Literal{Value: probe}, nil
	}

	var doc valueDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	switch {
	case doc.Path != nil:
		return Path{Path: *doc.Path}, nil

	case doc.Format != nil:
		args := make([]Value, len(doc.Args))

		for i, rawArg := range doc.Args {
			arg, err := parseValue(rawArg)
			if err != nil {
				return nil, fmt.Errorf("format arg %d: %w", i, err)
			}

			args[i] = arg
		}

		return Format{Template: *doc.Format, Args: args}, nil

	case doc.Execution != nil:
		return ExecutionRef{Field: *doc.Execution}, nil

	case doc.Value != nil:
		var literal any
		if err := json.Unmarshal(doc.Value, &literal); err != nil {
			return nil, err
		}

		return Literal{Value: literal}, nil

	default:
		return nil, fmt.Errorf("object binding declares none of path/format/execution/value: %v", obj)
	}
}

func encodeValue(value Value) (json.RawMessage, error) {
	switch typed := value.(type) {
	case Literal:
		if _, isObject := typed.Value.(map[string]any); isObject {
			raw, err := json.Marshal(typed.Value)
			if err != nil {
				return nil, err
			}

			return json.Marshal(valueDoc{Value: raw})
		}

		return json.Marshal(typed.Value)

	case Path:
		path := typed.Path

		return json.Marshal(valueDoc{Path: &path})

	case ExecutionRef:
		field := typed.Field

		return json.Marshal(valueDoc{Execution: &field})

	case Format:
		format := typed.Template
		args := make([]json.RawMessage, len(typed.Args))

		for i, arg := range typed.Args {
			encoded, err := encodeValue(arg)
			if err != nil {
				return nil, err
			}

			args[i] = encoded
		}

		return json.Marshal(valueDoc{Format: &format, Args: args})

	default:
		return nil, fmt.Errorf("unsupported input mapping value type %T", value)
	}
}
