package condition

import (
	"encoding/json"
	"errors"
	"fmt"
)

// document is the JSON form of a predicate. Exactly one of the operator
// fields may be set.
type document struct {
	Path    string      `json:"path,omitempty"`
	Equals  *string     `json:"equals,omitempty"`
	Matches *string     `json:"matches,omitempty"`
	And     []*document `json:"and,omitempty"`
	Or      []*document `json:"or,omitempty"`
	Not     *document   `json:"not,omitempty"`
}

// Parse decodes a predicate from its JSON form.
func Parse(raw []byte) (Predicate, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid predicate document: %w", err)
	}

	return fromDocument(&doc)
}

// Encode renders a predicate in its JSON form.
func Encode(p Predicate) ([]byte, error) {
	doc, err := toDocument(p)
	if err != nil {
		return nil, err
	}

	return json.Marshal(doc)
}

func fromDocument(doc *document) (Predicate, error) {
	switch {
	case doc.Equals != nil:
		if doc.Path == "" {
			return nil, errors.New("predicate 'equals' requires 'path'")
		}

		return StringEquals{Path: doc.Path, Value: *doc.Equals}, nil

	case doc.Matches != nil:
		if doc.Path == "" {
			return nil, errors.New("predicate 'matches' requires 'path'")
		}

		return StringMatches{Path: doc.Path, Pattern: *doc.Matches}, nil

	case len(doc.And) > 0:
		children, err := fromDocuments(doc.And)
		if err != nil {
			return nil, err
		}

		return And{Predicates: children}, nil

	case len(doc.Or) > 0:
		children, err := fromDocuments(doc.Or)
		if err != nil {
			return nil, err
		}

		return Or{Predicates: children}, nil

	case doc.Not != nil:
		child, err := fromDocument(doc.Not)
		if err != nil {
			return nil, err
		}

		return Not{Predicate: child}, nil

	default:
		return nil, errors.New("predicate document declares no operator")
	}
}

func fromDocuments(docs []*document) ([]Predicate, error) {
	predicates := make([]Predicate, len(docs))

	for i, doc := range docs {
		child, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}

		predicates[i] = child
	}

	return predicates, nil
}

func toDocument(p Predicate) (*document, error) {
	switch typed := p.(type) {
	case StringEquals:
		value := typed.Value

		return &document{Path: typed.Path, Equals: &value}, nil
	case StringMatches:
		pattern := typed.Pattern

		return &document{Path: typed.Path, Matches: &pattern}, nil
	case And:
		children, err := toDocuments(typed.Predicates)
		if err != nil {
			return nil, err
		}

		return &document{And: children}, nil
	case Or:
		children, err := toDocuments(typed.Predicates)
		if err != nil {
			return nil, err
		}

		return &document{Or: children}, nil
	case Not:
		child, err := toDocument(typed.Predicate)
		if err != nil {
			return nil, err
		}

		return &document{Not: child}, nil
	default:
		return nil, fmt.Errorf("unsupported predicate type %T", p)
	}
}

func toDocuments(predicates []Predicate) ([]*document, error) {
	docs := make([]*document, len(predicates))

	for i, child := range predicates {
		doc, err := toDocument(child)
		if err != nil {
			return nil, err
		}

		docs[i] = doc
	}

	return docs, nil
}
