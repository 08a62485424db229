// Package events defines the inbound event types that activate pipeline
// executions.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kafka topics.
const ObjectCreatedTopic = "voxflow.object.created" // Topic for storage object-created notifications

const EventTypeMetadataKey = "event_type"

// ObjectCreatedEvent is the event type carried in message metadata.
const ObjectCreatedEvent = "object.created"

// ObjectCreated is an object-created storage notification.
type ObjectCreated struct {
	Bucket string    `json:"bucket"`
	Key    string    `json:"key"`
	Size   int64     `json:"size,omitempty"`
	Time   time.Time `json:"time,omitempty"`
}

// objectCreatedEnvelope is the bus-style notification wrapper
// ({"detail-type": "Object Created", "detail": {...}}).
type objectCreatedEnvelope struct {
	DetailType string              `json:"detail-type"`
	Time       time.Time           `json:"time"`
	Detail     objectCreatedDetail `json:"detail"`
}

type objectCreatedDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size int64  `json:"size"`
	} `json:"object"`
}

// ParseObjectCreated decodes an object-created notification. Both the full
// envelope and the bare detail document are accepted.
func ParseObjectCreated(data []byte) (ObjectCreated, error) {
	var envelope objectCreatedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ObjectCreated{}, fmt.Errorf("malformed object-created event: %w", err)
	}

	event := ObjectCreated{
		Bucket: envelope.Detail.Bucket.Name,
		Key:    envelope.Detail.Object.Key,
		Size:   envelope.Detail.Object.Size,
		Time:   envelope.Time,
	}

	if event.Bucket == "" && event.Key == "" {
		// Bare detail form, no envelope.
		var detail objectCreatedDetail
		if err := json.Unmarshal(data, &detail); err != nil {
			return ObjectCreated{}, fmt.Errorf("malformed object-created event: %w", err)
		}

		event.Bucket = detail.Bucket.Name
		event.Key = detail.Object.Key
		event.Size = detail.Object.Size
	}

	if event.Bucket == "" || event.Key == "" {
		return ObjectCreated{}, fmt.Errorf("object-created event is missing bucket or key")
	}

	return event, nil
}

// SuffixFilter admits events whose object key ends in one of the allowed
// suffixes. Matching is case-insensitive.
type SuffixFilter struct {
	suffixes []string
}

// DefaultSuffixes covers the media types the pipeline transcribes.
var DefaultSuffixes = []string{".mp3", ".mp4"}

// NewSuffixFilter builds a filter over the given suffixes; with none given
// the default media suffixes apply.
func NewSuffixFilter(suffixes ...string) *SuffixFilter {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}

	normalized := make([]string, len(suffixes))
	for i, s := range suffixes {
		normalized[i] = strings.ToLower(s)
	}

	return &SuffixFilter{suffixes: normalized}
}

// Admits reports whether the event's key carries an allowed suffix.
func (f *SuffixFilter) Admits(event ObjectCreated) bool {
	key := strings.ToLower(event.Key)

	for _, suffix := range f.suffixes {
		if strings.HasSuffix(key, suffix) {
			return true
		}
	}

	return false
}
