package states

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pollDefinition = `{
  "name": "poll",
  "startAt": "Submit",
  "states": {
    "Submit": {
      "type": "task",
      "operation": "startTranscriptionJob",
      "input": {
        "jobName": {"format": "transcription-{}", "args": [{"execution": "id"}]},
        "mediaUri": {"format": "s3://{}/{}", "args": [
          {"path": "$.detail.bucket.name"},
          {"path": "$.detail.object.key"}
        ]},
        "identifyLanguage": true
      },
      "outputPath": "$.transcription",
      "next": "Hold"
    },
    "Hold": {"type": "wait", "seconds": 5, "next": "Check"},
    "Check": {
      "type": "choice",
      "rules": [
        {"when": {"path": "$.transcription.status", "equals": "COMPLETED"}, "next": "Done"},
        {"when": {"path": "$.transcription.status", "equals": "FAILED"}, "next": "Failed"}
      ],
      "default": "Hold"
    },
    "Failed": {"type": "fail", "reason": "transcription job failed"},
    "Done": {"type": "terminal"}
  }
}`

func TestParseDefinition(t *testing.T) {
	graph, err := ParseDefinition([]byte(pollDefinition))
	require.NoError(t, err)

	assert.Equal(t, "poll", graph.Name)
	assert.Equal(t, "Submit", graph.StartAt)
	assert.Len(t, graph.States, 5)

	task, ok := graph.States["Submit"].(Task)
	require.True(t, ok)
	assert.Equal(t, "startTranscriptionJob", task.Operation)
	assert.Equal(t, "$.transcription", task.OutputPath)
	assert.Len(t, task.Input, 3)

	wait, ok := graph.States["Hold"].(Wait)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, wait.Duration)

	choice, ok := graph.States["Check"].(Choice)
	require.True(t, ok)
	require.Len(t, choice.Rules, 2)
	assert.Equal(t, "Done", choice.Rules[0].Next)
	assert.Equal(t, "Hold", choice.Default)

	fail, ok := graph.States["Failed"].(Fail)
	require.True(t, ok)
	assert.Equal(t, "transcription job failed", fail.Reason)
}

func TestParseDefinition_SchemaRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing startAt", `{"states": {"Done": {"type": "terminal"}}}`},
		{"empty states", `{"startAt": "Done", "states": {}}`},
		{"unknown state type", `{"startAt": "X", "states": {"X": {"type": "loop"}}}`},
		{"task without operation", `{"startAt": "X", "states": {"X": {"type": "task", "outputPath": "$.x", "next": "X"}}}`},
		{"wait without seconds", `{"startAt": "X", "states": {"X": {"type": "wait", "next": "X"}}}`},
		{"negative wait", `{"startAt": "X", "states": {"X": {"type": "wait", "seconds": -1, "next": "X"}}}`},
		{"choice without default", `{"startAt": "X", "states": {"X": {"type": "choice", "rules": []}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseDefinition_ValidatesReferences(t *testing.T) {
	raw := `{
	  "startAt": "Only",
	  "states": {
	    "Only": {"type": "pass", "next": "Nowhere"}
	  }
	}`

	_, err := ParseDefinition([]byte(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown state")
}

func TestEncodeDefinition_RoundTrip(t *testing.T) {
	graph, err := ParseDefinition([]byte(pollDefinition))
	require.NoError(t, err)

	encoded, err := EncodeDefinition(graph)
	require.NoError(t, err)

	again, err := ParseDefinition(encoded)
	require.NoError(t, err)

	assert.Equal(t, graph.StartAt, again.StartAt)
	assert.Len(t, again.States, len(graph.States))

	wait, ok := again.States["Hold"].(Wait)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, wait.Duration)
}
