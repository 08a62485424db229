package states

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/pkg/condition"
	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/inputmap"
)

func pollGraph() *Graph {
	return &Graph{
		Name:    "poll",
		StartAt: "Submit",
		States: map[string]State{
			"Submit": Task{
				StateName:  "Submit",
				Operation:  "startTranscriptionJob",
				Input:      inputmap.Mapping{},
				OutputPath: "$.transcription",
				Next:       "Hold",
			},
			"Hold": Wait{StateName: "Hold", Duration: 5 * time.Second, Next: "Check"},
			"Check": Choice{
				StateName: "Check",
				Rules: []ChoiceRule{
					{When: condition.StringEquals{Path: "$.transcription.status", Value: "COMPLETED"}, Next: "Done"},
					{When: condition.StringEquals{Path: "$.transcription.status", Value: "FAILED"}, Next: "Failed"},
				},
				Default: "Hold",
			},
			"Failed": Fail{StateName: "Failed", Reason: "transcription job failed"},
			"Done":   Terminal{StateName: "Done"},
		},
	}
}

func TestGraph_Validate_CyclicGraphIsLegal(t *testing.T) {
	require.NoError(t, pollGraph().Validate())
}

func TestGraph_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Graph)
		message string
	}{
		{
			name:    "no entry state",
			mutate:  func(g *Graph) { g.StartAt = "" },
			message: "no entry state",
		},
		{
			name:    "unknown entry state",
			mutate:  func(g *Graph) { g.StartAt = "Nowhere" },
			message: "does not exist",
		},
		{
			name: "dangling next",
			mutate: func(g *Graph) {
				g.States["Submit"] = Task{
					StateName: "Submit", Operation: "op", OutputPath: "$.x", Next: "Nowhere",
				}
			},
			message: "unknown state",
		},
		{
			name: "task without operation",
			mutate: func(g *Graph) {
				g.States["Submit"] = Task{StateName: "Submit", OutputPath: "$.x", Next: "Hold"}
			},
			message: "names no operation",
		},
		{
			name: "task without output path",
			mutate: func(g *Graph) {
				g.States["Submit"] = Task{StateName: "Submit", Operation: "op", Next: "Hold"}
			},
			message: "no output path",
		},
		{
			name: "non-positive wait",
			mutate: func(g *Graph) {
				g.States["Hold"] = Wait{StateName: "Hold", Duration: 0, Next: "Check"}
			},
			message: "non-positive duration",
		},
		{
			name: "choice without rules",
			mutate: func(g *Graph) {
				g.States["Check"] = Choice{StateName: "Check", Default: "Hold"}
			},
			message: "no rules",
		},
		{
			name: "choice rule dangling target",
			mutate: func(g *Graph) {
				g.States["Check"] = Choice{
					StateName: "Check",
					Rules: []ChoiceRule{
						{When: condition.StringEquals{Path: "$.x", Value: "y"}, Next: "Nowhere"},
					},
					Default: "Hold",
				}
			},
			message: "unknown state",
		},
		{
			name: "state name mismatch",
			mutate: func(g *Graph) {
				g.States["Done"] = Terminal{StateName: "Other"}
			},
			message: "declares name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := pollGraph()
			tt.mutate(graph)

			err := graph.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, execution.KindGraphDefinition, execution.KindOf(err))
		})
	}
}

func TestGraph_Validate_PassCopyFields(t *testing.T) {
	graph := pollGraph()
	graph.States["Skip"] = Pass{StateName: "Skip", CopyFrom: "$.a", Next: "Done"}

	err := graph.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copyFrom and copyTo")
}
