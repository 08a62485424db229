package inputmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/payload"
)

func resolveContext() ResolveContext {
	return ResolveContext{
		ExecutionID: "exec-42",
		Payload: payload.Payload{
			"detail": map[string]any{
				"bucket": map[string]any{"name": "media-uploads"},
				"object": map[string]any{"key": "clip.mp4"},
			},
		},
	}
}

func TestMapping_Resolve(t *testing.T) {
	mapping := Mapping{
		"jobName": Format{
			Template: "transcription-{}",
			Args:     []Value{ExecutionRef{Field: "id"}},
		},
		"mediaUri": Format{
			Template: "s3://{}/{}",
			Args: []Value{
				Path{Path: "$.detail.bucket.name"},
				Path{Path: "$.detail.object.key"},
			},
		},
		"identifyLanguage": Literal{Value: true},
	}

	params, err := mapping.Resolve(resolveContext())
	require.NoError(t, err)

	assert.Equal(t, "transcription-exec-42", params["jobName"])
	assert.Equal(t, "s3://media-uploads/clip.mp4", params["mediaUri"])
	assert.Equal(t, true, params["identifyLanguage"])
}

func TestMapping_Resolve_Deterministic(t *testing.T) {
	// Same execution ID twice gives the same derived job name: a retried
	// submission after a transient failure must not create a duplicate job.
	mapping := Mapping{
		"jobName": Format{Template: "transcription-{}", Args: []Value{ExecutionRef{Field: "id"}}},
	}

	first, err := mapping.Resolve(resolveContext())
	require.NoError(t, err)

	second, err := mapping.Resolve(resolveContext())
	require.NoError(t, err)

	assert.Equal(t, first["jobName"], second["jobName"])
}

func TestPath_MissingIsDefinitional(t *testing.T) {
	mapping := Mapping{"text": Path{Path: "$.transcript.text"}}

	_, err := mapping.Resolve(ResolveContext{Payload: payload.Payload{}})
	require.Error(t, err)
	assert.Equal(t, execution.KindGraphDefinition, execution.KindOf(err))
}

func TestExecutionRef_UnknownField(t *testing.T) {
	mapping := Mapping{"x": ExecutionRef{Field: "started_at"}}

	_, err := mapping.Resolve(resolveContext())
	require.Error(t, err)
	assert.Equal(t, execution.KindGraphDefinition, execution.KindOf(err))
}

func TestFormat_PlaceholderArity(t *testing.T) {
	mapping := Mapping{
		"uri": Format{Template: "s3://{}/{}", Args: []Value{Literal{Value: "bucket"}}},
	}

	_, err := mapping.Resolve(resolveContext())
	require.Error(t, err)
	assert.Equal(t, execution.KindGraphDefinition, execution.KindOf(err))
}

func TestFormat_NonStringArg(t *testing.T) {
	mapping := Mapping{
		"name": Format{Template: "part-{}", Args: []Value{Literal{Value: float64(7)}}},
	}

	params, err := mapping.Resolve(resolveContext())
	require.NoError(t, err)
	assert.Equal(t, "part-7", params["name"])
}

func TestParseMapping(t *testing.T) {
	raw := []byte(`{
		"jobName": {"format": "transcription-{}", "args": [{"execution": "id"}]},
		"mediaUri": {"format": "s3://{}/{}", "args": [
			{"path": "$.detail.bucket.name"},
			{"path": "$.detail.object.key"}
		]},
		"identifyLanguage": true,
		"voice": "Joanna",
		"options": {"value": {"sampleRate": "22050"}}
	}`)

	mapping, err := ParseMapping(raw)
	require.NoError(t, err)

	params, err := mapping.Resolve(resolveContext())
	require.NoError(t, err)

	assert.Equal(t, "transcription-exec-42", params["jobName"])
	assert.Equal(t, "s3://media-uploads/clip.mp4", params["mediaUri"])
	assert.Equal(t, true, params["identifyLanguage"])
	assert.Equal(t, "Joanna", params["voice"])
	assert.Equal(t, map[string]any{"sampleRate": "22050"}, params["options"])
}

func TestParseMapping_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an object", `42`},
		{"empty object binding", `{"x": {}}`},
		{"bad json", `{"x":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMapping([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestEncodeMapping_RoundTrip(t *testing.T) {
	mapping := Mapping{
		"jobName":  Format{Template: "t-{}", Args: []Value{ExecutionRef{Field: "id"}}},
		"bucket":   Path{Path: "$.detail.bucket.name"},
		"identify": Literal{Value: true},
		"options":  Literal{Value: map[string]any{"k": "v"}},
	}

	encoded, err := EncodeMapping(mapping)
	require.NoError(t, err)

	decoded, err := ParseMapping(encoded)
	require.NoError(t, err)

	want, err := mapping.Resolve(resolveContext())
	require.NoError(t, err)

	got, err := decoded.Resolve(resolveContext())
	require.NoError(t, err)

	assert.Equal(t, want, got)
}
