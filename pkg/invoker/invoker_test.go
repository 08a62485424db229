package invoker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/inputmap"
	"github.com/voxflow/voxflow/pkg/payload"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func testContext() *execution.Context {
	return execution.NewContext("translation", payload.Payload{
		"detail": map[string]any{
			"bucket": map[string]any{"name": "media-uploads"},
			"object": map[string]any{"key": "clip.mp4"},
		},
	})
}

func TestInvoker_Invoke(t *testing.T) {
	inv := New(testLogger())

	var captured map[string]any

	inv.Register("startTranscriptionJob", OperationFunc(func(_ context.Context, params map[string]any) (any, error) {
		captured = params

		return map[string]any{"jobName": params["jobName"], "status": "IN_PROGRESS"}, nil
	}))

	execCtx := testContext()
	input := inputmap.Mapping{
		"jobName": inputmap.Format{
			Template: "transcription-{}",
			Args:     []inputmap.Value{inputmap.ExecutionRef{Field: "id"}},
		},
		"mediaUri": inputmap.Format{
			Template: "s3://{}/{}",
			Args: []inputmap.Value{
				inputmap.Path{Path: "$.detail.bucket.name"},
				inputmap.Path{Path: "$.detail.object.key"},
			},
		},
	}

	result, err := inv.Invoke(context.Background(), "startTranscriptionJob", input, execCtx)
	require.NoError(t, err)

	assert.Equal(t, "transcription-"+execCtx.ID, captured["jobName"])
	assert.Equal(t, "s3://media-uploads/clip.mp4", captured["mediaUri"])

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "IN_PROGRESS", resultMap["status"])
}

func TestInvoker_UnknownOperation(t *testing.T) {
	inv := New(testLogger())

	_, err := inv.Invoke(context.Background(), "nope", inputmap.Mapping{}, testContext())
	require.Error(t, err)
	assert.Equal(t, execution.KindGraphDefinition, execution.KindOf(err))
}

func TestInvoker_WrapsFailures(t *testing.T) {
	inv := New(testLogger())

	cause := execution.Permanent(errors.New("job rejected"))
	inv.Register("failing", OperationFunc(func(context.Context, map[string]any) (any, error) {
		return nil, cause
	}))

	_, err := inv.Invoke(context.Background(), "failing", inputmap.Mapping{}, testContext())
	require.Error(t, err)

	var callErr *ExternalCallError

	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "failing", callErr.Operation)
	// Classification survives the wrapping.
	assert.Equal(t, execution.KindPermanent, execution.KindOf(err))
}

func TestInvoker_MappingErrorBeforeCall(t *testing.T) {
	inv := New(testLogger())

	called := false
	inv.Register("op", OperationFunc(func(context.Context, map[string]any) (any, error) {
		called = true

		return nil, nil
	}))

	input := inputmap.Mapping{"text": inputmap.Path{Path: "$.missing"}}

	_, err := inv.Invoke(context.Background(), "op", input, testContext())
	require.Error(t, err)
	assert.Equal(t, execution.KindGraphDefinition, execution.KindOf(err))
	assert.False(t, called, "operation must not run when its input cannot be resolved")
}

func TestInvoker_Operations(t *testing.T) {
	inv := New(testLogger())
	inv.Register("a", OperationFunc(func(context.Context, map[string]any) (any, error) { return nil, nil }))
	inv.Register("b", OperationFunc(func(context.Context, map[string]any) (any, error) { return nil, nil }))

	assert.ElementsMatch(t, []string{"a", "b"}, inv.Operations())
}
