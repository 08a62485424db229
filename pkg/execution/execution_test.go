package execution

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxflow/voxflow/pkg/payload"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext("translation", payload.Payload{"detail": map[string]any{"key": "clip.mp4"}})

	assert.NotEmpty(t, ctx.ID)
	assert.Equal(t, "translation", ctx.Pipeline)
	assert.Equal(t, OutcomeRunning, ctx.Outcome)
	assert.False(t, ctx.Done())
	assert.True(t, ctx.Payload.Has("$.detail.key"))
}

func TestNewContext_NilSeed(t *testing.T) {
	ctx := NewContext("translation", nil)

	assert.NotNil(t, ctx.Payload)
}

func TestContext_Succeed(t *testing.T) {
	ctx := NewContext("translation", nil)
	ctx.Succeed()

	assert.Equal(t, OutcomeSucceeded, ctx.Outcome)
	assert.True(t, ctx.Done())
	require.NotNil(t, ctx.FinishedAt)
}

func TestContext_Fail(t *testing.T) {
	ctx := NewContext("translation", nil)
	ctx.Payload["transcription"] = map[string]any{"status": "FAILED"}

	ctx.Fail(NewError(KindPermanent, "CheckTranscriptionStatus", errors.New("job failed")))

	assert.Equal(t, OutcomeFailed, ctx.Outcome)
	require.NotNil(t, ctx.Failure)
	assert.Equal(t, KindPermanent, ctx.Failure.Kind)
	assert.Equal(t, "CheckTranscriptionStatus", ctx.Failure.State)
	// Partial progress survives the failure.
	assert.True(t, ctx.Payload.Has("$.transcription.status"))
}

func TestContext_JSONRoundTrip(t *testing.T) {
	ctx := NewContext("translation", payload.Payload{"a": "b"})
	ctx.CurrentState = "WaitBeforePoll"

	raw, err := json.Marshal(ctx)
	require.NoError(t, err)

	var restored Context

	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, ctx.ID, restored.ID)
	assert.Equal(t, "WaitBeforePoll", restored.CurrentState)
	assert.Equal(t, "b", restored.Payload["a"])
}

func TestError_Error(t *testing.T) {
	err := NewError(KindTimeout, "WaitBeforePoll", errors.New("budget exhausted"))

	assert.Contains(t, err.Error(), "Timeout")
	assert.Contains(t, err.Error(), "WaitBeforePoll")
	assert.Contains(t, err.Error(), "budget exhausted")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"transient wrap", Transient(errors.New("throttled")), KindTransient},
		{"permanent wrap", Permanent(errors.New("job failed")), KindPermanent},
		{"definitional wrap", Definitional(errors.New("no such operation")), KindGraphDefinition},
		{"unclassified defaults to transient", errors.New("connection reset"), KindTransient},
		{"wrapped deeper", Transient(errors.New("inner")), KindTransient},
		{"execution error", NewError(KindTimeout, "s", errors.New("x")), KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKindOf_PreservesUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := Permanent(inner)

	assert.ErrorIs(t, err, inner)
}
