// Package invoker resolves a task state's input mapping and calls the named
// external operation. The invoker is stateless between calls and never
// retries on its own; retry policy belongs to the engine.
package invoker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/inputmap"
)

// Operation is one callable external operation, registered by name. The
// capability handle behind it (service client, credentials) is injected at
// construction, not read from ambient state.
type Operation interface {
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// OperationFunc adapts a function to the Operation interface.
type OperationFunc func(ctx context.Context, params map[string]any) (any, error)

func (f OperationFunc) Execute(ctx context.Context, params map[string]any) (any, error) {
	return f(ctx, params)
}

// ExternalCallError wraps any transport or service failure of an invocation.
// Classification (transient vs permanent) is read from the wrapped error.
type ExternalCallError struct {
	Operation string
	Err       error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Operation, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}

// Invoker holds the operation registry.
type Invoker struct {
	operations map[string]Operation
	logger     *slog.Logger
}

// New creates an invoker with an empty registry.
func New(logger *slog.Logger) *Invoker {
	return &Invoker{
		operations: make(map[string]Operation),
		logger:     logger.With("module", "invoker"),
	}
}

// Register binds an operation name. Re-registering a name replaces it.
func (i *Invoker) Register(name string, op Operation) {
	i.operations[name] = op
}

// Operations lists the registered operation names.
func (i *Invoker) Operations() []string {
	names := make([]string, 0, len(i.operations))
	for name := range i.operations {
		names = append(names, name)
	}

	return names
}

// Invoke evaluates the input mapping against the execution context and calls
// the operation. An unknown operation is a graph definition error; any
// failure of the call itself comes back as an ExternalCallError.
func (i *Invoker) Invoke(ctx context.Context, operation string, input inputmap.Mapping, execCtx *execution.Context) (any, error) {
	op, ok := i.operations[operation]
	if !ok {
		return nil, execution.Definitional(fmt.Errorf("operation %q is not registered", operation))
	}

	params, err := input.Resolve(inputmap.ResolveContext{
		ExecutionID: execCtx.ID,
		Payload:     execCtx.Payload,
	})
	if err != nil {
		return nil, err
	}

	i.logger.Debug("invoking operation",
		"operation", operation,
		"execution_id", execCtx.ID,
		"params", params)

	result, err := op.Execute(ctx, params)
	if err != nil {
		return nil, &ExternalCallError{Operation: operation, Err: err}
	}

	return result, nil
}
