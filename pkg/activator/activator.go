// Package activator turns inbound object-created events into pipeline
// executions. It subscribes to an event channel, filters out keys the
// pipeline does not handle, and hands admitted events to the engine, one
// goroutine per run.
package activator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/voxflow/voxflow/pkg/engine"
	"github.com/voxflow/voxflow/pkg/events"
	"github.com/voxflow/voxflow/pkg/execution"
	"github.com/voxflow/voxflow/pkg/payload"
	"github.com/voxflow/voxflow/pkg/states"
)

// Activator subscribes to object-created events and starts executions.
type Activator struct {
	subscriber message.Subscriber
	topic      string
	filter     *events.SuffixFilter
	graph      *states.Graph
	engine     *engine.Engine
	logger     *slog.Logger

	// OnFinished, when set, observes every completed run. Used by the CLI
	// for reporting and by tests for synchronization.
	OnFinished func(execCtx *execution.Context, err error)

	semaphore chan struct{}
	wg        sync.WaitGroup
}

// New creates an activator. maxConcurrent bounds the number of executions
// in flight at once.
func New(
	subscriber message.Subscriber,
	topic string,
	filter *events.SuffixFilter,
	graph *states.Graph,
	eng *engine.Engine,
	logger *slog.Logger,
	maxConcurrent int,
) *Activator {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &Activator{
		subscriber: subscriber,
		topic:      topic,
		filter:     filter,
		graph:      graph,
		engine:     eng,
		logger:     logger.With("module", "activator"),
		semaphore:  make(chan struct{}, maxConcurrent),
	}
}

// Start subscribes to the topic and consumes events until the context is
// cancelled or the subscription closes.
func (a *Activator) Start(ctx context.Context) error {
	messages, err := a.subscriber.Subscribe(ctx, a.topic)
	if err != nil {
		return err
	}

	a.logger.Info("listening for object-created events", "topic", a.topic)

	go func() {
		for msg := range messages {
			a.handle(ctx, msg)
		}
	}()

	return nil
}

// Drain blocks until all in-flight executions finish.
func (a *Activator) Drain() {
	a.wg.Wait()
}

func (a *Activator) handle(ctx context.Context, msg *message.Message) {
	event, err := events.ParseObjectCreated(msg.Payload)
	if err != nil {
		// Redelivery cannot fix a malformed event; drop it.
		a.logger.Error("dropping unparseable event", "message_id", msg.UUID, "error", err)
		msg.Ack()

		return
	}

	if !a.filter.Admits(event) {
		// Not a media object. Acknowledged and forgotten; no run starts.
		a.logger.Debug("event filtered by suffix", "bucket", event.Bucket, "key", event.Key)
		msg.Ack()

		return
	}

	msg.Ack()

	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		a.semaphore <- struct{}{}
		defer func() { <-a.semaphore }()

		a.run(ctx, event)
	}()
}

func (a *Activator) run(ctx context.Context, event events.ObjectCreated) {
	execCtx := execution.NewContext(a.graph.Name, seedPayload(event))

	a.logger.Info("starting execution",
		"execution_id", execCtx.ID,
		"bucket", event.Bucket,
		"key", event.Key)

	final, err := a.engine.Run(ctx, a.graph, execCtx)
	if err != nil {
		a.logger.Error("execution finished with error",
			"execution_id", execCtx.ID,
			"error", err)
	}

	if a.OnFinished != nil {
		a.OnFinished(final, err)
	}
}

// seedPayload builds the initial payload in the shape the pipeline graph
// reads its event fields from.
func seedPayload(event events.ObjectCreated) payload.Payload {
	detail := map[string]any{
		"bucket": map[string]any{"name": event.Bucket},
		"object": map[string]any{"key": event.Key, "size": event.Size},
	}

	seed := payload.Payload{"detail": detail}
	if !event.Time.IsZero() {
		seed["time"] = event.Time.Format(time.RFC3339)
	}

	return seed
}
