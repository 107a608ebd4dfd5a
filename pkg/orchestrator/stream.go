package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/curator-ai/curator/pkg/assistants"
	"github.com/curator-ai/curator/pkg/observability"
)

// streamReceiver abstracts the event source so stream consumption is
// testable without a live SSE connection.
type streamReceiver interface {
	Recv() (*assistants.StreamEvent, error)
}

// Fragment is one element of a streamed turn: incremental response text, or
// a terminal error.
type Fragment struct {
	Text string
	Err  error
}

// RunTurnStream executes a conversational turn with streamed delivery. A
// dedicated assistant is created for the stream and deleted best-effort once
// the stream ends on any path, including consumer cancellation via ctx.
//
// Text deltas are emitted as they arrive; no citation rewriting is applied
// mid-stream. Citations are resolved only by the blocking RunTurn path.
func (o *Orchestrator) RunTurnStream(ctx context.Context, messages []Message, enableWebSearch bool) (<-chan Fragment, error) {
	tracer := observability.GetTracer("curator.orchestrator")
	ctx, span := tracer.Start(ctx, observability.SpanTurnStream,
		trace.WithAttributes(
			attribute.Int("turn.messages", len(messages)),
			attribute.Bool("turn.web_search", enableWebSearch),
		),
	)

	indexIDs := o.docs.IndexIDs()
	toolSet := o.buildTools(enableWebSearch)

	// The shared cache is bypassed: the per-stream assistant is a scoped
	// resource, released below.
	assistant, err := o.remote.CreateAssistant(ctx, o.assistantRequest("Streaming Assistant", toolSet, indexIDs))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assistant creation failed")
		span.End()
		return nil, newTurnError("configure", "failed to create streaming assistant", err)
	}

	cleanup := func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := o.remote.DeleteAssistant(cleanupCtx, assistant.ID); err != nil {
			slog.Error("failed to delete streaming assistant", "assistant_id", assistant.ID, "error", err)
		}
	}

	thread, err := o.remote.CreateThread(ctx, filterMessages(messages))
	if err != nil {
		cleanup()
		span.RecordError(err)
		span.SetStatus(codes.Error, "thread creation failed")
		span.End()
		return nil, newTurnError("thread", "failed to create thread", err)
	}

	stream, err := o.remote.StreamRun(ctx, thread.ID, assistant.ID)
	if err != nil {
		cleanup()
		span.RecordError(err)
		span.SetStatus(codes.Error, "run creation failed")
		span.End()
		return nil, newTurnError("run", "failed to start streamed run", err)
	}

	fragments := make(chan Fragment)
	go func() {
		defer close(fragments)
		defer span.End()
		defer cleanup()
		defer func() { _ = stream.Close() }()

		o.consumeStream(ctx, stream, fragments)
	}()

	return fragments, nil
}

func (o *Orchestrator) consumeStream(ctx context.Context, stream streamReceiver, fragments chan<- Fragment) {
	emit := func(fragment Fragment) bool {
		select {
		case fragments <- fragment:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		event, err := stream.Recv()
		if err != nil {
			if err != io.EOF {
				emit(Fragment{Err: newTurnError("stream", "stream read failed", err)})
			}
			return
		}

		switch event.Type {
		case assistants.EventRunRequiresAction:
			if !emit(Fragment{Text: statusSearching}) {
				return
			}
			if event.Run == nil {
				slog.Error("requires_action event without run payload")
				continue
			}
			if o.handleToolCalls(ctx, event.Run) {
				slog.Info("handled tool calls", "run_id", event.Run.ID)
			}

		case assistants.EventMessageDelta:
			if event.Delta == nil {
				continue
			}
			for _, content := range event.Delta.Content {
				if content.Type != "text" || content.Text == nil {
					continue
				}
				if !emit(Fragment{Text: content.Text.Value}) {
					return
				}
			}

		case assistants.EventDone:
			return
		}
	}
}
