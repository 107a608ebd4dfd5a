package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/curator-ai/curator/pkg/observability"
	"github.com/curator-ai/curator/pkg/registry"
)

type DispatchError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

func newDispatchError(action, message string, err error) *DispatchError {
	return &DispatchError{
		Component: "tools",
		Action:    action,
		Message:   message,
		Err:       err,
	}
}

// Registry resolves tool names to handlers and dispatches remote tool-call
// requests to them.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Tool](),
	}
}

// RegisterTool adds a tool under its own name.
func (r *Registry) RegisterTool(tool Tool) error {
	if tool == nil {
		return newDispatchError("register", "tool cannot be nil", nil)
	}
	if err := r.Register(tool.GetName(), tool); err != nil {
		return newDispatchError("register", "failed to register tool", err)
	}
	return nil
}

// Dispatch resolves a requested tool invocation by name, decodes its JSON
// arguments and executes it. Unknown tool names and undecodable arguments
// are errors for that call only; the surrounding run continues.
func (r *Registry) Dispatch(ctx context.Context, toolName, argumentsJSON string) (string, error) {
	tracer := observability.GetTracer("curator.tools")
	ctx, span := tracer.Start(ctx, observability.SpanToolDispatch,
		trace.WithAttributes(attribute.String("tool.name", toolName)),
	)
	defer span.End()

	tool, exists := r.Get(toolName)
	if !exists {
		err := newDispatchError("dispatch", fmt.Sprintf("unknown tool %q", toolName), nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown tool")
		return "", err
	}

	args := make(map[string]interface{})
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			dispatchErr := newDispatchError("dispatch", fmt.Sprintf("invalid arguments for tool %q", toolName), err)
			span.RecordError(dispatchErr)
			span.SetStatus(codes.Error, "invalid arguments")
			return "", dispatchErr
		}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", newDispatchError("dispatch", fmt.Sprintf("tool %q failed", toolName), err)
	}

	slog.Debug("dispatched tool call",
		"tool", toolName,
		"duration", time.Since(start))

	return result.Content, nil
}
