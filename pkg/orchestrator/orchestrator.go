// Copyright 2025 Curator Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package orchestrator drives conversational turns against the remote
// assistants API: assistant configuration, thread and run lifecycle, tool
// call dispatch, and response post-processing.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/curator-ai/curator/pkg/assistants"
	"github.com/curator-ai/curator/pkg/docstore"
	"github.com/curator-ai/curator/pkg/observability"
	"github.com/curator-ai/curator/pkg/tools"
)

const (
	// Poll bounds: 60 iterations at 5-second spacing, about 5 minutes.
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 60

	defaultModel = "gpt-4o"

	instructionsTemplate = `You are a helpful AI assistant with the following capabilities:
1. Access to a knowledge base through vector stores
2. Ability to search the web for current information

Use these tools when appropriate to provide accurate and helpful responses.

When searching the web, clearly indicate when information comes from external sources.

%s`

	webSearchInstructions = "When you need current information, use the search_web function."

	msgTimedOut     = "The request timed out. Please try again later."
	msgNoResponse   = "No response was generated."
	statusSearching = "\n[Searching the web...]\n"
)

// Role values accepted in conversation messages. Anything else is silently
// excluded from the remote thread.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one caller-supplied conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RemoteRunner is the slice of the remote API the orchestrator depends on.
// *assistants.Client satisfies it.
type RemoteRunner interface {
	CreateAssistant(ctx context.Context, req assistants.CreateAssistantRequest) (*assistants.Assistant, error)
	DeleteAssistant(ctx context.Context, assistantID string) error
	CreateThread(ctx context.Context, messages []assistants.ThreadMessage) (*assistants.Thread, error)
	CreateRun(ctx context.Context, threadID, assistantID string) (*assistants.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*assistants.Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistants.ToolOutput) (*assistants.Run, error)
	ListMessages(ctx context.Context, threadID string, limit int) ([]assistants.Message, error)
	StreamRun(ctx context.Context, threadID, assistantID string) (*assistants.RunStream, error)
}

// DocumentSource supplies the index bindings and document metadata used for
// retrieval and citation resolution.
type DocumentSource interface {
	List() []docstore.DocumentRecord
	IndexIDs() []string
}

// TurnError reports an unexpected failure of a conversational turn, distinct
// from timeout and terminal-run-state outcomes, which come back as
// user-facing text.
type TurnError struct {
	Action  string
	Message string
	Err     error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[orchestrator:%s] %s: %v", e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[orchestrator:%s] %s", e.Action, e.Message)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

func newTurnError(action, message string, err error) *TurnError {
	return &TurnError{Action: action, Message: message, Err: err}
}

// Orchestrator executes conversational turns.
type Orchestrator struct {
	remote RemoteRunner
	docs   DocumentSource
	tools  *tools.Registry
	cache  *AssistantCache

	model        string
	pollInterval time.Duration
	maxPolls     int
}

type Option func(*Orchestrator)

func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// WithPollInterval overrides the run poll spacing. Intended for tests.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Orchestrator) {
		o.pollInterval = interval
	}
}

// WithMaxPolls overrides the poll iteration cap. Intended for tests.
func WithMaxPolls(max int) Option {
	return func(o *Orchestrator) {
		o.maxPolls = max
	}
}

func New(remote RemoteRunner, docs DocumentSource, toolRegistry *tools.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		remote:       remote,
		docs:         docs,
		tools:        toolRegistry,
		cache:        NewAssistantCache(),
		model:        defaultModel,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// buildTools assembles the tool set advertised to the run: retrieval always,
// plus registered function tools when web search is requested.
func (o *Orchestrator) buildTools(enableWebSearch bool) []assistants.Tool {
	toolSet := []assistants.Tool{{Type: "file_search"}}

	if !enableWebSearch {
		return toolSet
	}

	if tool, ok := o.tools.Get(tools.WebSearchToolName); ok {
		info := tool.GetInfo()
		toolSet = append(toolSet, assistants.Tool{
			Type: "function",
			Function: &assistants.ToolFunction{
				Name:        info.Name,
				Description: info.Description,
				Parameters:  tools.ParameterSchema(info),
			},
		})
	}

	return toolSet
}

func (o *Orchestrator) assistantRequest(name string, toolSet []assistants.Tool, indexIDs []string) assistants.CreateAssistantRequest {
	req := assistants.CreateAssistantRequest{
		Name:         name,
		Instructions: fmt.Sprintf(instructionsTemplate, webSearchInstructions),
		Model:        o.model,
		Tools:        toolSet,
	}
	if len(indexIDs) > 0 {
		req.ToolResources = &assistants.ToolResources{
			FileSearch: &assistants.FileSearchResources{VectorStoreIDs: indexIDs},
		}
	}
	return req
}

// filterMessages keeps only user and assistant roles, in order. An empty
// result still seeds a valid (empty-context) thread.
func filterMessages(messages []Message) []assistants.ThreadMessage {
	filtered := make([]assistants.ThreadMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleUser || msg.Role == RoleAssistant {
			filtered = append(filtered, assistants.ThreadMessage{Role: msg.Role, Content: msg.Content})
		}
	}
	return filtered
}

// handleToolCalls resolves every pending tool call on a run paused in
// requires_action and submits the collected outputs back in one call.
// Dispatch failures leave that call unresolved; the run stays stuck on the
// same state and the poll bound eventually ends the turn.
func (o *Orchestrator) handleToolCalls(ctx context.Context, run *assistants.Run) bool {
	calls, err := run.ToolCalls()
	if err != nil {
		slog.Error("failed to extract tool calls", "run_id", run.ID, "error", err)
		return false
	}

	outputs := make([]assistants.ToolOutput, 0, len(calls))
	for _, call := range calls {
		output, err := o.tools.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			slog.Error("tool call failed",
				"run_id", run.ID,
				"tool", call.Function.Name,
				"error", err)
			continue
		}
		outputs = append(outputs, assistants.ToolOutput{ToolCallID: call.ID, Output: output})
	}

	if len(outputs) == 0 {
		return false
	}

	if _, err := o.remote.SubmitToolOutputs(ctx, run.ThreadID, run.ID, outputs); err != nil {
		slog.Error("failed to submit tool outputs", "run_id", run.ID, "error", err)
		return false
	}

	return true
}

// RunTurn executes one conversational turn to a terminal outcome and returns
// the user-facing text. Terminal run states and poll exhaustion come back as
// polite text; unexpected remote errors come back as a TurnError.
func (o *Orchestrator) RunTurn(ctx context.Context, messages []Message, enableWebSearch bool) (string, error) {
	tracer := observability.GetTracer("curator.orchestrator")
	ctx, span := tracer.Start(ctx, observability.SpanTurn,
		trace.WithAttributes(
			attribute.Int("turn.messages", len(messages)),
			attribute.Bool("turn.web_search", enableWebSearch),
		),
	)
	defer span.End()

	indexIDs := o.docs.IndexIDs()
	toolSet := o.buildTools(enableWebSearch)

	assistantID, err := o.cache.GetOrCreate(ctx, cacheKey(toolSet, indexIDs), func(ctx context.Context) (*assistants.Assistant, error) {
		return o.remote.CreateAssistant(ctx, o.assistantRequest("Knowledgebase Assistant", toolSet, indexIDs))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assistant resolution failed")
		return "", newTurnError("configure", "failed to resolve assistant", err)
	}

	thread, err := o.remote.CreateThread(ctx, filterMessages(messages))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "thread creation failed")
		return "", newTurnError("thread", "failed to create thread", err)
	}

	run, err := o.remote.CreateRun(ctx, thread.ID, assistantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run creation failed")
		return "", newTurnError("run", "failed to create run", err)
	}

	outcome, err := o.pollRun(ctx, thread.ID, run.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "polling failed")
		return "", err
	}
	if outcome != "" {
		return outcome, nil
	}

	return o.extractResponse(ctx, thread.ID)
}

// pollRun drives the run state machine to a terminal outcome. It returns
// non-empty text for terminal-state and timeout outcomes, empty text when
// the run completed.
func (o *Orchestrator) pollRun(ctx context.Context, threadID, runID string) (string, error) {
	for attempt := 0; attempt < o.maxPolls; attempt++ {
		run, err := o.remote.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return "", newTurnError("poll", "failed to retrieve run", err)
		}

		switch run.Status {
		case assistants.RunStatusCompleted:
			return "", nil

		case assistants.RunStatusRequiresAction:
			if o.handleToolCalls(ctx, run) {
				slog.Info("handled tool calls", "run_id", runID)
			}

		case assistants.RunStatusFailed, assistants.RunStatusCancelled, assistants.RunStatusExpired:
			slog.Error("run reached terminal state", "run_id", runID, "status", run.Status)
			if run.LastError != nil {
				slog.Error("run error details", "run_id", runID,
					"code", run.LastError.Code, "message", run.LastError.Message)
			}
			return fmt.Sprintf("I encountered an error: %s", run.Status), nil
		}

		select {
		case <-ctx.Done():
			return "", newTurnError("poll", "turn cancelled", ctx.Err())
		case <-time.After(o.pollInterval):
		}
	}

	return msgTimedOut, nil
}

// extractResponse reads the most recent thread message and renders it with
// citations resolved.
func (o *Orchestrator) extractResponse(ctx context.Context, threadID string) (string, error) {
	messages, err := o.remote.ListMessages(ctx, threadID, 1)
	if err != nil {
		return "", newTurnError("extract", "failed to list messages", err)
	}
	if len(messages) == 0 {
		return msgNoResponse, nil
	}

	return o.renderResponse(messages[0]), nil
}
