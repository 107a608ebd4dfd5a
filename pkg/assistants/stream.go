package assistants

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Stream event names delivered by the remote run stream. Only the events the
// orchestrator acts on are named; everything else passes through with its
// wire name.
const (
	EventRunRequiresAction = "thread.run.requires_action"
	EventRunCompleted      = "thread.run.completed"
	EventRunFailed         = "thread.run.failed"
	EventRunCancelled      = "thread.run.cancelled"
	EventRunExpired        = "thread.run.expired"
	EventMessageDelta      = "thread.message.delta"
	EventDone              = "done"
)

// StreamEvent is one server-sent event from a streamed run. Run is populated
// for run lifecycle events, Delta for message delta events.
type StreamEvent struct {
	Type  string
	Run   *Run
	Delta *MessageDelta
}

// MessageDelta carries incremental message content.
type MessageDelta struct {
	Content []MessageContent `json:"content"`
}

type messageDeltaEnvelope struct {
	ID    string       `json:"id"`
	Delta MessageDelta `json:"delta"`
}

// RunStream reads server-sent events from a streamed run. It is not safe for
// concurrent use.
type RunStream struct {
	run    *Run
	body   io.ReadCloser
	reader *bufio.Reader
}

// NewRunStream wraps an SSE byte stream. Useful for adapters and tests that
// source events from something other than a live HTTP response.
func NewRunStream(body io.ReadCloser) *RunStream {
	return &RunStream{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// StreamRun starts a run with streaming delivery. The caller must Close the
// returned stream.
func (c *Client) StreamRun(ctx context.Context, threadID, assistantID string) (*RunStream, error) {
	body, err := json.Marshal(CreateRunRequest{AssistantID: assistantID, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/runs", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, parseErrorBody(resp.StatusCode, respBody)
	}
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("HTTP request failed: no response received")
	}

	return &RunStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// Run returns the run object from the most recent run lifecycle event, if
// any has been observed yet.
func (s *RunStream) Run() *Run {
	return s.run
}

// Recv blocks until the next event arrives. It returns io.EOF when the
// stream ends.
func (s *RunStream) Recv() (*StreamEvent, error) {
	eventName := ""

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read stream: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			eventName = ""
			continue
		}

		if name, ok := bytes.CutPrefix(line, []byte("event: ")); ok {
			eventName = string(name)
			continue
		}

		data, ok := bytes.CutPrefix(line, []byte("data: "))
		if !ok {
			continue
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return &StreamEvent{Type: EventDone}, nil
		}

		event := &StreamEvent{Type: eventName}
		switch eventName {
		case EventMessageDelta:
			var envelope messageDeltaEnvelope
			if err := json.Unmarshal(data, &envelope); err != nil {
				continue
			}
			event.Delta = &envelope.Delta

		case EventRunRequiresAction, EventRunCompleted, EventRunFailed,
			EventRunCancelled, EventRunExpired:
			var run Run
			if err := json.Unmarshal(data, &run); err != nil {
				continue
			}
			event.Run = &run
			s.run = &run

		default:
			// Unhandled event types are surfaced by name with no payload.
		}

		return event, nil
	}
}

// Close releases the underlying connection.
func (s *RunStream) Close() error {
	return s.body.Close()
}
