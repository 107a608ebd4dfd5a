package assistants

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamFrom(transcript string) *RunStream {
	return NewRunStream(io.NopCloser(strings.NewReader(transcript)))
}

func TestRunStream_Recv(t *testing.T) {
	stream := streamFrom(
		"event: thread.run.created\n" +
			"data: {\"id\":\"run_1\",\"status\":\"queued\"}\n" +
			"\n" +
			"event: thread.message.delta\n" +
			"data: {\"id\":\"msg_1\",\"delta\":{\"content\":[{\"type\":\"text\",\"text\":{\"value\":\"hel\"}}]}}\n" +
			"\n" +
			"event: thread.run.completed\n" +
			"data: {\"id\":\"run_1\",\"status\":\"completed\"}\n" +
			"\n" +
			"data: [DONE]\n" +
			"\n")
	defer func() { _ = stream.Close() }()

	event, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "thread.run.created", event.Type)
	assert.Nil(t, event.Run, "unhandled event types carry no payload")

	event, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, EventMessageDelta, event.Type)
	require.NotNil(t, event.Delta)
	require.Len(t, event.Delta.Content, 1)
	assert.Equal(t, "hel", event.Delta.Content[0].Text.Value)

	event, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, EventRunCompleted, event.Type)
	require.NotNil(t, event.Run)
	assert.Equal(t, RunStatusCompleted, event.Run.Status)
	assert.Equal(t, event.Run, stream.Run())

	event, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, EventDone, event.Type)

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestRunStream_RequiresActionCarriesToolCalls(t *testing.T) {
	stream := streamFrom(
		"event: thread.run.requires_action\n" +
			"data: {\"id\":\"run_1\",\"status\":\"requires_action\",\"required_action\":" +
			"{\"type\":\"submit_tool_outputs\",\"submit_tool_outputs\":{\"tool_calls\":[" +
			"{\"id\":\"call_1\",\"type\":\"function\",\"function\":{\"name\":\"search_web\",\"arguments\":\"{}\"}}]}}}\n" +
			"\n")
	defer func() { _ = stream.Close() }()

	event, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, EventRunRequiresAction, event.Type)
	require.NotNil(t, event.Run)

	calls, err := event.Run.ToolCalls()
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "search_web", calls[0].Function.Name)
}

func TestRunStream_SkipsUndecodableDelta(t *testing.T) {
	stream := streamFrom(
		"event: thread.message.delta\n" +
			"data: not json\n" +
			"\n" +
			"data: [DONE]\n" +
			"\n")
	defer func() { _ = stream.Close() }()

	event, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, EventDone, event.Type, "undecodable payloads are skipped, not fatal")
}

func TestRunStream_EOFMidStream(t *testing.T) {
	stream := streamFrom("event: thread.message.delta\n")
	defer func() { _ = stream.Close() }()

	_, err := stream.Recv()
	assert.Equal(t, io.EOF, err)
}
