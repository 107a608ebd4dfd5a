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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curator-ai/curator/pkg/assistants"
	"github.com/curator-ai/curator/pkg/docstore"
	"github.com/curator-ai/curator/pkg/orchestrator"
	"github.com/curator-ai/curator/pkg/tools"
)

// apiStub backs the orchestrator with a remote that completes every run on
// the first poll and answers with a fixed message.
type apiStub struct {
	reply string
}

func (a *apiStub) CreateAssistant(ctx context.Context, req assistants.CreateAssistantRequest) (*assistants.Assistant, error) {
	return &assistants.Assistant{ID: "asst_1", Name: req.Name, Model: req.Model}, nil
}

func (a *apiStub) DeleteAssistant(ctx context.Context, assistantID string) error {
	return nil
}

func (a *apiStub) CreateThread(ctx context.Context, messages []assistants.ThreadMessage) (*assistants.Thread, error) {
	return &assistants.Thread{ID: "thread_1"}, nil
}

func (a *apiStub) CreateRun(ctx context.Context, threadID, assistantID string) (*assistants.Run, error) {
	return &assistants.Run{ID: "run_1", ThreadID: threadID, AssistantID: assistantID, Status: assistants.RunStatusQueued}, nil
}

func (a *apiStub) RetrieveRun(ctx context.Context, threadID, runID string) (*assistants.Run, error) {
	return &assistants.Run{ID: runID, ThreadID: threadID, Status: assistants.RunStatusCompleted}, nil
}

func (a *apiStub) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistants.ToolOutput) (*assistants.Run, error) {
	return &assistants.Run{ID: runID, ThreadID: threadID, Status: assistants.RunStatusInProgress}, nil
}

func (a *apiStub) ListMessages(ctx context.Context, threadID string, limit int) ([]assistants.Message, error) {
	return []assistants.Message{{
		ID:   "msg_1",
		Role: "assistant",
		Content: []assistants.MessageContent{{
			Type: "text",
			Text: &assistants.MessageText{Value: a.reply},
		}},
	}}, nil
}

func (a *apiStub) StreamRun(ctx context.Context, threadID, assistantID string) (*assistants.RunStream, error) {
	events := "event: thread.message.delta\n" +
		`data: {"id":"msg_1","delta":{"content":[{"type":"text","text":{"value":"Hi"}}]}}` + "\n" +
		"\n" +
		"event: thread.run.completed\n" +
		`data: {"id":"run_1","thread_id":"thread_1","status":"completed"}` + "\n" +
		"\n" +
		"data: [DONE]\n" +
		"\n"
	return assistants.NewRunStream(io.NopCloser(strings.NewReader(events))), nil
}

func (a *apiStub) UploadFile(ctx context.Context, filename string, content io.Reader, purpose string) (*assistants.File, error) {
	return &assistants.File{ID: "file_1", Filename: filename, Purpose: purpose}, nil
}

func (a *apiStub) DeleteFile(ctx context.Context, fileID string) error {
	return nil
}

func (a *apiStub) CreateVectorStore(ctx context.Context, req assistants.CreateVectorStoreRequest) (*assistants.VectorStore, error) {
	return &assistants.VectorStore{ID: "vs_1", Name: req.Name, Status: "completed"}, nil
}

func (a *apiStub) RetrieveVectorStore(ctx context.Context, vectorStoreID string) (*assistants.VectorStore, error) {
	return &assistants.VectorStore{ID: vectorStoreID, Status: "completed"}, nil
}

func (a *apiStub) CreateFileBatch(ctx context.Context, vectorStoreID string, fileIDs []string) (*assistants.FileBatch, error) {
	return &assistants.FileBatch{ID: "batch_1", VectorStoreID: vectorStoreID, Status: assistants.BatchStatusCompleted}, nil
}

func (a *apiStub) RetrieveFileBatch(ctx context.Context, vectorStoreID, batchID string) (*assistants.FileBatch, error) {
	return &assistants.FileBatch{ID: batchID, VectorStoreID: vectorStoreID, Status: assistants.BatchStatusCompleted}, nil
}

func (a *apiStub) CreateFileBatchAndWait(ctx context.Context, vectorStoreID string, fileIDs []string) (*assistants.FileBatch, error) {
	return &assistants.FileBatch{ID: "batch_1", VectorStoreID: vectorStoreID, Status: assistants.BatchStatusCompleted}, nil
}

func (a *apiStub) DeleteVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error {
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *docstore.Store) {
	t.Helper()

	stub := &apiStub{reply: "Hello from the assistant."}
	store, err := docstore.New(stub, t.TempDir(), docstore.WithPollInterval(time.Millisecond))
	require.NoError(t, err)

	orch := orchestrator.New(stub, store, tools.NewRegistry(),
		orchestrator.WithPollInterval(time.Millisecond),
		orchestrator.WithMaxPolls(5))

	srv := New(Config{}, orch, store)
	ts := httptest.NewServer(srv.setupRouting())
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "curator", body["service"])
}

func TestServer_Chat(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/chat", ChatRequest{
		Messages: []orchestrator.Message{{Role: "user", Content: "hello"}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body ChatResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, "Hello from the assistant.", body.Response)
}

func TestServer_Chat_EmptyMessages(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/chat", ChatRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Chat_InvalidBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StreamChat(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/stream-chat", ChatRequest{
		Messages: []orchestrator.Message{{Role: "user", Content: "hello"}},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `data: {"content":"Hi"}`)
	assert.True(t, strings.HasSuffix(string(body), "data: [DONE]\n\n"))
}

func multipartUpload(t *testing.T, url, filename, content string, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	resp, err := http.Post(url, writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestServer_UploadDocument(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := multipartUpload(t, ts.URL+"/documents", "notes.txt", "gophers dig burrows",
		map[string]string{"document_id": "doc-1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body UploadResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, "processing", body.Status)
	assert.Equal(t, "doc-1", body.DocumentID)
	assert.Equal(t, "notes.txt", body.Filename)
}

func TestServer_UploadDocument_GeneratesID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := multipartUpload(t, ts.URL+"/documents", "notes.md", "# heading", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body UploadResponse
	decodeJSON(t, resp, &body)
	assert.NotEmpty(t, body.DocumentID)
}

func TestServer_UploadDocument_UnsupportedType(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := multipartUpload(t, ts.URL+"/documents", "archive.zip", "binary", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UploadDocument_MissingFile(t *testing.T) {
	ts, _ := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("document_id", "doc-1"))
	require.NoError(t, writer.Close())

	resp, err := http.Post(ts.URL+"/documents", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ListDocuments(t *testing.T) {
	ts, store := newTestServer(t)

	resp, err := http.Get(ts.URL + "/documents")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string][]docstore.DocumentRecord
	decodeJSON(t, resp, &body)
	assert.Empty(t, body["documents"])

	ok, err := store.Ingest(context.Background(), []string{"chunk"}, "doc-1", "doc.txt", nil)
	require.NoError(t, err)
	require.True(t, ok)

	resp, err = http.Get(ts.URL + "/documents")
	require.NoError(t, err)
	decodeJSON(t, resp, &body)
	require.Len(t, body["documents"], 1)
	assert.Equal(t, "doc-1", body["documents"][0].DocumentID)
}

func TestServer_DeleteDocument(t *testing.T) {
	ts, store := newTestServer(t)

	ok, err := store.Ingest(context.Background(), []string{"chunk"}, "doc-1", "doc.txt", nil)
	require.NoError(t, err)
	require.True(t, ok)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/documents/doc-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "deleted", body["status"])
	assert.Equal(t, "doc-1", body["document_id"])
	assert.Empty(t, store.List())
}

func TestServer_DeleteDocument_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/documents/missing", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_VectorStores(t *testing.T) {
	ts, store := newTestServer(t)

	resp, err := http.Get(ts.URL + "/vector-stores")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var info docstore.IndexInfo
	decodeJSON(t, resp, &info)
	assert.Equal(t, "no_vector_stores", info.Status)

	ok, err := store.Ingest(context.Background(), []string{"chunk"}, "doc-1", "doc.txt", nil)
	require.NoError(t, err)
	require.True(t, ok)

	resp, err = http.Get(ts.URL + "/vector-stores")
	require.NoError(t, err)
	decodeJSON(t, resp, &info)
	assert.Equal(t, "ok", info.Status)
	assert.Len(t, info.Indexes, 1)
}

func TestServer_CORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/chat", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
