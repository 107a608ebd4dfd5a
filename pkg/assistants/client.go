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

// Package assistants is a typed HTTP client for the hosted assistants API:
// assistant and thread lifecycle, run execution (polled or streamed), tool
// output submission, file upload, and vector-store batch ingestion.
package assistants

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/curator-ai/curator/pkg/httpclient"
)

const (
	// DefaultBaseURL is the hosted API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// betaHeader opts requests into the assistants API surface.
	betaHeader = "assistants=v2"

	// batchWaitInterval and batchWaitAttempts bound the combined
	// create-and-wait batch primitive.
	batchWaitInterval = time.Second
	batchWaitAttempts = 60
)

// Client calls the remote assistants API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *httpclient.Client
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(hc *httpclient.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func parseErrorBody(statusCode int, body []byte) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{
			StatusCode: statusCode,
			Message:    envelope.Error.Message,
			Type:       envelope.Error.Type,
			Code:       envelope.Error.Code,
		}
	}
	return &APIError{StatusCode: statusCode, Message: string(body)}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if body != nil {
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", betaHeader)

	return req, nil
}

// do executes a JSON request and decodes the response into out (when out is
// non-nil). Non-2xx responses become APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			return parseErrorBody(resp.StatusCode, respBody)
		}
	}
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("HTTP request failed: no response received")
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// CreateAssistant creates a remote assistant object.
func (c *Client) CreateAssistant(ctx context.Context, req CreateAssistantRequest) (*Assistant, error) {
	var assistant Assistant
	if err := c.do(ctx, http.MethodPost, "/assistants", req, &assistant); err != nil {
		return nil, err
	}
	if assistant.ID == "" {
		return nil, &MissingFieldError{Field: "id"}
	}
	return &assistant, nil
}

// DeleteAssistant removes a remote assistant object.
func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) error {
	var resp deleted
	return c.do(ctx, http.MethodDelete, "/assistants/"+url.PathEscape(assistantID), nil, &resp)
}

// CreateThread creates a conversation thread seeded with messages.
func (c *Client) CreateThread(ctx context.Context, messages []ThreadMessage) (*Thread, error) {
	if messages == nil {
		messages = []ThreadMessage{}
	}
	var thread Thread
	if err := c.do(ctx, http.MethodPost, "/threads", CreateThreadRequest{Messages: messages}, &thread); err != nil {
		return nil, err
	}
	if thread.ID == "" {
		return nil, &MissingFieldError{Field: "id"}
	}
	return &thread, nil
}

// CreateRun starts a run of the assistant against the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	var run Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs"
	if err := c.do(ctx, http.MethodPost, path, CreateRunRequest{AssistantID: assistantID}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RetrieveRun fetches the current state of a run.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.do(ctx, http.MethodGet, path, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// SubmitToolOutputs returns all collected tool outputs to a run paused on
// requires_action. Outputs for one run are submitted in a single call.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	var run Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID) + "/submit_tool_outputs"
	if err := c.do(ctx, http.MethodPost, path, submitToolOutputsRequest{ToolOutputs: outputs}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListMessages fetches thread messages, newest first, up to limit.
func (c *Client) ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error) {
	var list messageList
	path := fmt.Sprintf("/threads/%s/messages?order=desc&limit=%d", url.PathEscape(threadID), limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// UploadFile uploads file content for the given purpose via multipart form.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader, purpose string) (*File, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.WriteField("purpose", purpose); err != nil {
		return nil, fmt.Errorf("failed to write purpose field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	body := buf.Bytes()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(resp.Body)
			return nil, parseErrorBody(resp.StatusCode, respBody)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("HTTP request failed: no response received")
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var file File
	if err := json.Unmarshal(respBody, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if file.ID == "" {
		return nil, &MissingFieldError{Field: "id"}
	}
	return &file, nil
}

// DeleteFile removes an uploaded file object.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	var resp deleted
	return c.do(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil, &resp)
}

// CreateVectorStore creates a searchable document index.
func (c *Client) CreateVectorStore(ctx context.Context, req CreateVectorStoreRequest) (*VectorStore, error) {
	var store VectorStore
	if err := c.do(ctx, http.MethodPost, "/vector_stores", req, &store); err != nil {
		return nil, err
	}
	if store.ID == "" {
		return nil, &MissingFieldError{Field: "id"}
	}
	return &store, nil
}

// RetrieveVectorStore fetches live status for an index.
func (c *Client) RetrieveVectorStore(ctx context.Context, vectorStoreID string) (*VectorStore, error) {
	var store VectorStore
	if err := c.do(ctx, http.MethodGet, "/vector_stores/"+url.PathEscape(vectorStoreID), nil, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// CreateFileBatch submits uploaded files for asynchronous indexing.
func (c *Client) CreateFileBatch(ctx context.Context, vectorStoreID string, fileIDs []string) (*FileBatch, error) {
	var batch FileBatch
	path := "/vector_stores/" + url.PathEscape(vectorStoreID) + "/file_batches"
	if err := c.do(ctx, http.MethodPost, path, createFileBatchRequest{FileIDs: fileIDs}, &batch); err != nil {
		return nil, err
	}
	if batch.ID == "" {
		return nil, &MissingFieldError{Field: "id"}
	}
	return &batch, nil
}

// RetrieveFileBatch fetches the current state of an indexing batch.
func (c *Client) RetrieveFileBatch(ctx context.Context, vectorStoreID, batchID string) (*FileBatch, error) {
	var batch FileBatch
	path := "/vector_stores/" + url.PathEscape(vectorStoreID) + "/file_batches/" + url.PathEscape(batchID)
	if err := c.do(ctx, http.MethodGet, path, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// CreateFileBatchAndWait is the combined ingestion primitive: it submits the
// batch and blocks until the batch reaches a terminal status or the internal
// wait budget runs out, in which case the last observed batch is returned
// with a nil error and a non-terminal status.
func (c *Client) CreateFileBatchAndWait(ctx context.Context, vectorStoreID string, fileIDs []string) (*FileBatch, error) {
	batch, err := c.CreateFileBatch(ctx, vectorStoreID, fileIDs)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < batchWaitAttempts; attempt++ {
		if batch.Status != BatchStatusInProgress {
			return batch, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(batchWaitInterval):
		}

		batch, err = c.RetrieveFileBatch(ctx, vectorStoreID, batch.ID)
		if err != nil {
			return nil, err
		}
	}

	return batch, nil
}

// DeleteVectorStoreFile removes a file's membership in an index without
// deleting the file object itself.
func (c *Client) DeleteVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error {
	var resp deleted
	path := "/vector_stores/" + url.PathEscape(vectorStoreID) + "/files/" + url.PathEscape(fileID)
	return c.do(ctx, http.MethodDelete, path, nil, &resp)
}
