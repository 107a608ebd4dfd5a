package assistants

// Request and response types for the hosted assistants API. Optional nested
// fields are modeled as pointers so "field absent" is distinguishable from a
// zero value.

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the status can no longer change.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// BatchStatus is the lifecycle state of a vector-store file batch.
type BatchStatus string

const (
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusCancelled  BatchStatus = "cancelled"
)

type Tool struct {
	Type     string        `json:"type"`
	Function *ToolFunction `json:"function,omitempty"`
}

type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type ToolResources struct {
	FileSearch *FileSearchResources `json:"file_search,omitempty"`
}

type FileSearchResources struct {
	VectorStoreIDs []string `json:"vector_store_ids"`
}

type CreateAssistantRequest struct {
	Name          string         `json:"name"`
	Instructions  string         `json:"instructions"`
	Model         string         `json:"model"`
	Tools         []Tool         `json:"tools,omitempty"`
	ToolResources *ToolResources `json:"tool_resources,omitempty"`
}

type Assistant struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Model         string         `json:"model"`
	Instructions  string         `json:"instructions"`
	Tools         []Tool         `json:"tools,omitempty"`
	ToolResources *ToolResources `json:"tool_resources,omitempty"`
}

type ThreadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CreateThreadRequest struct {
	Messages []ThreadMessage `json:"messages"`
}

type Thread struct {
	ID string `json:"id"`
}

type CreateRunRequest struct {
	AssistantID string `json:"assistant_id"`
	Stream      bool   `json:"stream,omitempty"`
}

type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	AssistantID    string          `json:"assistant_id"`
	Status         RunStatus       `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

type submitToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
	Stream      bool         `json:"stream,omitempty"`
}

type Message struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"`
	Content   []MessageContent `json:"content"`
	CreatedAt int64            `json:"created_at"`
}

type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

type MessageText struct {
	Value       string       `json:"value"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation marks a span of response text that cites a source file.
type Annotation struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	FileCitation *FileCitation `json:"file_citation,omitempty"`
}

type FileCitation struct {
	FileID string `json:"file_id"`
}

type messageList struct {
	Data []Message `json:"data"`
}

type File struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
}

type ExpiresAfter struct {
	Anchor string `json:"anchor"`
	Days   int    `json:"days"`
}

type CreateVectorStoreRequest struct {
	Name         string        `json:"name"`
	ExpiresAfter *ExpiresAfter `json:"expires_after,omitempty"`
}

type FileCounts struct {
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

type VectorStore struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     string      `json:"status"`
	FileCounts *FileCounts `json:"file_counts,omitempty"`
	CreatedAt  int64       `json:"created_at"`
}

type createFileBatchRequest struct {
	FileIDs []string `json:"file_ids"`
}

type FileBatch struct {
	ID            string      `json:"id"`
	VectorStoreID string      `json:"vector_store_id"`
	Status        BatchStatus `json:"status"`
	FileCounts    *FileCounts `json:"file_counts,omitempty"`
}

type deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
