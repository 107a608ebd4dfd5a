package docstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/curator-ai/curator/pkg/assistants"
)

// RemoteIndexer is the slice of the remote API the store depends on.
// *assistants.Client satisfies it.
type RemoteIndexer interface {
	UploadFile(ctx context.Context, filename string, content io.Reader, purpose string) (*assistants.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreateVectorStore(ctx context.Context, req assistants.CreateVectorStoreRequest) (*assistants.VectorStore, error)
	RetrieveVectorStore(ctx context.Context, vectorStoreID string) (*assistants.VectorStore, error)
	CreateFileBatch(ctx context.Context, vectorStoreID string, fileIDs []string) (*assistants.FileBatch, error)
	RetrieveFileBatch(ctx context.Context, vectorStoreID, batchID string) (*assistants.FileBatch, error)
	CreateFileBatchAndWait(ctx context.Context, vectorStoreID string, fileIDs []string) (*assistants.FileBatch, error)
	DeleteVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error
}

// DocumentRecord is the durable local bookkeeping for one ingested document.
type DocumentRecord struct {
	DocumentID      string                 `json:"document_id"`
	Filename        string                 `json:"filename"`
	FileID          string                 `json:"file_id"`
	VectorStoreID   string                 `json:"vector_store_id"`
	VectorStoreName string                 `json:"vector_store_name"`
	AddedAt         time.Time              `json:"added_at"`
	NumChunks       int                    `json:"num_chunks"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// IndexEntry maps a locally chosen index name to its remote identifier.
type IndexEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// IndexStatus is the live status of one tracked index. A failed status fetch
// is recorded in Error without failing the overall operation.
type IndexStatus struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name,omitempty"`
	Status     string                 `json:"status,omitempty"`
	FileCounts *assistants.FileCounts `json:"file_counts,omitempty"`
	CreatedAt  int64                  `json:"created_at,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// IndexInfo summarizes all tracked indexes.
type IndexInfo struct {
	Status  string                 `json:"status"`
	Indexes map[string]IndexStatus `json:"vector_stores"`
}

// StoreError reports a failed store operation.
type StoreError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func newStoreError(action, message string, err error) *StoreError {
	return &StoreError{
		Component: "docstore",
		Action:    action,
		Message:   message,
		Err:       err,
	}
}
