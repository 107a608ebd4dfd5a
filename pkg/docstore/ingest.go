package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/curator-ai/curator/pkg/assistants"
	"github.com/curator-ai/curator/pkg/observability"
)

// Fallback batch polling bounds: 30 attempts at 2-second spacing.
const (
	defaultPollInterval = 2 * time.Second
	maxPollAttempts     = 30
)

// ingestPhase names the states of the batch ingestion machine. The upload
// comes first so a failed upload never creates a remote index. Transitions:
//
//	Uploading      -> ResolvingIndex          (file uploaded)
//	ResolvingIndex -> BatchSubmitted          (index reused or created)
//	BatchSubmitted -> Completed               (combined create-and-wait completed)
//	BatchSubmitted -> Polling                 (combined primitive failed; fallback batch created)
//	BatchSubmitted -> Failed                  (fallback batch creation failed)
//	Polling        -> Completed               (batch completed, or poll budget exhausted)
//	Polling        -> Failed                  (batch failed or cancelled)
type ingestPhase int

const (
	phaseUploading ingestPhase = iota
	phaseResolvingIndex
	phaseBatchSubmitted
	phasePolling
	phaseCompleted
	phaseFailed
)

// ingestion tracks one document's progress through the phases above.
type ingestion struct {
	store    *Store
	path     string
	filename string
	index    IndexEntry

	phase  ingestPhase
	fileID string
	batch  *assistants.FileBatch
	err    error
}

func (in *ingestion) step(ctx context.Context) {
	switch in.phase {
	case phaseUploading:
		in.upload(ctx)
	case phaseResolvingIndex:
		in.resolveIndex(ctx)
	case phaseBatchSubmitted:
		in.submitBatch(ctx)
	case phasePolling:
		in.pollBatch(ctx)
	}
}

func (in *ingestion) fail(err error) {
	in.phase = phaseFailed
	in.err = err
}

func (in *ingestion) upload(ctx context.Context) {
	file, err := os.Open(in.path)
	if err != nil {
		in.fail(newStoreError("ingest", "failed to open combined payload", err))
		return
	}
	defer func() { _ = file.Close() }()

	uploaded, err := in.store.remote.UploadFile(ctx, in.filename, file, "assistants")
	if err != nil {
		in.fail(newStoreError("ingest", "failed to upload file", err))
		return
	}

	in.fileID = uploaded.ID
	in.phase = phaseResolvingIndex
	slog.Info("uploaded file", "file_id", in.fileID)
}

func (in *ingestion) resolveIndex(ctx context.Context) {
	index, err := in.store.activeIndex(ctx)
	if err != nil {
		in.fail(err)
		return
	}
	in.index = index
	in.phase = phaseBatchSubmitted
}

func (in *ingestion) submitBatch(ctx context.Context) {
	batch, err := in.store.remote.CreateFileBatchAndWait(ctx, in.index.ID, []string{in.fileID})
	if err == nil && batch.Status == assistants.BatchStatusCompleted {
		in.batch = batch
		in.phase = phaseCompleted
		slog.Info("added file to vector store", "file_counts", batch.FileCounts)
		return
	}
	if err == nil {
		err = fmt.Errorf("file batch processing did not complete: %s", batch.Status)
	}
	slog.Error("combined batch ingestion failed, trying file-id fallback", "error", err)

	batch, createErr := in.store.remote.CreateFileBatch(ctx, in.index.ID, []string{in.fileID})
	if createErr != nil {
		in.fail(newStoreError("ingest", "fallback batch creation failed", createErr))
		return
	}

	in.batch = batch
	in.phase = phasePolling
}

func (in *ingestion) pollBatch(ctx context.Context) {
	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		batch, err := in.store.remote.RetrieveFileBatch(ctx, in.index.ID, in.batch.ID)
		if err != nil {
			in.fail(newStoreError("ingest", "failed to retrieve batch status", err))
			return
		}

		switch batch.Status {
		case assistants.BatchStatusCompleted:
			in.batch = batch
			in.phase = phaseCompleted
			slog.Info("batch completed", "batch_id", batch.ID)
			return
		case assistants.BatchStatusFailed, assistants.BatchStatusCancelled:
			in.fail(newStoreError("ingest",
				fmt.Sprintf("file batch processing failed: %s", batch.Status), nil))
			return
		}

		select {
		case <-ctx.Done():
			in.fail(ctx.Err())
			return
		case <-time.After(in.store.pollInterval):
		}
	}

	// Batch presumed still processing; proceed rather than roll back.
	slog.Warn("batch still processing after poll budget",
		"batch_id", in.batch.ID, "attempts", maxPollAttempts)
	in.phase = phaseCompleted
}

// Ingest combines chunks into a single payload, uploads it, drives the batch
// ingestion machine to a terminal phase, and persists the document record on
// success. The temporary combined-payload artifact is removed on every path;
// on failure nothing is persisted.
func (s *Store) Ingest(ctx context.Context, chunks []string, documentID, filename string, metadata map[string]interface{}) (bool, error) {
	tracer := observability.GetTracer("curator.docstore")
	ctx, span := tracer.Start(ctx, observability.SpanIngest,
		trace.WithAttributes(
			attribute.String("document.id", documentID),
			attribute.Int("document.chunks", len(chunks)),
		),
	)
	defer span.End()

	var combined strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&combined, "--- Chunk %d/%d ---\n%s\n\n", i+1, len(chunks), chunk)
	}

	tempPath := filepath.Join(s.dir, documentID+".txt")
	if err := os.WriteFile(tempPath, []byte(combined.String()), 0o644); err != nil {
		storeErr := newStoreError("ingest", "failed to write combined payload", err)
		span.RecordError(storeErr)
		span.SetStatus(codes.Error, "payload write failed")
		return false, storeErr
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			slog.Error("failed to clean up temp file", "path", tempPath, "error", err)
		}
	}()

	in := &ingestion{
		store:    s,
		path:     tempPath,
		filename: filename,
		phase:    phaseUploading,
	}
	for in.phase != phaseCompleted && in.phase != phaseFailed {
		in.step(ctx)
	}
	if in.phase == phaseFailed {
		span.RecordError(in.err)
		span.SetStatus(codes.Error, "ingestion failed")
		return false, in.err
	}

	record := DocumentRecord{
		DocumentID:      documentID,
		Filename:        filename,
		FileID:          in.fileID,
		VectorStoreID:   in.index.ID,
		VectorStoreName: in.index.Name,
		AddedAt:         time.Now().UTC(),
		NumChunks:       len(chunks),
		Metadata:        metadata,
	}
	s.commit(record)

	slog.Info("ingested document",
		"document_id", documentID,
		"chunks", len(chunks),
		"vector_store_id", in.index.ID)
	return true, nil
}
