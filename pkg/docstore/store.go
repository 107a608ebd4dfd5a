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

// Package docstore owns the durable mapping between locally known documents
// and remote index objects. It drives batch ingestion against the remote
// indexing service and keeps a local snapshot consistent with remote state.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/curator-ai/curator/pkg/assistants"
)

// Store manages document records, the document-to-file mapping and the index
// registry. All maps are mutex-guarded; snapshot saves happen under the same
// lock as the mutation they follow.
type Store struct {
	mu     sync.RWMutex
	remote RemoteIndexer
	dir    string

	pollInterval time.Duration

	records map[string]DocumentRecord
	order   []string
	fileIDs map[string]string
	indexes []IndexEntry
}

type Option func(*Store)

// WithPollInterval overrides the fallback batch poll spacing. Intended for
// tests.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.pollInterval = interval
	}
}

// New creates a store rooted at dir, creating the directory if needed and
// loading any existing snapshot.
func New(remote RemoteIndexer, dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, newStoreError("init", fmt.Sprintf("failed to create storage root %q", dir), err)
	}

	s := &Store{
		remote:       remote,
		dir:          dir,
		pollInterval: defaultPollInterval,
		records:      make(map[string]DocumentRecord),
		fileIDs:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s, nil
}

// List returns document records in insertion order.
func (s *Store) List() []DocumentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]DocumentRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.records[id])
	}
	return records
}

// IndexIDs returns the remote identifiers of all tracked indexes.
func (s *Store) IndexIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.indexes))
	for _, entry := range s.indexes {
		ids = append(ids, entry.ID)
	}
	return ids
}

// activeIndex resolves the index used for new ingestions: the first
// registered entry, else a freshly created one. Index choice is sticky, not
// load-balanced.
func (s *Store) activeIndex(ctx context.Context) (IndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.indexes) > 0 {
		entry := s.indexes[0]
		slog.Debug("using existing vector store", "name", entry.Name, "id", entry.ID)
		return entry, nil
	}

	name := fmt.Sprintf("vs_%s", uuid.NewString()[:8])
	store, err := s.remote.CreateVectorStore(ctx, assistants.CreateVectorStoreRequest{
		Name: name,
		ExpiresAfter: &assistants.ExpiresAfter{
			Anchor: "last_active_at",
			Days:   30,
		},
	})
	if err != nil {
		return IndexEntry{}, newStoreError("ensure-index", "failed to create vector store", err)
	}

	entry := IndexEntry{Name: name, ID: store.ID}
	s.indexes = append(s.indexes, entry)
	s.save()
	slog.Info("created vector store", "name", name, "id", store.ID)
	return entry, nil
}

// Delete removes a document. Unknown ids return false without error. Remote
// cleanup is best-effort: either remote call failing is logged but never
// blocks local cleanup, so local state always drops the record.
func (s *Store) Delete(ctx context.Context, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[documentID]
	if !exists {
		slog.Warn("document not found", "document_id", documentID)
		return false, nil
	}

	fileID := s.fileIDs[documentID]
	if fileID == "" {
		fileID = record.FileID
	}

	if fileID != "" && record.VectorStoreID != "" {
		if err := s.remote.DeleteVectorStoreFile(ctx, record.VectorStoreID, fileID); err != nil {
			slog.Error("failed to remove file from vector store",
				"file_id", fileID, "vector_store_id", record.VectorStoreID, "error", err)
		} else {
			slog.Info("removed file from vector store", "file_id", fileID, "vector_store_id", record.VectorStoreID)
		}

		if err := s.remote.DeleteFile(ctx, fileID); err != nil {
			slog.Error("failed to delete remote file", "file_id", fileID, "error", err)
		} else {
			slog.Info("deleted remote file", "file_id", fileID)
		}
	}

	delete(s.records, documentID)
	delete(s.fileIDs, documentID)
	for i, id := range s.order {
		if id == documentID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.save()

	slog.Info("deleted document", "document_id", documentID)
	return true, nil
}

// IndexInfo fetches live status for every tracked index. Per-index fetch
// failures are isolated and annotated; the overall status stays "ok" as long
// as every index was attempted.
func (s *Store) IndexInfo(ctx context.Context) IndexInfo {
	s.mu.RLock()
	entries := make([]IndexEntry, len(s.indexes))
	copy(entries, s.indexes)
	s.mu.RUnlock()

	if len(entries) == 0 {
		slog.Info("no vector stores tracked")
		return IndexInfo{Status: "no_vector_stores", Indexes: map[string]IndexStatus{}}
	}

	info := IndexInfo{Status: "ok", Indexes: make(map[string]IndexStatus, len(entries))}

	var infoMu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		group.Go(func() error {
			status := s.fetchIndexStatus(groupCtx, entry)
			infoMu.Lock()
			info.Indexes[entry.Name] = status
			infoMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return info
}

func (s *Store) fetchIndexStatus(ctx context.Context, entry IndexEntry) IndexStatus {
	store, err := s.remote.RetrieveVectorStore(ctx, entry.ID)
	if err != nil {
		slog.Error("failed to retrieve vector store", "id", entry.ID, "error", err)
		return IndexStatus{ID: entry.ID, Error: err.Error()}
	}
	return IndexStatus{
		ID:         entry.ID,
		Name:       store.Name,
		Status:     store.Status,
		FileCounts: store.FileCounts,
		CreatedAt:  store.CreatedAt,
	}
}

// commit records a completed ingestion as one atomic map entry and persists
// the full snapshot.
func (s *Store) commit(record DocumentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.DocumentID]; !exists {
		s.order = append(s.order, record.DocumentID)
	}
	s.records[record.DocumentID] = record
	s.fileIDs[record.DocumentID] = record.FileID
	s.save()
}
