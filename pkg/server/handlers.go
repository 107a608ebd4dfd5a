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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/curator-ai/curator/pkg/docstore"
	"github.com/curator-ai/curator/pkg/extract"
	"github.com/curator-ai/curator/pkg/orchestrator"
)

const maxUploadBytes = 50 << 20

// ChatRequest is the body of POST /chat and POST /stream-chat.
type ChatRequest struct {
	Messages        []orchestrator.Message `json:"messages"`
	EnableWebSearch bool                   `json:"enable_web_search"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// UploadResponse acknowledges a document upload before ingestion runs.
type UploadResponse struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "curator",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	response, err := s.orch.RunTurn(r.Context(), req.Messages, req.EnableWebSearch)
	if err != nil {
		slog.Error("chat turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process chat")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: response})
}

func (s *Server) handleStreamChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	fragments, err := s.orch.RunTurnStream(r.Context(), req.Messages, req.EnableWebSearch)
	if err != nil {
		slog.Error("stream turn failed to start", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for fragment := range fragments {
		if fragment.Err != nil {
			slog.Error("stream turn failed", "error", fragment.Err)
			sendSSE(w, flusher, map[string]string{"error": "stream failed"})
			return
		}
		sendSSE(w, flusher, map[string]string{"content": fragment.Text})
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func sendSSE(w io.Writer, flusher http.Flusher, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal SSE payload", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported file type %q (supported: %s)",
				extract.Extension(header.Filename),
				strings.Join(extract.SupportedExtensions, ", ")))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	documentID := r.FormValue("document_id")
	if documentID == "" {
		documentID = uuid.NewString()
	}

	// Ingestion continues after the response is written. Failures are
	// visible in logs, not to the uploader.
	go s.ingestDocument(context.WithoutCancel(r.Context()), documentID, header.Filename, content)

	writeJSON(w, http.StatusOK, UploadResponse{
		Status:     "processing",
		DocumentID: documentID,
		Filename:   header.Filename,
	})
}

func (s *Server) ingestDocument(ctx context.Context, documentID, filename string, content []byte) {
	text, err := extract.Text(ctx, filename, content)
	if err != nil {
		slog.Error("text extraction failed", "document_id", documentID, "error", err)
		return
	}

	chunks := extract.NewChunker(0, 0).Split(text)
	metadata := map[string]interface{}{
		"source":     filename,
		"size_bytes": len(content),
	}

	ok, err := s.store.Ingest(ctx, chunks, documentID, filename, metadata)
	if err != nil {
		slog.Error("ingestion failed", "document_id", documentID, "error", err)
		return
	}
	if ok {
		slog.Info("document ingested", "document_id", documentID, "filename", filename)
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]docstore.DocumentRecord{
		"documents": s.store.List(),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	ok, err := s.store.Delete(r.Context(), documentID)
	if err != nil {
		slog.Error("document deletion failed", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("document %q not found", documentID))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "deleted",
		"document_id": documentID,
	})
}

func (s *Server) handleVectorStores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.IndexInfo(r.Context()))
}
