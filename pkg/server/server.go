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

// Package server exposes the orchestrator and document store over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/curator-ai/curator/pkg/docstore"
	"github.com/curator-ai/curator/pkg/orchestrator"
)

const shutdownTimeout = 10 * time.Second

// Config holds the HTTP server settings.
type Config struct {
	Host string
	Port int
}

// Server routes HTTP requests to the orchestrator and document store.
type Server struct {
	config     Config
	orch       *orchestrator.Orchestrator
	store      *docstore.Store
	httpServer *http.Server
}

// New creates a Server wired to the given orchestrator and store.
func New(config Config, orch *orchestrator.Orchestrator, store *docstore.Store) *Server {
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.Port == 0 {
		config.Port = 8000
	}
	return &Server{
		config: config,
		orch:   orch,
		store:  store,
	}
}

// Start runs the HTTP server until it fails or Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.setupRouting(),
	}

	slog.Info("HTTP server starting", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRouting() http.Handler {
	r := chi.NewRouter()

	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Post("/stream-chat", s.handleStreamChat)
	r.Post("/documents", s.handleUploadDocument)
	r.Get("/documents", s.handleListDocuments)
	r.Delete("/documents/{id}", s.handleDeleteDocument)
	r.Get("/vector-stores", s.handleVectorStores)

	return r
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
