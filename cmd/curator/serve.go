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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/curator-ai/curator/pkg/assistants"
	"github.com/curator-ai/curator/pkg/config"
	"github.com/curator-ai/curator/pkg/docstore"
	"github.com/curator-ai/curator/pkg/observability"
	"github.com/curator-ai/curator/pkg/orchestrator"
	"github.com/curator-ai/curator/pkg/server"
	"github.com/curator-ai/curator/pkg/tools"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Host string `help:"Host to bind."`
	Port int    `help:"Port to listen on."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cli.LogLevel != "" {
		cfg.Logger.Level = cli.LogLevel
	}
	if cli.LogFile != "" {
		cfg.Logger.File = cli.LogFile
	}
	if cli.LogFormat != "" {
		cfg.Logger.Format = cli.LogFormat
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cleanup, err := initLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.Tracing.Enabled,
		EndpointURL: cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	clientOpts := []assistants.ClientOption{}
	if cfg.OpenAI.BaseURL != "" {
		clientOpts = append(clientOpts, assistants.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	client := assistants.NewClient(cfg.OpenAI.APIKey, clientOpts...)

	store, err := docstore.New(client, cfg.Storage.Dir)
	if err != nil {
		return fmt.Errorf("failed to open document store: %w", err)
	}

	registry := tools.NewRegistry()
	if err := registry.RegisterTool(tools.NewWebSearchTool(cfg.Search.APIKey)); err != nil {
		return fmt.Errorf("failed to register web search tool: %w", err)
	}

	orch := orchestrator.New(client, store, registry,
		orchestrator.WithModel(cfg.OpenAI.Model),
		orchestrator.WithPollInterval(cfg.OpenAI.PollInterval),
		orchestrator.WithMaxPolls(cfg.OpenAI.MaxPolls),
	)

	srv := server.New(server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, orch, store)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		if err := srv.Stop(context.Background()); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
		cancel()
	}()

	return srv.Start()
}
