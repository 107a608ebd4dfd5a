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

// Package config provides configuration types and loading for the curator service.
package config

import (
	"fmt"
	"time"
)

// Config is the single entry point for all configuration.
type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai,omitempty"`
	Search  SearchConfig  `yaml:"search,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Logger  LoggerConfig  `yaml:"logger,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.OpenAI.SetDefaults()
	c.Search.SetDefaults()
	c.Server.SetDefaults()
	c.Storage.SetDefaults()
	c.Logger.SetDefaults()
	c.Tracing.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai validation failed: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger validation failed: %w", err)
	}
	return nil
}

// OpenAIConfig configures the Assistants API client and run polling.
type OpenAIConfig struct {
	// APIKey authenticates against the API. Usually supplied via the
	// OPENAI_API_KEY environment variable rather than the config file.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint. Default: https://api.openai.com/v1
	BaseURL string `yaml:"base_url,omitempty"`

	// Model names the assistant model. Default: gpt-4o
	Model string `yaml:"model,omitempty"`

	// PollInterval is the delay between run status checks. Default: 5s
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// MaxPolls bounds the number of status checks per run. Default: 60
	MaxPolls int `yaml:"max_polls,omitempty"`
}

// SetDefaults applies default values to OpenAIConfig.
func (c *OpenAIConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.MaxPolls == 0 {
		c.MaxPolls = 60
	}
}

// Validate checks the OpenAI configuration.
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (set OPENAI_API_KEY)")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative")
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("max_polls must not be negative")
	}
	return nil
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	// APIKey is the SerpAPI key. When empty, the search tool reports
	// itself as unavailable instead of failing.
	APIKey string `yaml:"api_key,omitempty"`
}

// SetDefaults applies default values to SearchConfig.
func (c *SearchConfig) SetDefaults() {}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host to bind. Default: 0.0.0.0
	Host string `yaml:"host,omitempty"`

	// Port to listen on. Default: 8000
	Port int `yaml:"port,omitempty"`
}

// SetDefaults applies default values to ServerConfig.
func (c *ServerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// StorageConfig configures document store persistence.
type StorageConfig struct {
	// Dir holds the snapshot files and staging uploads. Default: ./data
	Dir string `yaml:"dir,omitempty"`
}

// SetDefaults applies default values to StorageConfig.
func (c *StorageConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "./data"
	}
}

// Validate checks the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	return nil
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	// Enabled turns span export on. Default: false (noop tracer)
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoint is the OTLP gRPC collector address. Default: localhost:4317
	Endpoint string `yaml:"endpoint,omitempty"`

	// ServiceName identifies this service in traces. Default: curator
	ServiceName string `yaml:"service_name,omitempty"`
}

// SetDefaults applies default values to TracingConfig.
func (c *TracingConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.ServiceName == "" {
		c.ServiceName = "curator"
	}
}
