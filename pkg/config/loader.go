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

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads a .env file into the process environment if one
// exists. Existing environment variables are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}
	return nil
}

// Load reads and parses the YAML config at path, expands environment
// variable references, applies defaults, and fills well-known settings
// from the environment. When path is empty the config is built from
// defaults and environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.SetDefaults()
	return cfg, nil
}

// applyEnv fills settings from well-known environment variables when
// the config file left them empty.
func (c *Config) applyEnv() {
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Search.APIKey == "" {
		c.Search.APIKey = os.Getenv("SERPAPI_API_KEY")
	}
	if c.Logger.Level == "" {
		c.Logger.Level = os.Getenv("LOG_LEVEL")
	}
	if c.Logger.File == "" {
		c.Logger.File = os.Getenv("LOG_FILE")
	}
	if c.Logger.Format == "" {
		c.Logger.Format = os.Getenv("LOG_FORMAT")
	}
}
