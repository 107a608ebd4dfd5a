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
	"fmt"
	"os"

	"github.com/curator-ai/curator/pkg/config"
	"github.com/curator-ai/curator/pkg/logger"
)

// initLogger installs the default slog logger from the resolved config.
// The returned cleanup closes the log file, if any.
func initLogger(cfg config.LoggerConfig) (func(), error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	cleanup := func() {}
	if cfg.File != "" {
		file, closeFile, err := logger.OpenLogFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = closeFile
	}

	logger.Init(level, output, cfg.Format)
	return cleanup, nil
}
