// Copyright (C) 2026 toolbridge authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package config loads the startup policy table: the command allowlist,
// the authorized roots, and the runner bounds. Built once, read-only after.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"toolbridge/internal/errors"
	"toolbridge/internal/guard"
	"toolbridge/internal/runner"
)

// Environment overrides, applied after the file.
const (
	EnvAllowedRoots = "TOOLBRIDGE_ALLOWED_ROOTS"
	EnvLogFile      = "TOOLBRIDGE_LOG_FILE"
)

// Config is the process-wide policy table.
type Config struct {
	AllowedCommands []string       `json:"allowed_commands,omitempty"`
	AllowedRoots    []string       `json:"allowed_roots,omitempty"`
	Runner          RunnerSettings `json:"runner,omitempty"`
	LogFile         string         `json:"log_file,omitempty"`
}

// RunnerSettings bounds subprocess execution.
type RunnerSettings struct {
	MaxOutputBytes      int `json:"max_output_bytes,omitempty"`
	QueryTimeoutSeconds int `json:"query_timeout_seconds,omitempty"`
	BuildTimeoutSeconds int `json:"build_timeout_seconds,omitempty"`
}

// DefaultConfig returns a config mirroring the package defaults.
func DefaultConfig() *Config {
	return &Config{
		AllowedCommands: append([]string{}, guard.DefaultAllowedCommands...),
		Runner: RunnerSettings{
			MaxOutputBytes:      runner.DefaultMaxOutputBytes,
			QueryTimeoutSeconds: int(runner.DefaultQueryTimeout / time.Second),
			BuildTimeoutSeconds: int(runner.DefaultBuildTimeout / time.Second),
		},
	}
}

// LoadConfig reads the config file when present, validates it against the
// known key set, and applies environment overrides. A missing file is not
// an error: defaults apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrap(errors.CodeConfig, fmt.Sprintf("reading config %s", path), err)
			}
		} else {
			if err := validateKeys(data); err != nil {
				return nil, errors.Wrap(errors.CodeConfig, fmt.Sprintf("invalid config %s", path), err)
			}
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.CodeConfig, fmt.Sprintf("parsing config %s", path), err)
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if val := os.Getenv(EnvAllowedRoots); val != "" {
		var roots []string
		for _, root := range strings.Split(val, string(os.PathListSeparator)) {
			if root = strings.TrimSpace(root); root != "" {
				roots = append(roots, root)
			}
		}
		cfg.AllowedRoots = roots
	}
	if val := os.Getenv(EnvLogFile); val != "" {
		cfg.LogFile = val
	}
}

// validateKeys rejects unknown top-level and runner keys so a typo in the
// config fails loudly instead of silently keeping a default.
func validateKeys(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	known := map[string]bool{
		"allowed_commands": true,
		"allowed_roots":    true,
		"runner":           true,
		"log_file":         true,
	}
	for key := range raw {
		if !known[key] {
			return fmt.Errorf("unknown config key %q", key)
		}
	}

	if runnerRaw, ok := raw["runner"]; ok {
		var sub map[string]json.RawMessage
		if err := json.Unmarshal(runnerRaw, &sub); err != nil {
			return fmt.Errorf("runner section: %w", err)
		}
		knownRunner := map[string]bool{
			"max_output_bytes":      true,
			"query_timeout_seconds": true,
			"build_timeout_seconds": true,
		}
		for key := range sub {
			if !knownRunner[key] {
				return fmt.Errorf("unknown config key %q", "runner."+key)
			}
		}
	}
	return nil
}

// QueryTimeout returns the configured metadata-query timeout.
func (c *Config) QueryTimeout() time.Duration {
	if c.Runner.QueryTimeoutSeconds <= 0 {
		return runner.DefaultQueryTimeout
	}
	return time.Duration(c.Runner.QueryTimeoutSeconds) * time.Second
}

// BuildTimeout returns the configured build-category timeout.
func (c *Config) BuildTimeout() time.Duration {
	if c.Runner.BuildTimeoutSeconds <= 0 {
		return runner.DefaultBuildTimeout
	}
	return time.Duration(c.Runner.BuildTimeoutSeconds) * time.Second
}
