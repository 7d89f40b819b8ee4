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

// Package toolkit declares the tool handlers the bridge ships with. Every
// handler runs the same pipeline: guards first (fail-closed, before any
// process starts), then the bounded runner, then the output compactor.
package toolkit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"toolbridge/internal/guard"
	"toolbridge/internal/limits"
	"toolbridge/internal/registry"
	"toolbridge/internal/runner"
)

// ProcessRunner is the slice of the runner the toolkit depends on.
type ProcessRunner interface {
	Run(ctx context.Context, cmd runner.Command) runner.RunResult
}

// Deps carries the policy objects and the runner into each handler. All
// fields are built once at startup and read-only afterward, so concurrent
// calls share them without locking.
type Deps struct {
	Logger   zerolog.Logger
	Runner   ProcessRunner
	Commands *guard.CommandPolicy
	Roots    *guard.RootPolicy

	// Category timeouts. Zero selects the runner defaults.
	QueryTimeout time.Duration
	BuildTimeout time.Duration
}

func (d Deps) queryTimeout() time.Duration {
	if d.QueryTimeout > 0 {
		return d.QueryTimeout
	}
	return runner.DefaultQueryTimeout
}

func (d Deps) buildTimeout() time.Duration {
	if d.BuildTimeout > 0 {
		return d.BuildTimeout
	}
	return runner.DefaultBuildTimeout
}

// All returns every shipped descriptor in declaration order.
func All(d Deps) []registry.Descriptor {
	return []registry.Descriptor{
		GitStatus(d),
		GitCommit(d),
		RunCommand(d),
		GoTest(d),
		NpmInstall(d),
		DockerPs(d),
	}
}

// callLogger derives a per-invocation sublogger with a fresh call ID.
func (d Deps) callLogger(tool string) zerolog.Logger {
	return d.Logger.With().
		Str("tool", tool).
		Str("call_id", uuid.NewString()).
		Logger()
}

// rejected maps a validation failure to an error-flagged result. No process
// has been spawned at this point.
func rejected(logger zerolog.Logger, err error) (*mcp.CallToolResult, error) {
	logger.Warn().Err(err).Msg("input rejected")
	return mcp.NewToolResultError(err.Error()), nil
}

// checkDir validates an optional working-directory argument.
func (d Deps) checkDir(cwd, tool string) error {
	if cwd == "" {
		return nil
	}
	if err := limits.CheckString("cwd", cwd, limits.MaxPath); err != nil {
		return err
	}
	return d.Roots.AssertAllowedRoot(cwd, tool)
}

// forceFull reports whether the caller explicitly passed compact=false,
// the escape hatch that always wins over the size heuristic.
func forceFull(request mcp.CallToolRequest) bool {
	v, ok := request.GetArguments()["compact"].(bool)
	return ok && !v
}

// timeoutSeconds reads a caller timeout override, falling back to the
// category default. The runner caps the final value.
func timeoutSeconds(request mcp.CallToolRequest, fallback time.Duration) time.Duration {
	secs := request.GetInt("timeout_seconds", 0)
	if secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
