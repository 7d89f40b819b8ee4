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

package toolkit

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"toolbridge/internal/compact"
	"toolbridge/internal/guard"
	"toolbridge/internal/limits"
	"toolbridge/internal/registry"
	"toolbridge/internal/runner"
)

// runReport is the full structured result of a generic command invocation.
type runReport struct {
	Command    string `json:"command"`
	Success    bool   `json:"success"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// runSummary is the compact projection: outcome fields survive, the raw
// stdout/stderr blobs do not.
type runSummary struct {
	Command     string `json:"command"`
	Success     bool   `json:"success"`
	ExitCode    int    `json:"exit_code"`
	TimedOut    bool   `json:"timed_out"`
	DurationMs  int64  `json:"duration_ms"`
	StdoutBytes int    `json:"stdout_bytes"`
	StderrBytes int    `json:"stderr_bytes"`
}

// RunCommand is the generic build/test runner. The command name here is
// attacker-controlled free text, so it passes the stricter path-qualified
// guard on top of the allowlist.
func RunCommand(d Deps) registry.Descriptor {
	tool := mcp.NewTool("run_command",
		mcp.WithDescription("Run an allow-listed build, VCS, or package-manager command. "+
			"No shell is involved: arguments are passed literally."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Bare executable name without path separators, e.g. \"go\" or \"npm\"."),
		),
		mcp.WithArray("args",
			mcp.Description("Positional arguments. Values must not start with \"-\"."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("cwd",
			mcp.Description("Working directory; must be inside an authorized root."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Execution timeout override in seconds, capped at 600."),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Set to false to always receive the full structured result."),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := d.callLogger("run_command")

		command, err := request.RequireString("command")
		if err != nil {
			return rejected(logger, err)
		}
		if err := limits.CheckString("command", command, limits.MaxShortString); err != nil {
			return rejected(logger, err)
		}
		// The command parameter is free text: close the loophole where a
		// crafted path resolves to an allowed basename.
		if err := guard.AssertNoPathQualifiedCommand(command); err != nil {
			return rejected(logger, err)
		}
		if err := d.Commands.AssertAllowedCommand(command); err != nil {
			return rejected(logger, err)
		}

		args := request.GetStringSlice("args", nil)
		if err := limits.CheckArray("args", args, limits.MaxString); err != nil {
			return rejected(logger, err)
		}
		if err := guard.AssertNoFlagInjectionAll(args, "args"); err != nil {
			return rejected(logger, err)
		}

		cwd := request.GetString("cwd", "")
		if err := d.checkDir(cwd, "run_command"); err != nil {
			return rejected(logger, err)
		}

		start := time.Now()
		res := d.Runner.Run(ctx, runner.Command{
			Executable: command,
			Args:       args,
			Dir:        cwd,
			Timeout:    timeoutSeconds(request, d.buildTimeout()),
		})

		report := runReport{
			Command:    command,
			Success:    res.Success(),
			ExitCode:   res.ExitCode,
			TimedOut:   res.TimedOut,
			DurationMs: time.Since(start).Milliseconds(),
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
		}

		rendering := compact.Render(report, res.Stdout+res.Stderr,
			formatRunReport, summarizeRunReport, formatRunSummary, forceFull(request))
		logger.Info().
			Int("exit_code", res.ExitCode).
			Bool("timed_out", res.TimedOut).
			Bool("compact", rendering.Decision.UseCompact).
			Msg("run_command finished")
		return mcp.NewToolResultStructured(rendering.Structured, rendering.Text), nil
	}

	return registry.Descriptor{Tool: tool, Handler: handler, Core: true}
}

func summarizeRunReport(r runReport) (runSummary, bool) {
	return runSummary{
		Command:     r.Command,
		Success:     r.Success,
		ExitCode:    r.ExitCode,
		TimedOut:    r.TimedOut,
		DurationMs:  r.DurationMs,
		StdoutBytes: len(r.Stdout),
		StderrBytes: len(r.Stderr),
	}, true
}

func formatRunReport(r runReport) string {
	head := runOutcomeLine(r.Command, r.Success, r.ExitCode, r.TimedOut, r.DurationMs)
	out := head
	if r.Stdout != "" {
		out += "\nstdout:\n" + r.Stdout
	}
	if r.Stderr != "" {
		out += "\nstderr:\n" + r.Stderr
	}
	return out
}

func formatRunSummary(s runSummary) string {
	return fmt.Sprintf("%s (stdout %d bytes, stderr %d bytes)",
		runOutcomeLine(s.Command, s.Success, s.ExitCode, s.TimedOut, s.DurationMs),
		s.StdoutBytes, s.StderrBytes)
}

func runOutcomeLine(command string, success bool, exitCode int, timedOut bool, durationMs int64) string {
	switch {
	case timedOut:
		return fmt.Sprintf("%s TIMED OUT after %dms (exit code %d)", command, durationMs, exitCode)
	case success:
		return fmt.Sprintf("%s succeeded in %dms", command, durationMs)
	default:
		return fmt.Sprintf("%s failed with exit code %d in %dms", command, exitCode, durationMs)
	}
}
