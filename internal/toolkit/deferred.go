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
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"toolbridge/internal/compact"
	"toolbridge/internal/guard"
	"toolbridge/internal/limits"
	"toolbridge/internal/registry"
	"toolbridge/internal/runner"
)

// The tools below are deferred: they stay out of the advertised catalogue
// until the agent calls discover_tools.

// GoTest wraps `go test`. The run pattern is a regex and may legitimately
// start with characters the flag guard would reject, so the tool builds the
// -run flag itself instead of passing the pattern positionally.
func GoTest(d Deps) registry.Descriptor {
	tool := mcp.NewTool("go_test",
		mcp.WithDescription("Run Go tests for the given packages."),
		mcp.WithArray("packages",
			mcp.Description("Package patterns, e.g. [\"./...\"]. Values must not start with \"-\"."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("run",
			mcp.Description("Regular expression selecting which tests to run."),
		),
		mcp.WithString("cwd",
			mcp.Description("Module directory; must be inside an authorized root."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Execution timeout override in seconds, capped at 600."),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Set to false to always receive the full structured result."),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := d.callLogger("go_test")

		packages := request.GetStringSlice("packages", []string{"./..."})
		if err := limits.CheckArray("packages", packages, limits.MaxShortString); err != nil {
			return rejected(logger, err)
		}
		if err := guard.AssertNoFlagInjectionAll(packages, "packages"); err != nil {
			return rejected(logger, err)
		}

		pattern := request.GetString("run", "")
		if err := limits.CheckString("run", pattern, limits.MaxString); err != nil {
			return rejected(logger, err)
		}

		cwd := request.GetString("cwd", "")
		if err := d.checkDir(cwd, "go_test"); err != nil {
			return rejected(logger, err)
		}

		args := []string{"test"}
		if pattern != "" {
			args = append(args, "-run="+pattern)
		}
		args = append(args, packages...)

		start := time.Now()
		res := d.Runner.Run(ctx, runner.Command{
			Executable: "go",
			Args:       args,
			Dir:        cwd,
			Timeout:    timeoutSeconds(request, d.buildTimeout()),
		})

		report := runReport{
			Command:    "go test",
			Success:    res.Success(),
			ExitCode:   res.ExitCode,
			TimedOut:   res.TimedOut,
			DurationMs: time.Since(start).Milliseconds(),
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
		}
		rendering := compact.Render(report, res.Stdout+res.Stderr,
			formatRunReport, summarizeRunReport, formatRunSummary, forceFull(request))
		logger.Info().Bool("success", report.Success).Msg("go_test finished")
		return mcp.NewToolResultStructured(rendering.Structured, rendering.Text), nil
	}

	return registry.Descriptor{Tool: tool, Handler: handler, Core: false}
}

// NpmInstall wraps `npm install` with the long install timeout.
func NpmInstall(d Deps) registry.Descriptor {
	tool := mcp.NewTool("npm_install",
		mcp.WithDescription("Install npm dependencies, optionally adding named packages."),
		mcp.WithArray("packages",
			mcp.Description("Packages to add; empty installs from the lockfile. Values must not start with \"-\"."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("cwd",
			mcp.Description("Project directory; must be inside an authorized root."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Execution timeout override in seconds, capped at 600."),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Set to false to always receive the full structured result."),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := d.callLogger("npm_install")

		packages := request.GetStringSlice("packages", nil)
		if err := limits.CheckArray("packages", packages, limits.MaxShortString); err != nil {
			return rejected(logger, err)
		}
		if err := guard.AssertNoFlagInjectionAll(packages, "packages"); err != nil {
			return rejected(logger, err)
		}

		cwd := request.GetString("cwd", "")
		if err := d.checkDir(cwd, "npm_install"); err != nil {
			return rejected(logger, err)
		}

		start := time.Now()
		res := d.Runner.Run(ctx, runner.Command{
			Executable: "npm",
			Args:       append([]string{"install"}, packages...),
			Dir:        cwd,
			Timeout:    timeoutSeconds(request, d.buildTimeout()),
		})

		report := runReport{
			Command:    "npm install",
			Success:    res.Success(),
			ExitCode:   res.ExitCode,
			TimedOut:   res.TimedOut,
			DurationMs: time.Since(start).Milliseconds(),
			Stdout:     res.Stdout,
			Stderr:     res.Stderr,
		}
		rendering := compact.Render(report, res.Stdout+res.Stderr,
			formatRunReport, summarizeRunReport, formatRunSummary, forceFull(request))
		logger.Info().Bool("success", report.Success).Msg("npm_install finished")
		return mcp.NewToolResultStructured(rendering.Structured, rendering.Text), nil
	}

	return registry.Descriptor{Tool: tool, Handler: handler, Core: false}
}

type dockerPsResult struct {
	Count      int      `json:"count"`
	Containers []string `json:"containers"`
}

type dockerPsSummary struct {
	Count int `json:"count"`
}

// DockerPs wraps `docker ps` as a metadata query with the short timeout.
func DockerPs(d Deps) registry.Descriptor {
	tool := mcp.NewTool("docker_ps",
		mcp.WithDescription("List docker containers."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("all",
			mcp.Description("Include stopped containers."),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Set to false to always receive the full structured result."),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := d.callLogger("docker_ps")

		args := []string{"ps", "--format", "{{json .}}"}
		if request.GetBool("all", false) {
			args = append(args, "-a")
		}

		res := d.Runner.Run(ctx, runner.Command{
			Executable: "docker",
			Args:       args,
			Timeout:    d.queryTimeout(),
		})
		if !res.Success() {
			logger.Warn().Int("exit_code", res.ExitCode).Msg("docker ps failed")
			return mcp.NewToolResultError(processFailureText("docker ps", res)), nil
		}

		var containers []string
		for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
			if line != "" {
				containers = append(containers, line)
			}
		}
		result := dockerPsResult{Count: len(containers), Containers: containers}

		rendering := compact.Render(result, res.Stdout,
			formatDockerPs, summarizeDockerPs, formatDockerPsSummary, forceFull(request))
		logger.Info().Int("count", result.Count).Msg("docker_ps finished")
		return mcp.NewToolResultStructured(rendering.Structured, rendering.Text), nil
	}

	return registry.Descriptor{Tool: tool, Handler: handler, Core: false}
}

func summarizeDockerPs(r dockerPsResult) (dockerPsSummary, bool) {
	return dockerPsSummary{Count: r.Count}, true
}

func formatDockerPs(r dockerPsResult) string {
	if r.Count == 0 {
		return "no containers"
	}
	return strings.Join(r.Containers, "\n")
}

func formatDockerPsSummary(s dockerPsSummary) string {
	switch s.Count {
	case 0:
		return "no containers"
	case 1:
		return "1 container"
	default:
		return strconv.Itoa(s.Count) + " containers"
	}
}
