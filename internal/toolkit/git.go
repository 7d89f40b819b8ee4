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
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"toolbridge/internal/compact"
	"toolbridge/internal/guard"
	"toolbridge/internal/limits"
	"toolbridge/internal/registry"
	"toolbridge/internal/runner"
)

type gitStatusResult struct {
	Branch   string           `json:"branch"`
	Upstream string           `json:"upstream,omitempty"`
	Ahead    int              `json:"ahead"`
	Behind   int              `json:"behind"`
	Clean    bool             `json:"clean"`
	Entries  []gitStatusEntry `json:"entries"`
}

type gitStatusEntry struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

type gitStatusSummary struct {
	Branch  string `json:"branch"`
	Ahead   int    `json:"ahead"`
	Behind  int    `json:"behind"`
	Clean   bool   `json:"clean"`
	Changes int    `json:"changes"`
}

// GitStatus wraps `git status --porcelain=v1 -b`. The executable is
// hardcoded, so the path-qualified guard is unnecessary here.
func GitStatus(d Deps) registry.Descriptor {
	tool := mcp.NewTool("git_status",
		mcp.WithDescription("Show the working tree status of a git repository."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("cwd",
			mcp.Description("Repository directory; must be inside an authorized root."),
		),
		mcp.WithBoolean("compact",
			mcp.Description("Set to false to always receive the full structured result."),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := d.callLogger("git_status")

		cwd := request.GetString("cwd", "")
		if err := d.checkDir(cwd, "git_status"); err != nil {
			return rejected(logger, err)
		}

		res := d.Runner.Run(ctx, runner.Command{
			Executable: "git",
			Args:       []string{"status", "--porcelain=v1", "-b"},
			Dir:        cwd,
			Timeout:    d.queryTimeout(),
		})
		if !res.Success() {
			// No meaningful partial-success shape for a status query.
			logger.Warn().Int("exit_code", res.ExitCode).Msg("git status failed")
			return mcp.NewToolResultError(processFailureText("git status", res)), nil
		}

		status := parseGitStatus(res.Stdout)
		rendering := compact.Render(status, res.Stdout,
			formatGitStatus, summarizeGitStatus, formatGitStatusSummary, forceFull(request))
		logger.Info().Bool("compact", rendering.Decision.UseCompact).Msg("git_status finished")
		return mcp.NewToolResultStructured(rendering.Structured, rendering.Text), nil
	}

	return registry.Descriptor{Tool: tool, Handler: handler, Core: true}
}

type gitCommitResult struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exit_code"`
	Summary  string `json:"summary,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

// GitCommit commits staged (or listed) changes. The message travels via
// stdin with `-F -`, which sidesteps argv escaping entirely and is why the
// message parameter is exempt from the flag injection guard.
func GitCommit(d Deps) registry.Descriptor {
	tool := mcp.NewTool("git_commit",
		mcp.WithDescription("Create a git commit. The message is delivered on stdin, never argv."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Commit message body."),
		),
		mcp.WithArray("paths",
			mcp.Description("Restrict the commit to these paths. Values must not start with \"-\"."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("all",
			mcp.Description("Stage modified and deleted files before committing (git commit -a)."),
		),
		mcp.WithString("cwd",
			mcp.Description("Repository directory; must be inside an authorized root."),
		),
	)

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := d.callLogger("git_commit")

		message, err := request.RequireString("message")
		if err != nil {
			return rejected(logger, err)
		}
		if err := limits.CheckString("message", message, limits.MaxString); err != nil {
			return rejected(logger, err)
		}
		if strings.TrimSpace(message) == "" {
			return rejected(logger, fmt.Errorf("parameter %q must not be empty", "message"))
		}

		paths := request.GetStringSlice("paths", nil)
		if err := limits.CheckArray("paths", paths, limits.MaxPath); err != nil {
			return rejected(logger, err)
		}
		if err := guard.AssertNoFlagInjectionAll(paths, "paths"); err != nil {
			return rejected(logger, err)
		}

		cwd := request.GetString("cwd", "")
		if err := d.checkDir(cwd, "git_commit"); err != nil {
			return rejected(logger, err)
		}

		args := []string{"commit", "-F", "-"}
		if request.GetBool("all", false) {
			args = append(args, "-a")
		}
		if len(paths) > 0 {
			args = append(args, "--")
			args = append(args, paths...)
		}

		res := d.Runner.Run(ctx, runner.Command{
			Executable: "git",
			Args:       args,
			Dir:        cwd,
			Stdin:      message,
			Timeout:    d.queryTimeout(),
		})

		// Commits model structured failure: conflicts and empty-index errors
		// come back as data the agent can act on.
		result := gitCommitResult{
			Success:  res.Success(),
			ExitCode: res.ExitCode,
			Summary:  firstLine(res.Stdout),
			Stderr:   strings.TrimSpace(res.Stderr),
		}

		// No compact projection exists for a commit result; a nil mapper
		// keeps the full shape while the response still flows through the
		// compactor like every other tool's.
		rendering := compact.Render[gitCommitResult, gitCommitResult](result, res.Stdout+res.Stderr,
			formatGitCommit, nil, nil, forceFull(request))
		logger.Info().Bool("success", result.Success).Int("exit_code", result.ExitCode).Msg("git_commit finished")
		return mcp.NewToolResultStructured(rendering.Structured, rendering.Text), nil
	}

	return registry.Descriptor{Tool: tool, Handler: handler, Core: true}
}

// parseGitStatus reads `git status --porcelain=v1 -b` output. The first
// line is the branch header; every following line is a two-letter status
// code and a path.
func parseGitStatus(stdout string) gitStatusResult {
	status := gitStatusResult{Entries: []gitStatusEntry{}}
	lines := strings.Split(stdout, "\n")

	for i, line := range lines {
		if line == "" {
			continue
		}
		if i == 0 && strings.HasPrefix(line, "## ") {
			parseBranchHeader(line[3:], &status)
			continue
		}
		if len(line) < 4 {
			continue
		}
		status.Entries = append(status.Entries, gitStatusEntry{
			Status: strings.TrimSpace(line[:2]),
			Path:   line[3:],
		})
	}

	status.Clean = len(status.Entries) == 0
	return status
}

// parseBranchHeader handles forms like "main...origin/main [ahead 1, behind 2]",
// "main", and "No commits yet on main".
func parseBranchHeader(header string, status *gitStatusResult) {
	if rest, ok := strings.CutPrefix(header, "No commits yet on "); ok {
		status.Branch = rest
		return
	}

	name := header
	if i := strings.Index(name, " ["); i >= 0 {
		counts := name[i+2 : len(name)-1]
		name = name[:i]
		for _, part := range strings.Split(counts, ", ") {
			if n, ok := strings.CutPrefix(part, "ahead "); ok {
				status.Ahead, _ = strconv.Atoi(n)
			}
			if n, ok := strings.CutPrefix(part, "behind "); ok {
				status.Behind, _ = strconv.Atoi(n)
			}
		}
	}
	if branch, upstream, found := strings.Cut(name, "..."); found {
		status.Branch = branch
		status.Upstream = upstream
	} else {
		status.Branch = name
	}
}

func summarizeGitStatus(s gitStatusResult) (gitStatusSummary, bool) {
	return gitStatusSummary{
		Branch:  s.Branch,
		Ahead:   s.Ahead,
		Behind:  s.Behind,
		Clean:   s.Clean,
		Changes: len(s.Entries),
	}, true
}

func formatGitStatus(s gitStatusResult) string {
	var b strings.Builder
	b.WriteString(gitBranchLine(s.Branch, s.Ahead, s.Behind, s.Clean, len(s.Entries)))
	for _, e := range s.Entries {
		b.WriteString(fmt.Sprintf("\n%s %s", e.Status, e.Path))
	}
	return b.String()
}

func formatGitStatusSummary(s gitStatusSummary) string {
	return gitBranchLine(s.Branch, s.Ahead, s.Behind, s.Clean, s.Changes)
}

func gitBranchLine(branch string, ahead, behind int, clean bool, changes int) string {
	line := "on branch " + branch
	if ahead > 0 || behind > 0 {
		line += fmt.Sprintf(" (ahead %d, behind %d)", ahead, behind)
	}
	if clean {
		line += ", working tree clean"
	} else {
		line += fmt.Sprintf(", %d changed entries", changes)
	}
	return line
}

func formatGitCommit(r gitCommitResult) string {
	if r.Success {
		if r.Summary != "" {
			return "committed: " + r.Summary
		}
		return "committed"
	}
	text := fmt.Sprintf("commit failed with exit code %d", r.ExitCode)
	if r.Stderr != "" {
		text += ": " + r.Stderr
	}
	return text
}

func processFailureText(what string, res runner.RunResult) string {
	if res.TimedOut {
		return fmt.Sprintf("%s TIMED OUT (exit code %d)", what, res.ExitCode)
	}
	text := fmt.Sprintf("%s failed with exit code %d", what, res.ExitCode)
	if trimmed := strings.TrimSpace(res.Stderr); trimmed != "" {
		text += ": " + trimmed
	}
	return text
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
