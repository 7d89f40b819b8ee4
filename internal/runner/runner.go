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

// Package runner spawns validated external commands without a shell and
// under a timeout and output-size bound.
package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// TimeoutExitCode is the conventional sentinel for a killed-on-timeout
	// process, matching the exit code of timeout(1).
	TimeoutExitCode = 124

	// SpawnExitCode marks a process that could not be started at all
	// (missing executable, permission denied).
	SpawnExitCode = -1

	// DefaultQueryTimeout applies to metadata queries (status, list, inspect).
	DefaultQueryTimeout = 30 * time.Second

	// DefaultBuildTimeout applies to long-running categories: install,
	// build, test.
	DefaultBuildTimeout = 300 * time.Second

	// MaxTimeout caps caller-supplied timeout overrides.
	MaxTimeout = 600 * time.Second

	// DefaultMaxOutputBytes caps each captured stream.
	DefaultMaxOutputBytes = 1 << 20

	truncationMarker = "\n[output truncated]"
)

// Command describes one external process invocation. Args are passed as a
// literal argument vector; shell metacharacters have no special meaning.
type Command struct {
	Executable string
	Args       []string
	Dir        string
	Env        map[string]string
	Timeout    time.Duration
	Stdin      string
}

// RunResult is the uniform outcome of one invocation. It is created once,
// immutable, and consumed by exactly one parser.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Success reports a clean zero exit without timeout.
func (r RunResult) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Runner executes commands with bounded output capture.
type Runner struct {
	maxOutputBytes int
	logger         zerolog.Logger
}

// New creates a runner. A non-positive maxOutputBytes selects the default cap.
func New(logger zerolog.Logger, maxOutputBytes int) *Runner {
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	return &Runner{maxOutputBytes: maxOutputBytes, logger: logger}
}

// Run spawns the command and waits for it to exit, be killed on timeout, or
// hit the output cap. Process-level failures are reported as data in the
// result, never as a Go error: each tool decides whether a non-zero exit is
// a thrown error or a structured partial failure.
func (r *Runner) Run(ctx context.Context, cmd Command) RunResult {
	timeout := ClampTimeout(cmd.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	proc := exec.CommandContext(ctx, cmd.Executable, cmd.Args...)
	if cmd.Dir != "" {
		proc.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		env := os.Environ()
		for k, v := range cmd.Env {
			env = append(env, k+"="+v)
		}
		proc.Env = env
	}
	if cmd.Stdin != "" {
		// Written to the child and closed; free-text bodies travel here
		// instead of argv.
		proc.Stdin = strings.NewReader(cmd.Stdin)
	}

	stdout := newCappedBuffer(r.maxOutputBytes)
	stderr := newCappedBuffer(r.maxOutputBytes)
	proc.Stdout = stdout
	proc.Stderr = stderr

	setProcessGroup(proc)
	proc.Cancel = func() error { return terminateProcess(proc) }
	proc.WaitDelay = 5 * time.Second

	start := time.Now()
	err := proc.Run()
	elapsed := time.Since(start)

	result := RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		result.ExitCode = TimeoutExitCode
	case err == nil:
		result.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Spawn failure: surface the message in stderr, not as an error.
			result.ExitCode = SpawnExitCode
			if result.Stderr != "" {
				result.Stderr += "\n"
			}
			result.Stderr += err.Error()
		}
	}

	r.logger.Debug().
		Str("executable", cmd.Executable).
		Strs("args", cmd.Args).
		Int("exit_code", result.ExitCode).
		Bool("timed_out", result.TimedOut).
		Dur("elapsed", elapsed).
		Msg("process finished")

	return result
}

// ClampTimeout normalizes a requested timeout: non-positive values fall back
// to the query default, and anything above MaxTimeout is capped.
func ClampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultQueryTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}
