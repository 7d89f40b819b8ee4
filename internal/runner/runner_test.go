package runner

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestRunner(maxBytes int) *Runner {
	return New(zerolog.Nop(), maxBytes)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on POSIX utilities")
	}
}

func TestRunArgsArePassedLiterally(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(0)

	// Shell metacharacters must arrive as plain argv bytes: no shell ever
	// sees them.
	res := r.Run(context.Background(), Command{
		Executable: "echo",
		Args:       []string{"a;b", "c|d", "`whoami`", "$(id)"},
		Timeout:    10 * time.Second,
	})

	if !res.Success() {
		t.Fatalf("echo failed: %+v", res)
	}
	want := "a;b c|d `whoami` $(id)\n"
	if res.Stdout != want {
		t.Errorf("stdout = %q, want %q", res.Stdout, want)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(0)

	res := r.Run(context.Background(), Command{
		Executable: "sh",
		Args:       []string{"-c", "echo out; echo err >&2; exit 3"},
		Timeout:    10 * time.Second,
	})

	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if res.TimedOut {
		t.Error("unexpected timeout")
	}
	if !strings.Contains(res.Stdout, "out") {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "err") {
		t.Errorf("stderr = %q", res.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(0)

	start := time.Now()
	res := r.Run(context.Background(), Command{
		Executable: "sleep",
		Args:       []string{"5"},
		Timeout:    100 * time.Millisecond,
	})

	if !res.TimedOut {
		t.Fatal("expected TimedOut")
	}
	if res.ExitCode != TimeoutExitCode {
		t.Errorf("exit code = %d, want %d", res.ExitCode, TimeoutExitCode)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
}

func TestRunStdin(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(0)

	res := r.Run(context.Background(), Command{
		Executable: "sh",
		Args:       []string{"-c", "cat"},
		Stdin:      "first line\n--second line starts with dashes\n",
		Timeout:    10 * time.Second,
	})

	if !res.Success() {
		t.Fatalf("cat failed: %+v", res)
	}
	if res.Stdout != "first line\n--second line starts with dashes\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestRunOutputCap(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(64)

	res := r.Run(context.Background(), Command{
		Executable: "sh",
		Args:       []string{"-c", "printf '%01024d' 0"},
		Timeout:    10 * time.Second,
	})

	if !strings.HasSuffix(res.Stdout, truncationMarker) {
		t.Errorf("expected truncation marker, got %q", res.Stdout)
	}
	if len(res.Stdout) > 64+len(truncationMarker) {
		t.Errorf("output exceeds cap: %d bytes", len(res.Stdout))
	}
}

func TestRunSpawnFailureIsData(t *testing.T) {
	r := newTestRunner(0)

	res := r.Run(context.Background(), Command{
		Executable: "definitely-not-a-real-binary-xyz",
		Timeout:    10 * time.Second,
	})

	if res.ExitCode != SpawnExitCode {
		t.Errorf("exit code = %d, want %d", res.ExitCode, SpawnExitCode)
	}
	if res.Stderr == "" {
		t.Error("spawn failure should leave a message in stderr")
	}
	if res.TimedOut {
		t.Error("spawn failure is not a timeout")
	}
}

func TestRunEnvOverlay(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(0)

	res := r.Run(context.Background(), Command{
		Executable: "sh",
		Args:       []string{"-c", "printf '%s' \"$TOOLBRIDGE_TEST_VAR\""},
		Env:        map[string]string{"TOOLBRIDGE_TEST_VAR": "overlay"},
		Timeout:    10 * time.Second,
	})

	if res.Stdout != "overlay" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "overlay")
	}
}

func TestRunWorkingDirectory(t *testing.T) {
	skipOnWindows(t)
	r := newTestRunner(0)

	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}

	res := r.Run(context.Background(), Command{
		Executable: "pwd",
		Dir:        dir,
		Timeout:    10 * time.Second,
	})

	if !res.Success() {
		t.Fatalf("pwd failed: %+v", res)
	}
	got, err := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	if err != nil {
		t.Fatal(err)
	}
	if got != resolved {
		t.Errorf("pwd = %q, want %q", got, resolved)
	}
}

func TestClampTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero falls back to query default", 0, DefaultQueryTimeout},
		{"negative falls back to query default", -time.Second, DefaultQueryTimeout},
		{"within bounds", time.Minute, time.Minute},
		{"build default passes", DefaultBuildTimeout, DefaultBuildTimeout},
		{"above cap is clamped", 2 * MaxTimeout, MaxTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampTimeout(tt.in); got != tt.want {
				t.Errorf("ClampTimeout(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(4)

	n, err := b.Write([]byte("abcdef"))
	if err != nil || n != 6 {
		t.Fatalf("Write = (%d, %v), want (6, nil)", n, err)
	}
	if !b.Truncated() {
		t.Error("expected truncation")
	}
	if b.String() != "abcd"+truncationMarker {
		t.Errorf("String() = %q", b.String())
	}

	small := newCappedBuffer(16)
	if _, err := small.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if small.Truncated() {
		t.Error("unexpected truncation")
	}
	if small.String() != "hi" {
		t.Errorf("String() = %q", small.String())
	}
}
