package toolkit

import (
	"context"
	"strings"
	"testing"

	"toolbridge/internal/runner"
)

func TestGoTestBuildsRunFlagFromPattern(t *testing.T) {
	fake := &fakeRunner{result: runner.RunResult{ExitCode: 0, Stdout: "ok\n"}}
	handler := GoTest(testDeps(t, fake)).Handler

	// The pattern is a regex and may start with characters the flag guard
	// rejects; it travels inside a flag the tool constructs itself.
	if _, err := handler(context.Background(), newRequest("go_test", map[string]any{
		"run":      "^TestGuard",
		"packages": []any{"./internal/..."},
	})); err != nil {
		t.Fatal(err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("expected one spawn, got %d", len(fake.calls))
	}
	joined := strings.Join(fake.calls[0].Args, " ")
	if joined != "test -run=^TestGuard ./internal/..." {
		t.Errorf("args = %q", joined)
	}
}

func TestGoTestDefaultsToAllPackages(t *testing.T) {
	fake := &fakeRunner{result: runner.RunResult{ExitCode: 0}}
	handler := GoTest(testDeps(t, fake)).Handler

	if _, err := handler(context.Background(), newRequest("go_test", nil)); err != nil {
		t.Fatal(err)
	}

	joined := strings.Join(fake.calls[0].Args, " ")
	if joined != "test ./..." {
		t.Errorf("args = %q", joined)
	}
	if fake.calls[0].Executable != "go" {
		t.Errorf("executable = %q", fake.calls[0].Executable)
	}
}

func TestGoTestRejectsFlagInjectionInPackages(t *testing.T) {
	fake := &fakeRunner{}
	handler := GoTest(testDeps(t, fake)).Handler

	res, err := handler(context.Background(), newRequest("go_test", map[string]any{
		"packages": []any{"-exec=evil"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected an error-flagged result")
	}
	if len(fake.calls) != 0 {
		t.Fatal("process spawned despite rejection")
	}
}

func TestNpmInstallGuardsPackageNames(t *testing.T) {
	fake := &fakeRunner{}
	handler := NpmInstall(testDeps(t, fake)).Handler

	res, err := handler(context.Background(), newRequest("npm_install", map[string]any{
		"packages": []any{"left-pad", "--global"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected an error-flagged result")
	}
	if len(fake.calls) != 0 {
		t.Fatal("process spawned despite rejection")
	}
}

func TestNpmInstallBuildsArgv(t *testing.T) {
	fake := &fakeRunner{result: runner.RunResult{ExitCode: 0}}
	handler := NpmInstall(testDeps(t, fake)).Handler

	if _, err := handler(context.Background(), newRequest("npm_install", map[string]any{
		"packages": []any{"left-pad"},
	})); err != nil {
		t.Fatal(err)
	}

	call := fake.calls[0]
	if call.Executable != "npm" || strings.Join(call.Args, " ") != "install left-pad" {
		t.Errorf("spawned %+v", call)
	}
	if call.Timeout != runner.DefaultBuildTimeout {
		t.Errorf("timeout = %v, want build default", call.Timeout)
	}
}

func TestDockerPsParsesLinesAndUsesQueryTimeout(t *testing.T) {
	fake := &fakeRunner{result: runner.RunResult{
		ExitCode: 0,
		Stdout:   `{"ID":"abc"}` + "\n" + `{"ID":"def"}` + "\n",
	}}
	handler := DockerPs(testDeps(t, fake)).Handler

	res, err := handler(context.Background(), newRequest("docker_ps", map[string]any{
		"compact": false,
	}))
	if err != nil {
		t.Fatal(err)
	}

	result, ok := res.StructuredContent.(dockerPsResult)
	if !ok {
		t.Fatalf("structured content type %T", res.StructuredContent)
	}
	if result.Count != 2 {
		t.Errorf("count = %d", result.Count)
	}
	if fake.calls[0].Timeout != runner.DefaultQueryTimeout {
		t.Errorf("timeout = %v, want query default", fake.calls[0].Timeout)
	}
}

func TestDockerPsFailureBecomesError(t *testing.T) {
	fake := &fakeRunner{result: runner.RunResult{
		ExitCode: 1,
		Stderr:   "Cannot connect to the Docker daemon",
	}}
	handler := DockerPs(testDeps(t, fake)).Handler

	res, err := handler(context.Background(), newRequest("docker_ps", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected an error-flagged result")
	}
}
