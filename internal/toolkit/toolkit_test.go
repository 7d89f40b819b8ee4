package toolkit

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"toolbridge/internal/guard"
	"toolbridge/internal/runner"
)

// fakeRunner records invocations and plays back a canned result, so handler
// tests never spawn real processes.
type fakeRunner struct {
	calls  []runner.Command
	result runner.RunResult
}

func (f *fakeRunner) Run(ctx context.Context, cmd runner.Command) runner.RunResult {
	f.calls = append(f.calls, cmd)
	return f.result
}

func testDeps(t *testing.T, fake *fakeRunner) Deps {
	t.Helper()
	roots, err := guard.NewRootPolicy([]string{t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return Deps{
		Logger:   zerolog.Nop(),
		Runner:   fake,
		Commands: guard.DefaultCommandPolicy(),
		Roots:    roots,
	}
}

func newRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return text.Text
}

func TestAllDescriptorsAreWellFormed(t *testing.T) {
	descs := All(testDeps(t, &fakeRunner{}))

	seen := map[string]bool{}
	coreCount := 0
	for _, d := range descs {
		if d.Tool.Name == "" {
			t.Error("descriptor without a name")
		}
		if seen[d.Tool.Name] {
			t.Errorf("duplicate descriptor %q", d.Tool.Name)
		}
		seen[d.Tool.Name] = true
		if d.Handler == nil {
			t.Errorf("descriptor %q has no handler", d.Tool.Name)
		}
		if d.Core {
			coreCount++
		}
	}
	if coreCount == 0 || coreCount == len(descs) {
		t.Errorf("expected a mix of core and deferred tools, got %d core of %d", coreCount, len(descs))
	}
}

func TestForceFull(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want bool
	}{
		{"unset", map[string]any{}, false},
		{"compact true", map[string]any{"compact": true}, false},
		{"compact false", map[string]any{"compact": false}, true},
		{"non-boolean", map[string]any{"compact": "no"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := forceFull(newRequest("run_command", tt.args)); got != tt.want {
				t.Errorf("forceFull = %v, want %v", got, tt.want)
			}
		})
	}
}
