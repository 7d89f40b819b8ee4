package guard

import (
	"errors"
	"strings"
	"testing"
)

func TestAssertAllowedCommand(t *testing.T) {
	policy := DefaultCommandPolicy()

	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{"bare name", "git", false},
		{"unix path", "/usr/bin/npm", false},
		{"relative path", "bin/go", false},
		{"windows path", `C:\Program Files\Git\git.exe`, false},
		{"extension cmd", "npm.cmd", false},
		{"extension bat", "gradle.BAT", false},
		{"extension sh", "cargo.sh", false},
		{"mixed case", "Docker", false},
		{"path and extension", `/opt/tools/terraform.exe`, false},
		{"not allowed", "rm", true},
		{"not allowed with path", "/bin/rm", true},
		{"not allowed with extension", "curl.exe", true},
		{"empty", "", true},
		{"only separators", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.AssertAllowedCommand(tt.command)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AssertAllowedCommand(%q) error = %v, wantErr %v", tt.command, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrCommandNotAllowed) {
					t.Errorf("expected ErrCommandNotAllowed, got %v", err)
				}
				if !strings.Contains(err.Error(), "not in the allowed") && !strings.Contains(err.Error(), "empty command") {
					t.Errorf("rejection should mention the allowlist: %v", err)
				}
			}
		})
	}
}

func TestAssertAllowedCommandCustomList(t *testing.T) {
	policy := NewCommandPolicy([]string{"mytool"})

	if err := policy.AssertAllowedCommand("mytool"); err != nil {
		t.Errorf("custom allowlist entry rejected: %v", err)
	}
	if err := policy.AssertAllowedCommand("git"); err == nil {
		t.Error("git should not be allowed by a custom list that omits it")
	}
}

func TestAssertNoPathQualifiedCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{"bare name", "npm", false},
		{"unix path", "/usr/bin/npm", true},
		{"relative path", "./npm", true},
		{"windows path", `tools\npm.cmd`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssertNoPathQualifiedCommand(tt.command)
			if (err != nil) != tt.wantErr {
				t.Errorf("AssertNoPathQualifiedCommand(%q) error = %v, wantErr %v", tt.command, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeExecutable(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git", "git"},
		{"/usr/bin/git", "git"},
		{`C:\tools\Git.EXE`, "git"},
		{"npm.cmd", "npm"},
		{"archive.sh.exe", "archive.sh"}, // only one extension is stripped
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeExecutable(tt.in); got != tt.want {
			t.Errorf("NormalizeExecutable(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
