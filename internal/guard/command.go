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

// Package guard holds the fail-closed checks every tool invocation passes
// before a subprocess is spawned: the executable allowlist, the flag
// injection guard, and the working-directory confinement guard.
package guard

import (
	"fmt"
	"strings"

	"toolbridge/internal/errors"
)

// ErrCommandNotAllowed indicates a requested executable is outside the allowlist.
var ErrCommandNotAllowed = errors.New(errors.CodeValidation, "command not allowed")

// DefaultAllowedCommands is the fixed set of executables the bridge may spawn.
// Entries are compared against the lowercased basename of the request, with
// one recognized executable extension stripped.
var DefaultAllowedCommands = []string{
	// Version control
	"git", "gh", "hg", "svn",
	// Build systems
	"go", "cargo", "bazel", "make", "cmake", "mvn", "gradle",
	// Package managers
	"npm", "npx", "yarn", "pnpm", "pip", "pip3", "poetry", "uv",
	// Runtimes and compilers
	"node", "python", "python3", "rustc", "javac", "tsc",
	// Containers and infrastructure
	"docker", "podman", "kubectl", "helm", "terraform",
	// Remote copy
	"ssh", "scp", "rsync",
	// Linters and formatters
	"golangci-lint", "gofmt", "eslint", "prettier", "ruff", "shellcheck",
	// Test runners
	"pytest", "jest",
}

// executable extensions stripped during normalization, matched case-insensitively.
var executableExtensions = []string{".cmd", ".exe", ".bat", ".sh"}

// CommandPolicy decides whether a requested executable may be spawned at all.
// It is built once at startup and read-only afterward.
type CommandPolicy struct {
	allowed map[string]struct{}
}

// NewCommandPolicy builds a policy from an explicit allowlist.
func NewCommandPolicy(allowed []string) *CommandPolicy {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[strings.ToLower(name)] = struct{}{}
	}
	return &CommandPolicy{allowed: set}
}

// DefaultCommandPolicy returns a policy over DefaultAllowedCommands.
func DefaultCommandPolicy() *CommandPolicy {
	return NewCommandPolicy(DefaultAllowedCommands)
}

// AssertAllowedCommand rejects any executable whose normalized basename is
// not on the allowlist. The empty string is always rejected.
func (p *CommandPolicy) AssertAllowedCommand(requested string) error {
	name := NormalizeExecutable(requested)
	if name == "" {
		return fmt.Errorf("%w: empty command", ErrCommandNotAllowed)
	}
	if _, ok := p.allowed[name]; !ok {
		return fmt.Errorf("%w: %q is not in the allowed command list", ErrCommandNotAllowed, requested)
	}
	return nil
}

// AssertNoPathQualifiedCommand rejects any command value containing a path
// separator. It is applied only where the command name itself is
// attacker-controlled free text: a crafted path can resolve to an allowed
// basename while invoking a different binary on disk.
func AssertNoPathQualifiedCommand(requested string) error {
	if strings.ContainsAny(requested, `/\`) {
		return fmt.Errorf("%w: %q must be a bare executable name without path separators", ErrCommandNotAllowed, requested)
	}
	return nil
}

// NormalizeExecutable reduces a requested command to its comparable form:
// the final path segment (split on both slash styles), lowercased, with one
// trailing executable extension removed.
func NormalizeExecutable(requested string) string {
	name := requested
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ToLower(name)
	for _, ext := range executableExtensions {
		if strings.HasSuffix(name, ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return name
}
