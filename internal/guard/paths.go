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

package guard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"toolbridge/internal/errors"
)

// ErrPathOutsideRoot indicates a path escapes every authorized root.
var ErrPathOutsideRoot = errors.New(errors.CodeValidation, "path outside authorized roots")

// RootPolicy confines working-directory and target-path arguments to a
// configured set of authorized roots. Built once at startup, read-only after.
type RootPolicy struct {
	roots []string
}

// NewRootPolicy builds a policy from the configured roots. Roots are
// resolved to absolute paths up front. An empty set confines tools to the
// process working directory rather than allowing everything.
func NewRootPolicy(roots []string) (*RootPolicy, error) {
	if len(roots) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("unable to determine working directory: %w", err)
		}
		roots = []string{wd}
	}
	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("invalid authorized root %q: %w", root, err)
		}
		if r, err := filepath.EvalSymlinks(abs); err == nil {
			abs = r
		}
		resolved = append(resolved, abs)
	}
	return &RootPolicy{roots: resolved}, nil
}

// Roots returns a copy of the authorized roots.
func (p *RootPolicy) Roots() []string {
	return append([]string{}, p.roots...)
}

// AssertAllowedRoot rejects a path that does not resolve inside one of the
// authorized roots. The tool name is included in the rejection so the agent
// can tell which call was blocked.
func (p *RootPolicy) AssertAllowedRoot(path, toolName string) error {
	if err := validatePathString(path); err != nil {
		return fmt.Errorf("%w: tool %q: %v", ErrPathOutsideRoot, toolName, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: tool %q: invalid path %q", ErrPathOutsideRoot, toolName, path)
	}
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	for _, root := range p.roots {
		if hasPathPrefix(abs, root) {
			return nil
		}
	}
	return fmt.Errorf("%w: tool %q: %q is not inside an authorized root", ErrPathOutsideRoot, toolName, path)
}

// validatePathString checks raw path input before resolution.
func validatePathString(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	return nil
}

// hasPathPrefix returns true when path is within base.
func hasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}
