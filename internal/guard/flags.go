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
	"strings"

	"toolbridge/internal/errors"
)

// ErrFlagInjection indicates a positional argument would be parsed as a flag.
var ErrFlagInjection = errors.New(errors.CodeValidation, "flag injection")

// AssertNoFlagInjection rejects a value whose first non-whitespace character
// is a dash. Only leading spaces and tabs are trimmed before the check: CLIs
// treat " --force" as a flag regardless of the surrounding whitespace, so
// whitespace cannot be used to smuggle one. Dashes anywhere past the first
// character ("my-branch", "feature/auth") are fine.
//
// Parameters whose semantics require a leading dash (regex patterns, bodies
// delivered via stdin) are deliberately not routed through this guard.
func AssertNoFlagInjection(value, parameterName string) error {
	trimmed := strings.TrimLeft(value, " \t")
	if strings.HasPrefix(trimmed, "-") {
		// The value is embedded verbatim: %q would escape the very tab and
		// space bytes used to smuggle the flag, hiding them from the caller.
		return fmt.Errorf("%w: parameter %q with value \"%s\" must not start with \"-\"", ErrFlagInjection, parameterName, value)
	}
	return nil
}

// AssertNoFlagInjectionAll applies AssertNoFlagInjection to each element of
// an array-valued parameter.
func AssertNoFlagInjectionAll(values []string, parameterName string) error {
	for _, v := range values {
		if err := AssertNoFlagInjection(v, parameterName); err != nil {
			return err
		}
	}
	return nil
}
