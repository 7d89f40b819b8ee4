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

// Package limits defines the maximum input sizes every tool schema enforces
// before a value reaches the guards or the runner.
package limits

import (
	"fmt"

	"toolbridge/internal/errors"
)

const (
	// MaxShortString bounds identifiers: branch names, remote names, tags,
	// config keys, executable names.
	MaxShortString = 256

	// MaxString bounds free-text bodies: commit messages, PR bodies,
	// search patterns.
	MaxString = 16384

	// MaxPath bounds filesystem path arguments.
	MaxPath = 4096

	// MaxArrayItems bounds array-valued arguments (path lists, extra args).
	MaxArrayItems = 128
)

// CheckString rejects a string argument longer than max bytes.
func CheckString(name, value string, max int) error {
	if len(value) > max {
		return errors.New(errors.CodeValidation,
			fmt.Sprintf("parameter %q exceeds maximum length of %d bytes", name, max))
	}
	return nil
}

// CheckArray rejects an array argument with more than MaxArrayItems elements,
// then applies the per-element byte limit.
func CheckArray(name string, values []string, maxElem int) error {
	if len(values) > MaxArrayItems {
		return errors.New(errors.CodeValidation,
			fmt.Sprintf("parameter %q exceeds maximum of %d elements", name, MaxArrayItems))
	}
	for i, v := range values {
		if len(v) > maxElem {
			return errors.New(errors.CodeValidation,
				fmt.Sprintf("parameter %q element %d exceeds maximum length of %d bytes", name, i, maxElem))
		}
	}
	return nil
}
