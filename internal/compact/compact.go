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

// Package compact decides, after a tool call, how much of the structured
// result goes back to the agent so a response never costs more context than
// the raw CLI output it was parsed from.
package compact

import "encoding/json"

// Decision reasons.
const (
	ReasonExplicit      = "explicit"
	ReasonSizeHeuristic = "size-heuristic"
	ReasonDefault       = "default"
)

// Decision records which projection was chosen and why. Derived per call,
// never cached.
type Decision struct {
	UseCompact bool
	Reason     string
}

// Rendering is the agent-facing payload: a human-readable text and the
// structured value it was formatted from. The text never carries information
// absent from Structured.
type Rendering struct {
	Text       string
	Structured any
	Decision   Decision
}

// Render picks between the full structured result and its compact
// projection. forceFull is the caller's escape hatch and always wins.
// Otherwise the serialized size of the full payload is compared against the
// raw CLI text that produced it: when restructuring into JSON cost more
// bytes than it saved, the compact projection is preferred. A projection
// that cannot be derived falls back to the full representation rather than
// failing the call.
func Render[T, C any](
	structured T,
	rawText string,
	fullFormat func(T) string,
	compactMap func(T) (C, bool),
	compactFormat func(C) string,
	forceFull bool,
) Rendering {
	if forceFull {
		return Rendering{
			Text:       fullFormat(structured),
			Structured: structured,
			Decision:   Decision{UseCompact: false, Reason: ReasonExplicit},
		}
	}

	full := Rendering{
		Text:       fullFormat(structured),
		Structured: structured,
		Decision:   Decision{UseCompact: false, Reason: ReasonDefault},
	}

	if compactMap == nil || compactFormat == nil {
		return full
	}
	projected, ok := compactMap(structured)
	if !ok {
		return full
	}
	encoded, err := json.Marshal(structured)
	if err != nil {
		return full
	}
	if len(encoded) <= len(rawText) {
		// The full payload is already a net win over the raw text.
		return full
	}

	return Rendering{
		Text:       compactFormat(projected),
		Structured: projected,
		Decision:   Decision{UseCompact: true, Reason: ReasonSizeHeuristic},
	}
}
