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

// Package registry holds the tool descriptor table. Agents pay a fixed
// context cost per advertised tool, so only core tools are registered at
// startup; the rest stay deferred behind the discover_tools meta-tool.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"toolbridge/internal/errors"
)

// Registration errors.
var (
	ErrToolNotFound      = errors.New(errors.CodeRegistry, "tool not found")
	ErrAlreadyRegistered = errors.New(errors.CodeRegistry, "tool already registered")
)

// State is a descriptor's lifecycle position. The only transition is
// Deferred -> Registered; there is no unregister path.
type State int

const (
	Deferred State = iota
	Registered
)

func (s State) String() string {
	if s == Registered {
		return "registered"
	}
	return "deferred"
}

// ToolSink receives registered tools. *server.MCPServer satisfies it; tests
// substitute a recording fake.
type ToolSink interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// Descriptor declares one tool: its wire definition, its handler, and
// whether it is advertised eagerly at startup.
type Descriptor struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
	Core    bool
}

type entry struct {
	desc  Descriptor
	state State
}

// Registry owns the descriptor table. Descriptors are added during startup;
// after RegisterCore the table is read-only apart from the one-way lazy
// transition, which the mutex guards.
type Registry struct {
	mu     sync.Mutex
	logger zerolog.Logger
	sink   ToolSink
	order  []string
	tools  map[string]*entry
}

// New creates an empty registry writing registered tools to sink.
func New(logger zerolog.Logger, sink ToolSink) *Registry {
	return &Registry{
		logger: logger,
		sink:   sink,
		tools:  make(map[string]*entry),
	}
}

// Add declares a tool descriptor. Duplicate names are an error.
func (r *Registry) Add(desc Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := desc.Tool.Name
	if name == "" {
		return fmt.Errorf("%w: descriptor without a name", ErrToolNotFound)
	}
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.tools[name] = &entry{desc: desc, state: Deferred}
	r.order = append(r.order, name)
	return nil
}

// RegisterCore registers every core descriptor plus the discover_tools
// meta-tool, leaving the rest deferred.
func (r *Registry) RegisterCore() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.order {
		e := r.tools[name]
		if e.desc.Core {
			r.register(name, e)
		}
	}
	r.sink.AddTool(discoverTool(), r.handleDiscover)
	r.logger.Info().Int("total", len(r.order)).Msg("core tools registered")
}

// DiscoverAll transitions every deferred descriptor to registered and
// returns the names that changed state, in declaration order. Calling it
// again is a no-op.
func (r *Registry) DiscoverAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var registered []string
	for _, name := range r.order {
		e := r.tools[name]
		if e.state == Deferred {
			r.register(name, e)
			registered = append(registered, name)
		}
	}
	return registered
}

// register performs the one-way state transition. Callers hold the mutex.
func (r *Registry) register(name string, e *entry) {
	if e.state == Registered {
		return
	}
	r.sink.AddTool(e.desc.Tool, e.desc.Handler)
	e.state = Registered
	r.logger.Debug().Str("tool", name).Msg("tool registered")
}

// StateOf reports the lifecycle state of a named descriptor.
func (r *Registry) StateOf(name string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tools[name]
	if !ok {
		return Deferred, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return e.state, nil
}

// Snapshot lists every descriptor with its current state, sorted by name.
func (r *Registry) Snapshot() []ToolInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		e := r.tools[name]
		infos = append(infos, ToolInfo{
			Name:        name,
			Description: e.desc.Tool.Description,
			Core:        e.desc.Core,
			State:       e.state.String(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// ToolInfo is the introspection view of one descriptor.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Core        bool   `json:"core"`
	State       string `json:"state"`
}

// discoverResult is the structured payload of the discover_tools meta-tool.
type discoverResult struct {
	Registered []string `json:"registered"`
	Total      int      `json:"total"`
}

func discoverTool() mcp.Tool {
	return mcp.NewTool("discover_tools",
		mcp.WithDescription("Register and advertise the remaining deferred tools. "+
			"Call this when a needed tool is not in the current catalogue."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (r *Registry) handleDiscover(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	registered := r.DiscoverAll()
	result := discoverResult{Registered: registered, Total: len(r.order)}

	text := "no deferred tools remained"
	if len(registered) > 0 {
		text = fmt.Sprintf("registered %d additional tools", len(registered))
	}
	r.logger.Info().Strs("tools", registered).Msg("discovery requested")
	return mcp.NewToolResultStructured(result, text), nil
}
