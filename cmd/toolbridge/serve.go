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

package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"toolbridge/internal/config"
	"toolbridge/internal/guard"
	"toolbridge/internal/registry"
	"toolbridge/internal/runner"
	"toolbridge/internal/toolkit"
)

const serverInstructions = `toolbridge wraps command-line developer tools.
Call discover_tools to register the full tool set; only core tools are
advertised at startup. Tool arguments are passed to the underlying
executable verbatim with no shell interpretation, so quoting is never
needed. Positional string arguments must not start with "-".`

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := initLogger(debugMode, logSink(cfg))
		reg, err := buildServer(logger, cfg)
		if err != nil {
			return err
		}
		logger.Info().Str("version", version).Msg("serving on stdio")
		return server.ServeStdio(reg.srv)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type wiredServer struct {
	srv *server.MCPServer
	reg *registry.Registry
}

// logSink picks the log destination: the flag wins, then the config file.
func logSink(cfg *config.Config) string {
	if logFile != "" {
		return logFile
	}
	return cfg.LogFile
}

// buildServer wires guards, runner, toolkit and registry onto a fresh MCP
// server.
func buildServer(logger zerolog.Logger, cfg *config.Config) (*wiredServer, error) {
	roots, err := guard.NewRootPolicy(cfg.AllowedRoots)
	if err != nil {
		return nil, fmt.Errorf("resolving allowed roots: %w", err)
	}

	deps := toolkit.Deps{
		Logger:       logger,
		Runner:       runner.New(logger, cfg.Runner.MaxOutputBytes),
		Commands:     guard.NewCommandPolicy(cfg.AllowedCommands),
		Roots:        roots,
		QueryTimeout: cfg.QueryTimeout(),
		BuildTimeout: cfg.BuildTimeout(),
	}

	srv := server.NewMCPServer(
		"toolbridge",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	reg := registry.New(logger, srv)
	for _, desc := range toolkit.All(deps) {
		if err := reg.Add(desc); err != nil {
			return nil, fmt.Errorf("adding tool %s: %w", desc.Tool.Name, err)
		}
	}
	reg.RegisterCore()

	logger.Info().
		Strs("roots", roots.Roots()).
		Int("tools", len(toolkit.All(deps))).
		Msg("server wired")

	return &wiredServer{srv: srv, reg: reg}, nil
}
