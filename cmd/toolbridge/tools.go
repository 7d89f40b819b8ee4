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
	"sort"

	"github.com/spf13/cobra"

	"toolbridge/internal/config"
	"toolbridge/internal/guard"
	"toolbridge/internal/runner"
	"toolbridge/internal/toolkit"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the server exposes",
	Long: `Prints every tool in the catalog with its registration mode.
Core tools are advertised as soon as the server starts; deferred tools
become visible after a client calls discover_tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := initLogger(debugMode, logSink(cfg))
		roots, err := guard.NewRootPolicy(cfg.AllowedRoots)
		if err != nil {
			return fmt.Errorf("resolving allowed roots: %w", err)
		}
		deps := toolkit.Deps{
			Logger:       logger,
			Runner:       runner.New(logger, cfg.Runner.MaxOutputBytes),
			Commands:     guard.NewCommandPolicy(cfg.AllowedCommands),
			Roots:        roots,
			QueryTimeout: cfg.QueryTimeout(),
			BuildTimeout: cfg.BuildTimeout(),
		}

		descriptors := toolkit.All(deps)
		sort.Slice(descriptors, func(i, j int) bool {
			return descriptors[i].Tool.Name < descriptors[j].Tool.Name
		})

		out := cmd.OutOrStdout()
		for _, desc := range descriptors {
			mode := "deferred"
			if desc.Core {
				mode = "core"
			}
			fmt.Fprintf(out, "%-16s %-8s %s\n", desc.Tool.Name, mode, desc.Tool.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
