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
	"io"
	"log"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	debugMode bool
	cfgFile   string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "toolbridge",
	Short: "Expose command-line developer tools to AI agents over MCP",
	Long: `toolbridge is an MCP stdio server that wraps external command-line
tools (git, go, npm, docker, ...) behind a uniform call/response contract.

Every invocation passes the same safety layer: an executable allowlist,
a flag-injection guard on positional arguments, working-directory
confinement, and a shell-free bounded process runner. Responses are
compacted when the structured form would cost the agent more context
than the raw CLI output.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default: toolbridge.json in the working directory)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (logs disabled by default; stdout carries the protocol)")
}

// initLogger builds the process logger. The MCP transport owns stdout, so
// logs go to a file or nowhere.
func initLogger(debug bool, logFilePath string) zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var output io.Writer
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		output = file
	} else {
		output = io.Discard
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "toolbridge.json"
}
