// Package commands provides the CLI entry point for the mcp-lsp bridge.
package commands

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/axivo/mcp-lsp/internal/logging"
)

// Version information set at build time.
var (
	Version   = "1.0.0"
	BuildTime = "dev"
)

var (
	logLevel string
	logFile  bool
	pretty   bool
)

var rootCmd = &cobra.Command{
	Use:     "mcp-lsp-bridge",
	Short:   "Multiplexing bridge between MCP tools and LSP servers",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logging.Init(logging.Config{
			Level:     logging.ParseLevel(logLevel),
			Output:    os.Stderr,
			Pretty:    pretty,
			LogToFile: logFile,
		})
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Write logs to a timestamped file under /tmp")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Use human-readable console log output")
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal().Err(err).Msg("mcp-lsp-bridge exited with error")
	}
}
