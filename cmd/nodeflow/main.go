// Package main provides the nodeflow CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nodeflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "nodeflow",
	Short: "Dataflow node editor engine",
	Long: `nodeflow hosts a typed dataflow graph: nodes with typed ports, connections
with converter insertion, and interactive drag sessions, served over HTTP
with an SSE event stream.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP editor server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var validateCmd = &cobra.Command{
	Use:   "validate <scene-file>",
	Short: "Load a scene file and report anything that would be skipped",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var convertCmd = &cobra.Command{
	Use:   "convert <src> <dst>",
	Short: "Convert a scene file between JSON and YAML",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the registered node types",
	Args:  cobra.NoArgs,
	RunE:  runTypes,
}

var (
	configPath string
	listenAddr string
	dbPath     string
	scenePath  string
	watchScene bool
	saveOnExit bool
	jsonFlag   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: search $"+config.EnvConfigPath+" and standard locations)")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "SQLite scene store path (overrides config)")
	serveCmd.Flags().StringVar(&scenePath, "scene", "", "Scene file to load at startup (overrides config)")
	serveCmd.Flags().BoolVar(&watchScene, "watch", false, "Reload the scene file when it changes")
	serveCmd.Flags().BoolVar(&saveOnExit, "save-on-exit", false, "Write the scene back to the scene file on shutdown")

	validateCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output the load report as JSON")
	typesCmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(typesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise searches the standard
// locations
func loadConfig() (*config.Config, string, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}
