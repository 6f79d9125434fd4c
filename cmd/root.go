package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "donetick-mcp-server",
	Short: "MCP server for the Donetick task manager",
	Long: `donetick-mcp-server exposes a Donetick instance to AI assistants over
the Model Context Protocol. It provides tools to list, create, update,
complete and delete chores, and to look up circle members.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (env vars take precedence)")
}
