package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TheFitzZZ/donetick-mcp-server/internal/config"
	"github.com/TheFitzZZ/donetick-mcp-server/internal/donetick"
	"github.com/TheFitzZZ/donetick-mcp-server/internal/logging"
	"github.com/TheFitzZZ/donetick-mcp-server/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol server. The server speaks JSON-RPC on
stdin/stdout; all logging goes to stderr.

Configuration comes from environment variables (DONETICK_BASE_URL plus
either DONETICK_USERNAME/DONETICK_PASSWORD or DONETICK_API_TOKEN), with an
optional YAML file via --config.

To use with Claude Desktop or another MCP client:
  {
    "mcpServers": {
      "donetick": {
        "command": "donetick-mcp-server",
        "args": ["serve"],
        "env": {
          "DONETICK_BASE_URL": "https://donetick.example.com",
          "DONETICK_API_TOKEN": "..."
        }
      }
    }
  }`,
	Example: `  # Start the server (for use by an MCP client)
  donetick-mcp-server serve

  # Probe it manually
  echo '{"jsonrpc":"2.0","method":"tools/list","id":1}' | donetick-mcp-server serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		log := logging.Setup(cfg.LogLevel)

		client, err := donetick.New(cfg, log)
		if err != nil {
			return fmt.Errorf("build client: %w", err)
		}

		// ServeStdio returns when stdin closes; a signal closes the client
		// first so in-flight requests drain and sockets are released.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			log.Info("shutting down", "signal", sig.String())
			client.Close()
			os.Exit(0)
		}()

		log.Info("starting Donetick MCP server", "base_url", cfg.BaseURL, "version", Version)
		err = mcp.Serve(client, Version)
		client.Close()
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
