// Package mcp exposes the Donetick client's operations as MCP tools over
// stdio. It is a thin adapter: every handler parses arguments, calls the
// injected client, and serializes the result.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheFitzZZ/donetick-mcp-server/internal/donetick"
)

// NewServer creates the MCP server with all chore tools registered.
func NewServer(client *donetick.Client, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"donetick-mcp-server",
		version,
		server.WithToolCapabilities(true),
	)

	registerListChoresTool(s, client)
	registerGetChoreTool(s, client)
	registerCreateChoreTool(s, client)
	registerUpdateChoreTool(s, client)
	registerCompleteChoreTool(s, client)
	registerDeleteChoreTool(s, client)
	registerGetCircleMembersTool(s, client)

	return s
}

// Serve runs the server on stdio until the client disconnects.
func Serve(client *donetick.Client, version string) error {
	return server.ServeStdio(NewServer(client, version))
}
