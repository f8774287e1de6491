// ABOUTME: MCP server setup exposing the critique pipeline to AI assistants.
// ABOUTME: Wraps the MCP server with the critique store path and analyzer tools.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with critique store access.
type Server struct {
	mcpServer     *mcp.Server
	critiquesFile string
}

// NewServer creates an MCP server reading critiques from critiquesFile.
func NewServer(critiquesFile string) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "roast",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer:     mcpServer,
		critiquesFile: critiquesFile,
	}
	s.registerTools()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
