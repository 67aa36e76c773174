// ABOUTME: MCP server setup for the commonspace study store.
// ABOUTME: Wraps the MCP server with a storage Repository and logger.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/sidewalklabs/commonspace-sub000/internal/storage"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
	log       zerolog.Logger
}

// NewServer creates a new MCP server backed by repo.
func NewServer(repo storage.Repository, log zerolog.Logger) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "commonspace",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		log:       log.With().Str("component", "mcp").Logger(),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info().Msg("serving MCP over stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
