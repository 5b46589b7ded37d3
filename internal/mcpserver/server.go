// Package mcpserver exposes the question answering service as MCP tools, over stdio for
// local agents and over streamable HTTP under the API server.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/akolanti/DocChat/internal/rag"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "1.0.0"

type Server struct {
	service rag.Service
	server  *mcp.Server
	logger  *logger_i.Logger
}

func New(service rag.Service) *Server {
	s := &Server{
		service: service,
		server:  mcp.NewServer(&mcp.Implementation{Name: "docchat", Version: Version}, nil),
		logger:  logger_i.NewLogger("MCP Server"),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}
