package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/DocChat/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools",
	Long: `Starts a Model Context Protocol server with the tools ask, ask_general,
list_categories and list_documents. It speaks JSON-RPC over stdio unless --http is set.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	server := mcpserver.New(service)
	if mcpHTTPAddr == "" {
		return server.Run(cmd.Context())
	}

	httpServer := &http.Server{
		Addr:              mcpHTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-cmd.Context().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	cmd.PrintErrf("MCP server listening on %s\n", mcpHTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
