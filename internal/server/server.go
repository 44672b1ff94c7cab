// Package server provides the MCP server that exposes the search client as tools.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/logger"
	"github.com/brizzai/searchkit/internal/openapi"
	"github.com/brizzai/searchkit/internal/requester"
	"github.com/brizzai/searchkit/internal/server/handler"
	"github.com/brizzai/searchkit/internal/server/tool"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server represents the MCP server instance. It supports SSE, HTTP and STDIO
// modes.
type Server struct {
	config  *config.Config
	mcp     *mcpserver.MCPServer
	handler *handler.Handler
	tool    *tool.Handler
}

// NewServer creates a new MCP server with the search tools registered, plus
// one tool per catalog operation when a catalog is given.
func NewServer(cfg *config.Config, r requester.Requester, builder *requester.HTTPRequestBuilder, catalog *openapi.Catalog) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if r == nil {
		return nil, fmt.Errorf("requester cannot be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("request builder cannot be nil")
	}

	srv := &Server{
		config: cfg,
		mcp: mcpserver.NewMCPServer(
			cfg.Server.Name,
			cfg.Server.Version,
			mcpserver.WithToolCapabilities(false),
		),
		handler: handler.NewHandler(),
		tool:    tool.NewHandler(r, builder),
	}
	srv.setupTools(catalog)
	return srv, nil
}

func (s *Server) setupTools(catalog *openapi.Catalog) {
	names := []string{tool.SearchRequestName, tool.GenerateSecuredKeyName}
	s.mcp.AddTool(tool.SearchRequestTool(), s.tool.SearchRequest)
	s.mcp.AddTool(tool.GenerateSecuredKeyTool(), s.tool.GenerateSecuredKey)

	if catalog != nil {
		for _, op := range catalog.Operations() {
			if op.Tool.Name == tool.SearchRequestName || op.Tool.Name == tool.GenerateSecuredKeyName {
				logger.Warn("Skipping operation shadowing a built-in tool", zap.String("tool", op.Tool.Name))
				continue
			}
			s.mcp.AddTool(op.Tool, s.tool.Operation(op))
			names = append(names, op.Tool.Name)
		}
	}
	logger.Debug("Registered tools", zap.Strings("tools", names))
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

func (s *Server) ServeSSE(ctx context.Context) error {
	logger.Info("Starting SSE server")

	sseServer := mcpserver.NewSSEServer(
		s.mcp,
		mcpserver.WithBaseURL(fmt.Sprintf("http://%s:%d", s.config.Server.Host, s.config.Server.Port)),
	)

	return s.serveHTTP(ctx, sseServer, "SSE")
}

func (s *Server) ServeHTTP(ctx context.Context) error {
	logger.Info("Starting HTTP server")
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	return s.serveHTTP(ctx, httpServer, "HTTP")
}

func (s *Server) serveHTTP(ctx context.Context, handler http.Handler, mode string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler.CreateHTTPHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server",
			zap.String("mode", mode),
			zap.String("address", addr),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server",
			zap.String("mode", mode),
			zap.Duration("timeout", shutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

func (s *Server) ServeSTDIO(ctx context.Context) error {
	logger.Info("Starting STDIO server")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// Start starts the server in the configured mode (SSE, HTTP, or STDIO).
// It returns an error if the server fails to start or encounters an error
// during operation.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting server",
		zap.String("mode", string(s.config.Server.Mode)),
		zap.String("version", s.config.Server.Version),
	)

	switch s.config.Server.Mode {
	case config.ServerModeSSE:
		return s.ServeSSE(ctx)
	case config.ServerModeHTTP:
		return s.ServeHTTP(ctx)
	case config.ServerModeSTDIO:
		return s.ServeSTDIO(ctx)
	default:
		return fmt.Errorf("unsupported server mode: %s", s.config.Server.Mode)
	}
}

// Module provides the MCP server dependencies
var Module = fx.Module("mcp_server",
	fx.Provide(
		NewServer,
	),
)
