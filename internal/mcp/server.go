// Package mcp exposes the region, patient, complexity and module operations
// as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/anatomy-twin-server/internal/domain"
)

// ServerName is reported to MCP clients during initialization.
const ServerName = "anatomy-twin"

// Server registers a Toolset with the MCP SDK.
type Server struct {
	tools     *Toolset
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates the MCP server and registers every tool.
func NewServer(tools *Toolset, version string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		tools:     tools,
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil),
		logger:    logger,
	}
	for _, tool := range tools.Tools() {
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema,
		}, s.handler(tool.Name))
		logger.WithField("tool_name", tool.Name).Debug("Registered MCP tool")
	}
	logger.WithField("tool_count", len(tools.Tools())).Info("Successfully registered all tools")
	return s
}

// Run serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// HTTPHandler serves the tools over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcpServer }, nil)
}

// RunHTTP serves HTTPHandler on addr until ctx is done.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.HTTPHandler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Starting MCP server on HTTP")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		return s.call(ctx, name, args), nil
	}
}

// call runs a tool and renders its result as JSON text. Tool failures are
// reported in the result with IsError set, not as protocol errors.
func (s *Server) call(ctx context.Context, name string, args json.RawMessage) *mcp.CallToolResult {
	start := time.Now()
	entry := s.logger.WithField("tool", name)

	result, err := s.tools.Call(ctx, name, args)
	if err != nil {
		entry.WithError(err).WithField("code", domain.CodeOf(err)).Warn("Tool call failed")
		return errorResult(err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		entry.WithError(err).Error("Failed to encode tool result")
		return errorResult(domain.WrapAppError(domain.ErrCodeInternal, err, ""))
	}
	entry.WithField("duration", time.Since(start)).Debug("Tool call completed")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
	}
}

type toolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorResult(err error) *mcp.CallToolResult {
	payload, _ := json.Marshal(toolError{Code: domain.CodeOf(err), Message: err.Error()})
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		IsError: true,
	}
}
