// Package mcpserver exposes the prediction-market operations as Model
// Context Protocol tools. Every tool call is run through the plugin, so
// tool callers get the same validation, execution and replies as chat.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/alanyoungcy/predictplugin/internal/catalog"
	"github.com/alanyoungcy/predictplugin/internal/plugin"
)

// Plugin is what the tool handlers drive.
type Plugin interface {
	Handle(ctx context.Context, msg plugin.Message, cb plugin.Callback) (bool, error)
	Catalog() *catalog.Catalog
	Capabilities() catalog.Capabilities
}

// Server wraps an MCP server whose tools are the eligible operations.
type Server struct {
	mcp    *server.MCPServer
	plugin Plugin
	tools  []string
	logger *slog.Logger
}

// New registers one tool per operation this process can run, plus the
// free-form chat tool.
func New(p Plugin, version string, logger *slog.Logger) *Server {
	s := &Server{
		mcp:    server.NewMCPServer("predictd", version, server.WithToolCapabilities(false)),
		plugin: p,
		logger: logger.With(slog.String("component", "mcp")),
	}

	s.mcp.AddTool(toolChat, s.handleChat)
	s.tools = append(s.tools, ChatTool)

	for _, op := range p.Catalog().Eligible(p.Capabilities()) {
		s.mcp.AddTool(toolFor(op), s.handleOperation(op.ID))
		s.tools = append(s.tools, toolName(op))
	}
	return s
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string { return s.tools }

// ServeStdio serves MCP over stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP on stdio", slog.Int("tools", len(s.tools)))
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleChat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.run(ctx, plugin.Message{ID: uuid.NewString(), Text: text})
}

func (s *Server) handleOperation(id string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.run(ctx, plugin.Message{
			ID:     uuid.NewString(),
			Action: id,
			Params: req.GetArguments(),
		})
	}
}

// run hands msg to the plugin and turns its replies into a tool result.
// Operation failures are tool errors, not protocol errors.
func (s *Server) run(ctx context.Context, msg plugin.Message) (*mcp.CallToolResult, error) {
	var replies []plugin.Reply
	cb := func(_ context.Context, r plugin.Reply) error {
		replies = append(replies, r)
		return nil
	}
	if _, err := s.plugin.Handle(ctx, msg, cb); err != nil {
		s.logger.ErrorContext(ctx, "tool call failed",
			slog.String("message_id", msg.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("mcp: handle %s: %w", msg.ID, err)
	}
	if len(replies) == 0 {
		return mcp.NewToolResultError("no reply"), nil
	}

	texts := make([]string, 0, len(replies))
	failed := false
	var content map[string]any
	for _, r := range replies {
		texts = append(texts, r.Text)
		if ok, present := r.Content["success"].(bool); present && !ok {
			failed = true
		}
		if r.Content != nil {
			content = r.Content
		}
	}

	text := strings.Join(texts, "\n\n")
	var res *mcp.CallToolResult
	if failed {
		res = mcp.NewToolResultError(text)
	} else {
		res = mcp.NewToolResultText(text)
	}
	if content != nil {
		if data, err := json.Marshal(content); err == nil {
			res.Content = append(res.Content, mcp.NewTextContent(string(data)))
		}
	}
	return res, nil
}
