package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/junozone1110/faqbot-1/internal/core/domain"
	"github.com/junozone1110/faqbot-1/internal/core/ports"
)

const (
	serverName    = "faqbot"
	serverVersion = "0.1.0"
)

// Server exposes the conversation engine as MCP tools.
type Server struct {
	handler ports.MessageHandler
	catalog *domain.Catalog
	logger  *slog.Logger
}

func NewServer(handler ports.MessageHandler, catalog *domain.Catalog, logger *slog.Logger) *Server {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{handler: handler, catalog: catalog, logger: logger}
}

// MCPServer builds the tool server.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true))

	ask := mcp.NewTool("ask_legal_question",
		mcp.WithDescription("Send one message of a legal FAQ conversation. The first message of a thread asks for a legal domain; later messages answer follow-up questions until an answer with sources is returned."),
		mcp.WithString("thread_key", mcp.Required(), mcp.Description("Conversation thread identifier. Reuse it for follow-up messages.")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Question, clarification, or domain choice.")),
		mcp.WithString("message_ts", mcp.Description("Message identifier within the thread.")),
		mcp.WithString("selected_domain", mcp.Description("Domain id from list_domains, when already known.")),
	)
	srv.AddTool(ask, s.askLegalQuestion)

	list := mcp.NewTool("list_domains",
		mcp.WithDescription("List the legal domains the corpus covers."),
	)
	srv.AddTool(list, s.listDomains)

	return srv
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCPServer())
}

func (s *Server) askLegalQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	threadKey, err := req.RequireString("thread_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	action, err := s.handler.HandleMessage(ctx, domain.InboundMessage{
		ThreadKey:      threadKey,
		MessageTS:      req.GetString("message_ts", ""),
		Text:           text,
		SelectedDomain: req.GetString("selected_domain", ""),
	})
	if err != nil {
		s.logger.Warn("mcp_ask_failed", "thread_key", threadKey, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", domain.ErrorKindOf(err), err)), nil
	}
	return jsonResult(action)
}

func (s *Server) listDomains(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{"domains": s.catalog.Domains()})
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
