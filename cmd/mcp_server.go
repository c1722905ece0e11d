package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/mj1618/desktop-escalate/internal/version"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// mcpServer exposes the dispatcher as MCP tools. The dispatcher serializes
// calls, so concurrent tool calls never drive the desktop at the same time.
type mcpServer struct {
	app *app
	mcp *mcpserver.MCPServer
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport   string
	Port        int
	MetricsPort int
}

// mcpTool binds a tool definition to the protocol action it runs.
type mcpTool struct {
	action string
	tool   mcp.Tool
}

func newMCPServer(a *app) *mcpServer {
	s := &mcpServer{
		app: a,
		mcp: mcpserver.NewMCPServer("desktop-escalate", version.Version),
	}
	for _, t := range mcpTools() {
		s.mcp.AddTool(t.tool, s.handler(t.action))
	}
	return s
}

// serve starts the metrics endpoint when configured, then the MCP server
// with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	if cfg.MetricsPort > 0 {
		go s.serveMetrics(cfg.MetricsPort)
	}
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *mcpServer) serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.app.metrics.Handler())
	addr := fmt.Sprintf(":%d", port)
	s.app.log.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.app.log.Error("metrics server stopped", zap.Error(err))
	}
}

func (s *mcpServer) handler(action string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp := s.app.dispatcher.Handle(ctx, server.Request{Action: action, Params: request.GetArguments()})
		if !resp.Success {
			return mcp.NewToolResultError(resultToText(resp)), nil
		}
		return mcp.NewToolResultText(resultToText(resp)), nil
	}
}

// resultToText serializes a protocol response to YAML for MCP responses.
func resultToText(resp server.Response) string {
	b, err := yaml.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("success: %v\nerror: %s", resp.Success, resp.Error)
	}
	return string(b)
}

func mcpTools() []mcpTool {
	project := mcp.WithString("project", mcp.Description("Project holding the conversation; empty searches the default list"))
	runID := mcp.WithString("run_id", mcp.Description("Correlation id echoed in the response"))

	return []mcpTool{
		{server.ActionProbe, mcp.NewTool("probe_availability",
			mcp.WithDescription("Report platform capabilities, whether the app is running, its window and the send button state. Does not act on the app."),
			runID,
		)},
		{server.ActionFocus, mcp.NewTool("focus",
			mcp.WithDescription("Bring the app's main window to the foreground."),
			runID,
		)},
		{server.ActionNavigate, mcp.NewTool("navigate_to_conversation",
			mcp.WithDescription("Open the navigation panel, select the project and open the named conversation in the running app."),
			project,
			mcp.WithString("conversation", mcp.Required(), mcp.Description("Conversation title")),
			runID,
		)},
		{server.ActionSend, mcp.NewTool("send_message",
			mcp.WithDescription("Paste a prompt into the open conversation and submit it."),
			mcp.WithString("message", mcp.Required(), mcp.Description("Prompt text")),
			runID,
		)},
		{server.ActionWait, mcp.NewTool("wait_for_completion",
			mcp.WithDescription("Wait until the app has finished generating its reply."),
			mcp.WithNumber("timeout_ms", mcp.Description("Maximum wait in milliseconds; 0 uses the configured timeout")),
			runID,
		)},
		{server.ActionFetch, mcp.NewTool("fetch_response",
			mcp.WithDescription("Copy the latest reply of the open conversation."),
			runID,
		)},
		{server.ActionEscalate, mcp.NewTool("full_escalation",
			mcp.WithDescription("Restart the app, open the conversation, submit the prompt, wait for the reply and return it. Recoverable failures restart the whole flow."),
			project,
			mcp.WithString("conversation", mcp.Required(), mcp.Description("Conversation title")),
			mcp.WithString("message", mcp.Required(), mcp.Description("Prompt text")),
			mcp.WithNumber("timeout_ms", mcp.Description("Response timeout in milliseconds; 0 uses the configured timeout")),
			runID,
		)},
	}
}
