package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the escalation actions",
	Long: `Start a Model Context Protocol (MCP) server that exposes every protocol
action as a tool. Agents call the tools directly without shell overhead.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  desktop-escalate serve
  desktop-escalate serve --transport streamable-http --port 8080
  desktop-escalate serve --metrics-port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	serveCmd.Flags().Int("metrics-port", 0, "Serve Prometheus metrics on this port (0 to disable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	metricsPort, _ := cmd.Flags().GetInt("metrics-port")

	cfg := MCPConfig{
		Transport:   transport,
		Port:        port,
		MetricsPort: metricsPort,
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	srv := newMCPServer(a)
	if err := srv.serve(cfg); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
