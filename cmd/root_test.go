package cmd

import (
	"strings"
	"testing"

	"github.com/mj1618/desktop-escalate/internal/server"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{"probe", "focus", "navigate", "send", "wait", "fetch", "escalate", "layout", "run", "serve"}
	commands := rootCmd.Commands()

	found := make(map[string]bool)
	for _, c := range commands {
		found[c.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	if rootCmd.Version == "" {
		t.Error("root command version should be set")
	}
}

func TestMCPTools_CoverEveryAction(t *testing.T) {
	tools := make(map[string]string)
	for _, tl := range mcpTools() {
		if tl.tool.Name != strings.ReplaceAll(tl.action, "-", "_") {
			t.Errorf("tool %q does not match action %q", tl.tool.Name, tl.action)
		}
		tools[tl.action] = tl.tool.Name
	}
	for _, action := range server.Actions {
		if _, ok := tools[action]; !ok {
			t.Errorf("no MCP tool for action %q", action)
		}
	}
}

func TestResultToText(t *testing.T) {
	text := resultToText(server.Response{Success: false, Error: "boom", FailedStep: 7, ErrorReason: "send_failed"})
	for _, want := range []string{"success: false", "error: boom", "failed_step: 7", "error_reason: send_failed"} {
		if !strings.Contains(text, want) {
			t.Errorf("resultToText() = %q, missing %q", text, want)
		}
	}
}
