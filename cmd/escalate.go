package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
)

var escalateCmd = &cobra.Command{
	Use:   "escalate",
	Short: "Run the full escalation and print the reply",
	Long: `Restart the app, open the conversation, submit the prompt, wait for the
reply and copy it out. Recoverable failures restart the whole flow up to
escalation.max_attempts times.

Examples:
  desktop-escalate escalate --conversation "o3 test" --message "Review this plan"
  desktop-escalate escalate --project "Agent Expert Help" --conversation "o3 test" \
    --message "$(cat question.md)" --timeout-ms 300000 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, server.ActionEscalate, targetParams(cmd))
	},
}

func init() {
	rootCmd.AddCommand(escalateCmd)
	escalateCmd.Flags().String("project", "", "Project holding the conversation (optional)")
	escalateCmd.Flags().String("conversation", "", "Conversation title (required)")
	escalateCmd.Flags().String("message", "", "Prompt text (required)")
	escalateCmd.Flags().Int("timeout-ms", 0, "Response timeout in milliseconds (0 uses the configured timeout)")
	escalateCmd.Flags().String("run-id", "", "Correlation id echoed in the response (generated when empty)")
	_ = escalateCmd.MarkFlagRequired("conversation")
	_ = escalateCmd.MarkFlagRequired("message")
}
