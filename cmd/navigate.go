package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Open a conversation in the running app",
	Long: `Open the navigation panel, select the project (when given) and open the
conversation whose title matches.

Examples:
  desktop-escalate navigate --conversation "o3 test"
  desktop-escalate navigate --project "Agent Expert Help" --conversation "o3 test"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, server.ActionNavigate, targetParams(cmd))
	},
}

func init() {
	rootCmd.AddCommand(navigateCmd)
	navigateCmd.Flags().String("project", "", "Project holding the conversation (optional)")
	navigateCmd.Flags().String("conversation", "", "Conversation title (required)")
	_ = navigateCmd.MarkFlagRequired("conversation")
}
