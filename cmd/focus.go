package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
)

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Bring the app window to the foreground",
	Long:  "Attach to the running app and bring its main window to the foreground, restoring it when minimized.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, server.ActionFocus, targetParams(cmd))
	},
}

func init() {
	rootCmd.AddCommand(focusCmd)
}
