package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report whether the app can be automated right now",
	Long: `Inspect the platform backends and the target app without acting on it:
available capabilities, running processes, the main window and the send
button state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, server.ActionProbe, targetParams(cmd))
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
