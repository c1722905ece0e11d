package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until the app finishes generating a reply",
	Long: `Poll the send button until generation has finished. The default timeout
is timeouts.response from the config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, server.ActionWait, targetParams(cmd))
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().Int("timeout-ms", 0, "Maximum wait in milliseconds (0 uses the configured timeout)")
}
