package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Paste a prompt into the open conversation and submit it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, server.ActionSend, targetParams(cmd))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("message", "", "Prompt text (required)")
	_ = sendCmd.MarkFlagRequired("message")
}
