package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/server"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Copy the latest reply of the open conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, server.ActionFetch, targetParams(cmd))
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
