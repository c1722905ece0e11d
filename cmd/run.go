package cmd

import (
	"os"

	"github.com/mj1618/desktop-escalate/internal/output"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the line-delimited JSON command protocol on stdin/stdout",
	Long: `Read one JSON request per line from stdin and write one JSON response per
line to stdout. Logs go to stderr.

Request:  {"action": "full-escalation", "params": {"conversation": "o3 test", "message": "..."}}
Response: {"success": true, "data": {"response": "...", "attempts": 1, ...}}

Actions: probe-availability, focus, navigate-to-conversation, send-message,
wait-for-completion, fetch-response, full-escalation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return a.dispatcher.Serve(cmd.Context(), os.Stdin, output.NewLineWriter(os.Stdout))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
