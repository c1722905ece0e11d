package cmd

import (
	"github.com/mj1618/desktop-escalate/internal/output"
	"github.com/spf13/cobra"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the effective UI layout",
	Long: `Print the layout fractions after defaults, the config file and environment
overrides are applied. Every point and region is a fraction of the app
window's rectangle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return output.Print(cfg.Layout)
	},
}

func init() {
	rootCmd.AddCommand(layoutCmd)
}
