package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extract, stage, load and report in order.",
	Run: func(cmd *cobra.Command, args []string) {
		p := newPipeline(cmd)
		summary := p.Run(cmd.Context())
		finish(cmd, p, summary)
	},
}
