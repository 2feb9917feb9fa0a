package commands

import (
	"context"
	"fmt"
	"os"

	"govdata-etl/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	exitCode   int
)

var rootCmd = &cobra.Command{
	Use:   "govdata",
	Short: "govdata collects state level unemployment, education finance and crime statistics into an analytical store.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The run configuration (.json5, .yaml or .yml).")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level.")
}

// ExecuteContext runs the cli and returns the process exit code: 0 when
// every stage succeeded, 2 when some work failed and 1 on fatal errors.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}
