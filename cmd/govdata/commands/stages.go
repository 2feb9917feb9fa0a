package commands

import (
	"govdata-etl/services/pipeline"

	"github.com/spf13/cobra"
)

func init() {
	extractCmd := stageCommand(
		"extract [dataset...]",
		"Fetch the enabled datasets (or only the named ones) and save them as JSON artifacts.",
		func(p pipeline.Pipeline, cmd *cobra.Command, args []string) pipeline.StageResult {
			return p.Extract(cmd.Context(), args...)
		},
	)
	extractCmd.ValidArgs = pipeline.Datasets
	extractCmd.Args = cobra.OnlyValidArgs

	rootCmd.AddCommand(
		extractCmd,
		stageCommand(
			"stage",
			"Replace the staged collections with the records of the saved artifacts.",
			func(p pipeline.Pipeline, cmd *cobra.Command, _ []string) pipeline.StageResult {
				return p.Stage(cmd.Context())
			},
		),
		stageCommand(
			"load",
			"Recreate the analytical schema and load every staged collection into it.",
			func(p pipeline.Pipeline, cmd *cobra.Command, _ []string) pipeline.StageResult {
				return p.Load(cmd.Context())
			},
		),
		stageCommand(
			"report",
			"Render the charts and the combined overlay from the analytical store.",
			func(p pipeline.Pipeline, cmd *cobra.Command, _ []string) pipeline.StageResult {
				return p.Report(cmd.Context())
			},
		),
	)
}
