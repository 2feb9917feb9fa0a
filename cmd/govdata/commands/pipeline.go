package commands

import (
	"time"

	"govdata-etl/lib/configuration"
	"govdata-etl/lib/serviceutil"
	"govdata-etl/services/pipeline"

	"github.com/spf13/cobra"
)

func newPipeline(cmd *cobra.Command) pipeline.Pipeline {
	cfg, err := configuration.Read(configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	deps, err := pipeline.FromConfig(cmd.Context(), cfg)
	if err != nil {
		serviceutil.Fatal("invalid configuration", err)
	}
	deps.ReportTable = cmd.OutOrStdout()

	p, err := pipeline.New(deps)
	if err != nil {
		serviceutil.Fatal("failed to create pipeline", err)
	}
	return p
}

func finish(cmd *cobra.Command, p pipeline.Pipeline, summary pipeline.Summary) {
	summary.Render(cmd.OutOrStdout())
	p.Finish(cmd.Context(), summary)
	exitCode = summary.ExitCode()
}

// stageCommand runs a single stage as its own summarized run.
func stageCommand(use, short string, run func(p pipeline.Pipeline, cmd *cobra.Command, args []string) pipeline.StageResult) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			p := newPipeline(cmd)
			summary := pipeline.Summary{RunID: p.RunID(), Started: time.Now()}
			summary.Stages = append(summary.Stages, run(p, cmd, args))
			finish(cmd, p, summary)
		},
	}
}
