package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

var reportDumpFlag string

// reportCmd represents the report command.
var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build reports from a runtime dump",
		Long: `Report reads the counter dump printed by an instrumented copy of the
project, merges it with the probe manifest written by covpatch instrument and
writes coverage-final.json and coverage-summary.json. Any log containing the
dump can be passed as is.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return workflow.Report(domain.ReportArgs{
				Workspace: m.Path(settings.OutDir),
				Dump:      m.Path(reportDumpFlag),
				Reports:   m.Path(settings.ReportsDir),
			})
		},
	}
	cmd.Flags().StringVarP(&reportDumpFlag, "dump", "d", "", "runtime log holding the counter dump")
	cmd.Flags().String("out", "", "instrumented copy the dump came from (default .covpatch/instrumented)")
	_ = cmd.MarkFlagRequired("dump")

	return cmd
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
