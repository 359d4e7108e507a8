package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

var statsDumpFlag string

// statsCmd represents the stats command.
var statsCmd = newStatsCmd()

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the hottest code of a runtime dump",
		Long: `Stats ranks the statements, functions and branches of a runtime dump by hit
count and shows the files that executed the most.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return workflow.Stats(domain.StatsArgs{
				Workspace:    m.Path(settings.OutDir),
				Dump:         m.Path(statsDumpFlag),
				StatsOptions: statsOptions(cmd),
			})
		},
	}
	cmd.Flags().StringVarP(&statsDumpFlag, "dump", "d", "", "runtime log holding the counter dump")
	cmd.Flags().String("out", "", "instrumented copy the dump came from (default .covpatch/instrumented)")
	_ = cmd.MarkFlagRequired("dump")
	addStatsFlags(cmd)

	return cmd
}

func addStatsFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 10, "entries per section; 0 shows all")
	cmd.Flags().Uint64("min-hits", 1, "hide entries hit fewer times; 0 means 1")
	cmd.Flags().Bool("no-statements", false, "leave statements out")
	cmd.Flags().Bool("no-functions", false, "leave functions out")
	cmd.Flags().Bool("no-branches", false, "leave branches out")
}

// statsOptions applies the --no-* switches on top of the configured options.
func statsOptions(cmd *cobra.Command) m.StatsOptions {
	opts := settings.StatsOptions()

	if off, _ := cmd.Flags().GetBool("no-statements"); off {
		opts.ExcludeStatements = true
	}

	if off, _ := cmd.Flags().GetBool("no-functions"); off {
		opts.ExcludeFunctions = true
	}

	if off, _ := cmd.Flags().GetBool("no-branches"); off {
		opts.ExcludeBranches = true
	}

	return opts
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
