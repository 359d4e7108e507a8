package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

var runStatsFlag bool

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <entry> [root]",
		Short: "Run an entry script with coverage and write the reports",
		Long: `Run instruments every module in scope in memory, executes the entry script
in the embedded Lua host and writes coverage-final.json and
coverage-summary.json to the reports directory. The entry path is relative
to the root. Reports are written even when the script fails.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Run(cmd.Context(), domain.RunArgs{
				ScopeArgs:    scopeArgs(args[1:]),
				Entry:        m.Path(args[0]),
				Reports:      m.Path(settings.ReportsDir),
				Stats:        runStatsFlag,
				StatsOptions: statsOptions(cmd),
			})
		},
	}
	cmd.Flags().BoolVar(&runStatsFlag, "stats", false, "also show the most executed statements, functions and branches")
	addStatsFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}
