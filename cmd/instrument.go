package cmd

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

var instrumentWatchFlag bool
var instrumentDebounceFlag time.Duration

// instrumentCmd represents the instrument command.
var instrumentCmd = newInstrumentCmd()

func newInstrumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instrument [root]",
		Short: "Write an instrumented copy of the project",
		Long: `Instrument copies the project to the output directory with every module in
scope rewritten to count its statements, functions and branches, plus the
CovpatchRuntime module that collects the counts. Require CovpatchRuntime
before anything else and call __covpatch_dump() when done; the printed dump
is what covpatch report consumes.

With --watch the copy is kept current as sources change until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return workflow.Instrument(ctx, domain.InstrumentArgs{
				ScopeArgs: scopeArgs(args),
				Out:       m.Path(settings.OutDir),
				Watch:     instrumentWatchFlag,
				Debounce:  instrumentDebounceFlag,
			})
		},
	}
	cmd.Flags().String("out", "", "output directory (default .covpatch/instrumented)")
	cmd.Flags().BoolVar(&instrumentWatchFlag, "watch", false, "re-instrument modules as they change")
	cmd.Flags().DurationVar(&instrumentDebounceFlag, "debounce", 200*time.Millisecond, "quiet period before a change is handled")

	return cmd
}

func init() {
	rootCmd.AddCommand(instrumentCmd)
}
