package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

var cleanKeepCacheFlag bool

// cleanCmd represents the clean command.
var cleanCmd = newCleanCmd()

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [root]",
		Short: "Remove the instrumented copy and the analysis cache",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			clean := domain.CleanArgs{
				Root: scopeArgs(args).Root,
				Out:  m.Path(settings.OutDir),
			}

			if !cleanKeepCacheFlag {
				clean.Cache = m.Path(settings.CacheDir)
			}

			return workflow.Clean(clean)
		},
	}
	cmd.Flags().String("out", "", "instrumented copy to remove (default .covpatch/instrumented)")
	cmd.Flags().String("cache", "", "analysis cache to remove (default .covpatch/cache)")
	cmd.Flags().BoolVar(&cleanKeepCacheFlag, "keep-cache", false, "leave the analysis cache in place")

	return cmd
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
