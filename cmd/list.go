package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [root]",
		Short: "List modules in scope and their probe counts",
		Long: `List analyses every module in scope without instrumenting anything and
shows how many statement, function and branch probes each would get.
Modules that fail to parse are reported and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return workflow.List(domain.ListArgs{ScopeArgs: scopeArgs(args)})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
