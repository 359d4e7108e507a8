package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/domain"
	m "github.com/Unreal-Works/roblox-coverage-patch/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously saved coverage runs",
		Long:  "View lists the runs saved in a reports directory and shows the summary of the latest one.",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			return workflow.View(domain.ViewArgs{Reports: m.Path(settings.ReportsDir)})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
