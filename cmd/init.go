package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Unreal-Works/roblox-coverage-patch/internal/config"
)

var initForceFlag bool

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a .covpatch.yaml with the current settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName + ".yaml"
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !initForceFlag {
				return fmt.Errorf("%s already exists; use --force to overwrite it", path)
			}

			if err := settings.Save(path); err != nil {
				return err
			}

			cmd.Printf("wrote %s\n", path)

			return nil
		},
	}
	cmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "overwrite an existing config file")

	return cmd
}

func init() {
	rootCmd.AddCommand(initCmd)
}
