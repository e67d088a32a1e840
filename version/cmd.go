package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Cmd prints the build of bindctl. With --short only the version is
// printed, for scripts comparing releases.
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Show the bindctl build",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		short, err := cmd.Flags().GetBool("short")
		if err != nil {
			return err
		}
		if short {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return nil
		}
		FprintVersion(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	Cmd.Flags().Bool("short", false, "Print only the version")
}
