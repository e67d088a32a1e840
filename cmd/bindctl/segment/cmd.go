package segment

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level segment command.
	Cmd = &cobra.Command{
		Use:   "segment",
		Short: "Network segment management",
	}
)

func init() {
	Cmd.AddCommand(
		addCmd,
		listCmd,
		inspectCmd,
		removeCmd,
	)
}
