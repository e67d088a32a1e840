package port

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level port command.
	Cmd = &cobra.Command{
		Use:   "port",
		Short: "Port management",
	}
)

func init() {
	Cmd.AddCommand(
		createCmd,
		listCmd,
		inspectCmd,
		removeCmd,
		bindHostCmd,
	)
}
