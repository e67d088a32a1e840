package binding

import "github.com/spf13/cobra"

var (
	// Cmd exposes the top-level binding command.
	Cmd = &cobra.Command{
		Use:   "binding",
		Short: "Port binding results",
	}
)

func init() {
	Cmd.AddCommand(
		showCmd,
		listCmd,
		setCmd,
		clearCmd,
		drainCmd,
	)
}
