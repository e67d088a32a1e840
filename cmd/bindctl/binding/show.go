package binding

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

func printResult(w io.Writer, r *api.BindingResult, levels []*api.BindingLevel) {
	fmt.Fprintf(w, "Port\t: %s\n", r.PortID)
	fmt.Fprintf(w, "Host\t: %s\n", r.Host)
	fmt.Fprintf(w, "VIF Type\t: %s\n", r.VIFType)
	common.FprintfIfNotEmpty(w, "VIF Details\t: %s\n", r.VIFDetails)
	fmt.Fprintf(w, "Updated\t: %s\n", common.TimestampString(r.Meta.UpdatedAt))
	if len(levels) == 0 {
		return
	}
	fmt.Fprintln(w, "Levels\t")
	for _, l := range levels {
		segment := l.SegmentID
		if segment == "" {
			segment = "-"
		}
		fmt.Fprintf(w, "  %d\t: %s on %s\n", l.Level, l.Driver, segment)
	}
}

var (
	showCmd = &cobra.Command{
		Use:   "show <port ID> <host>",
		Short: "Show the binding of a port on a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("show command takes exactly 2 arguments")
			}
			portID, host := args[0], args[1]

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				r      *api.BindingResult
				levels []*api.BindingLevel
			)
			s.View(func(tx store.ReadTx) {
				r = binding.GetBindingResult(tx, portID, host)
				levels = binding.GetBindingLevels(tx, portID, host)
			})
			if r == nil {
				return fmt.Errorf("port %s is not bound on %s", portID, host)
			}

			w := tabwriter.NewWriter(os.Stdout, 8, 8, 8, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			printResult(w, r, levels)
			return nil
		},
	}
)
