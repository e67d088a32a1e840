package binding

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	listCmd = &cobra.Command{
		Use:   "ls <port ID>",
		Short: "List the hosts a port is bound on",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("ls command takes exactly 1 argument")
			}
			portID := args[0]

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				results []*api.BindingResult
				depth   = make(map[string]int)
			)
			s.View(func(tx store.ReadTx) {
				results = binding.GetBindingResults(tx, portID)
				for _, r := range results {
					depth[r.Host] = len(binding.GetBindingLevels(tx, portID, r.Host))
				}
			})

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			common.PrintHeader(w, "Host", "VIF Type", "Levels", "Updated")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Host, r.VIFType, depth[r.Host], common.TimestampString(r.Meta.UpdatedAt))
			}
			return nil
		},
	}
)
