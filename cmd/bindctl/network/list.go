package network

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	listCmd = &cobra.Command{
		Use:   "ls",
		Short: "List networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("ls command takes no arguments")
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				networks []*api.Network
				segments []*api.Segment
			)
			s.View(func(tx store.ReadTx) {
				networks, err = store.FindNetworks(tx, store.All)
				if err == nil {
					segments, err = store.FindSegments(tx, store.All)
				}
			})
			if err != nil {
				return err
			}
			perNetwork := make(map[string]int)
			for _, seg := range segments {
				perNetwork[seg.NetworkID]++
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			common.PrintHeader(w, "ID", "Name", "Segments")
			for _, n := range networks {
				fmt.Fprintf(w, "%s\t%s\t%d\n", n.ID, n.Name, perNetwork[n.ID])
			}
			return nil
		},
	}
)
