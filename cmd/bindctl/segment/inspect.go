package segment

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
	inspectCmd = &cobra.Command{
		Use:   "inspect <segment ID>",
		Short: "Inspect a segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("segment ID missing")
			}
			if len(args) > 1 {
				return errors.New("inspect command takes exactly 1 argument")
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				seg    *api.Segment
				levels []*api.BindingLevel
			)
			s.View(func(tx store.ReadTx) {
				seg = binding.GetSegmentByID(tx, args[0])
				if seg != nil {
					levels, err = store.FindBindingLevels(tx, store.BySegmentID(seg.ID))
				}
			})
			if err != nil {
				return err
			}
			if seg == nil {
				return fmt.Errorf("segment %s not found", args[0])
			}

			w := tabwriter.NewWriter(os.Stdout, 8, 8, 8, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			fmt.Fprintf(w, "ID\t: %s\n", seg.ID)
			fmt.Fprintf(w, "Network\t: %s\n", seg.NetworkID)
			fmt.Fprintf(w, "Network Type\t: %s\n", seg.NetworkType)
			common.FprintfIfNotEmpty(w, "Physical Network\t: %s\n", seg.PhysicalNetwork)
			fmt.Fprintf(w, "Segmentation ID\t: %s\n", common.SegmentationID(seg.SegmentationID))
			fmt.Fprintf(w, "Index\t: %d\n", seg.SegmentIndex)
			fmt.Fprintf(w, "Dynamic\t: %t\n", seg.IsDynamic)
			if len(levels) > 0 {
				fmt.Fprintln(w, "Used By\t")
				for _, l := range levels {
					fmt.Fprintf(w, "  %s on %s\t: level %d (%s)\n", l.PortID, l.Host, l.Level, l.Driver)
				}
			}
			return nil
		},
	}
)
