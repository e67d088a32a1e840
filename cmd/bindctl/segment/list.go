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
	listCmd = &cobra.Command{
		Use:   "ls <network ID>",
		Short: "List the segments of a network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("ls command takes exactly 1 argument")
			}
			networkID := args[0]

			flags := cmd.Flags()
			kinds := []bool{false, true}
			if flags.Changed("dynamic") {
				dynamic, err := flags.GetBool("dynamic")
				if err != nil {
					return err
				}
				kinds = []bool{dynamic}
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var segments []*api.Segment
			s.View(func(tx store.ReadTx) {
				for _, dynamic := range kinds {
					var found []*api.Segment
					found, err = binding.GetNetworkSegments(tx, networkID, dynamic)
					if err != nil {
						return
					}
					segments = append(segments, found...)
				}
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			common.PrintHeader(w, "ID", "Index", "Type", "Physical Network", "Segmentation ID", "Dynamic")
			for _, seg := range segments {
				physnet := seg.PhysicalNetwork
				if physnet == "" {
					physnet = "-"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%t\n",
					seg.ID,
					seg.SegmentIndex,
					seg.NetworkType,
					physnet,
					common.SegmentationID(seg.SegmentationID),
					seg.IsDynamic,
				)
			}
			return nil
		},
	}
)

func init() {
	listCmd.Flags().Bool("dynamic", false, "Only list dynamic (true) or declared (false) segments")
}
