package segment

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	addCmd = &cobra.Command{
		Use:   "add <network ID>",
		Short: "Add a segment to a network",
		Long: "Add a segment to a network. A dynamic segment matching an " +
			"existing one on the same physical network is reused.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("add command takes exactly 1 argument")
			}
			networkID := args[0]

			flags := cmd.Flags()
			if !flags.Changed("type") {
				return errors.New("--type is mandatory")
			}
			seg := &api.Segment{}
			var err error
			if seg.NetworkType, err = flags.GetString("type"); err != nil {
				return err
			}
			if seg.PhysicalNetwork, err = flags.GetString("physical-network"); err != nil {
				return err
			}
			if flags.Changed("segmentation-id") {
				id, err := flags.GetUint32("segmentation-id")
				if err != nil {
					return err
				}
				seg.SegmentationID = &id
			}
			dynamic, err := flags.GetBool("dynamic")
			if err != nil {
				return err
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var added *api.Segment
			if err := s.Apply(common.Context(cmd), func(tx store.Tx) error {
				if dynamic {
					if existing := binding.GetDynamicSegment(tx, networkID, seg.PhysicalNetwork, seg.SegmentationID); existing != nil {
						added = existing
						return nil
					}
				}
				var err error
				added, err = binding.AddNetworkSegment(tx, networkID, seg.Copy(), dynamic)
				return err
			}); err != nil {
				return err
			}
			fmt.Println(added.ID)
			return nil
		},
	}
)

func init() {
	flags := addCmd.Flags()
	flags.String("type", "", "Network type of the segment (flat, vlan, vxlan, ...)")
	flags.String("physical-network", "", "Physical network the segment is on")
	flags.Uint32("segmentation-id", 0, "Segmentation ID of the segment")
	flags.Bool("dynamic", false, "Add a dynamic segment")
}
