package segment

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	removeCmd = &cobra.Command{
		Use:     "remove <segment ID>",
		Short:   "Remove a segment",
		Aliases: []string{"rm"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing segment ID")
			}
			if len(args) > 1 {
				return errors.New("remove command takes exactly 1 argument")
			}
			release, err := cmd.Flags().GetBool("release")
			if err != nil {
				return err
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			err = s.Apply(common.Context(cmd), func(tx store.Tx) error {
				if release {
					return binding.ReleaseDynamicSegment(tx, args[0])
				}
				return binding.DeleteNetworkSegment(tx, args[0])
			})
			if errors.Is(err, store.ErrReferentialConflict) {
				return fmt.Errorf("segment %s is still used by a port binding", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println(args[0])
			return nil
		},
	}
)

func init() {
	removeCmd.Flags().Bool("release", false, "Only remove the segment if it is dynamic")
}
