package network

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	removeCmd = &cobra.Command{
		Use:     "remove <network ID>",
		Short:   "Remove a network with its ports and segments",
		Aliases: []string{"rm"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing network ID")
			}
			if len(args) > 1 {
				return errors.New("remove command takes exactly 1 argument")
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Update(func(tx store.Tx) error {
				return store.DeleteNetwork(tx, args[0])
			}); err != nil {
				if errors.Is(err, store.ErrNotExist) {
					return fmt.Errorf("network %s not found", args[0])
				}
				return err
			}
			fmt.Println(args[0])
			return nil
		},
	}
)
