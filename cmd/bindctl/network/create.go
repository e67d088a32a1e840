package network

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/identity"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("create command takes no arguments")
			}

			flags := cmd.Flags()
			n := &api.Network{ID: identity.NewID()}
			if flags.Changed("id") {
				id, err := flags.GetString("id")
				if err != nil {
					return err
				}
				n.ID = id
			}
			if flags.Changed("name") {
				name, err := flags.GetString("name")
				if err != nil {
					return err
				}
				n.Name = name
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Update(func(tx store.Tx) error {
				return store.CreateNetwork(tx, n)
			}); err != nil {
				return err
			}
			fmt.Println(n.ID)
			return nil
		},
	}
)

func init() {
	createCmd.Flags().String("id", "", "Network ID (generated if not set)")
	createCmd.Flags().String("name", "", "Network name")
}
