package port

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/identity"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a port",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("create command takes no arguments")
			}

			flags := cmd.Flags()
			if !flags.Changed("network") {
				return errors.New("--network is mandatory")
			}
			networkID, err := flags.GetString("network")
			if err != nil {
				return err
			}
			id, err := flags.GetString("id")
			if err != nil {
				return err
			}
			if id == "" {
				id = identity.NewID()
			}
			mac, err := flags.GetString("mac")
			if err != nil {
				return err
			}
			if mac == "" {
				mac = identity.NewMAC(identity.DefaultMACBase)
			}
			deviceID, err := flags.GetString("device-id")
			if err != nil {
				return err
			}
			deviceOwner, err := flags.GetString("device-owner")
			if err != nil {
				return err
			}
			adminStateUp, err := flags.GetBool("admin-state-up")
			if err != nil {
				return err
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			p := &api.Port{
				ID:           id,
				NetworkID:    networkID,
				MACAddress:   mac,
				DeviceID:     deviceID,
				DeviceOwner:  deviceOwner,
				AdminStateUp: adminStateUp,
				Status:       "DOWN",
			}
			if err := s.Apply(common.Context(cmd), func(tx store.Tx) error {
				if err := store.CreatePort(tx, p); err != nil {
					return err
				}
				_, err := binding.AddPortBinding(tx, p.ID)
				return err
			}); err != nil {
				return err
			}
			fmt.Println(p.ID)
			return nil
		},
	}
)

func init() {
	flags := createCmd.Flags()
	flags.String("network", "", "Network the port is attached to")
	flags.String("id", "", "Port ID (generated if not set)")
	flags.String("mac", "", "MAC address (generated if not set)")
	flags.String("device-id", "", "ID of the device using the port")
	flags.String("device-owner", "", "Owner of the device using the port")
	flags.Bool("admin-state-up", true, "Administrative state of the port")
}
