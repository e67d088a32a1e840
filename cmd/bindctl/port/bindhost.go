package port

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	bindHostCmd = &cobra.Command{
		Use:   "bind-host <port ID> <host>",
		Short: "Set the host a port is bound to",
		Long:  "Set the host a port is bound to. An empty host unbinds the port.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("bind-host command takes exactly 2 arguments")
			}
			portID, host := args[0], args[1]

			flags := cmd.Flags()
			vnicType, err := flags.GetString("vnic-type")
			if err != nil {
				return err
			}
			profile, err := flags.GetString("profile")
			if err != nil {
				return err
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.Apply(common.Context(cmd), func(tx store.Tx) error {
				if store.GetPort(tx, portID) == nil {
					return fmt.Errorf("port %s not found", portID)
				}
				if _, err := binding.RequireBinding(tx, portID); err != nil {
					return err
				}
				_, b := binding.GetLockedPortAndBinding(tx, portID)
				if b.Host != "" && b.Host != host {
					// The results negotiated for the old host no longer apply.
					if err := binding.ClearBindingResult(tx, portID, b.Host); err != nil {
						return err
					}
				}
				b.Host = host
				if flags.Changed("vnic-type") {
					b.VNICType = vnicType
				}
				if flags.Changed("profile") {
					b.Profile = profile
				}
				return binding.UpdatePortBinding(tx, b)
			})
		},
	}
)

func init() {
	bindHostCmd.Flags().String("vnic-type", "", "VNIC type of the binding")
	bindHostCmd.Flags().String("profile", "", "Binding profile passed to the mechanism drivers")
}
