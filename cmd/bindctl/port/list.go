package port

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
		Short: "List ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return errors.New("ls command takes no arguments")
			}

			flags := cmd.Flags()
			var by store.By = store.All
			if flags.Changed("network") {
				networkID, err := flags.GetString("network")
				if err != nil {
					return err
				}
				by = store.ByNetworkID(networkID)
			}
			if flags.Changed("mac") {
				if flags.Changed("network") {
					return errors.New("--network and --mac cannot be combined")
				}
				mac, err := flags.GetString("mac")
				if err != nil {
					return err
				}
				by = store.ByMACAddress(mac)
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				ports []*api.Port
				hosts = make(map[string]string)
			)
			s.View(func(tx store.ReadTx) {
				ports, err = store.FindPorts(tx, by)
				for _, p := range ports {
					if b := store.GetPortBinding(tx, p.ID); b != nil {
						hosts[p.ID] = b.Host
					}
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
			common.PrintHeader(w, "ID", "Network", "MAC Address", "Status", "Host")
			for _, p := range ports {
				host := hosts[p.ID]
				if host == "" {
					host = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.NetworkID, p.MACAddress, p.Status, host)
			}
			return nil
		},
	}
)

func init() {
	listCmd.Flags().String("network", "", "Only list the ports of this network")
	listCmd.Flags().String("mac", "", "Only list the ports with this MAC address")
}
