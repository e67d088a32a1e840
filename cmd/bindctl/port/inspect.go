package port

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

func printPort(w io.Writer, p *api.Port, b *api.PortBinding, results []*api.BindingResult) {
	fmt.Fprintf(w, "ID\t: %s\n", p.ID)
	fmt.Fprintf(w, "Network\t: %s\n", p.NetworkID)
	fmt.Fprintf(w, "MAC Address\t: %s\n", p.MACAddress)
	common.FprintfIfNotEmpty(w, "Device ID\t: %s\n", p.DeviceID)
	common.FprintfIfNotEmpty(w, "Device Owner\t: %s\n", p.DeviceOwner)
	fmt.Fprintf(w, "Admin State Up\t: %t\n", p.AdminStateUp)
	common.FprintfIfNotEmpty(w, "Status\t: %s\n", p.Status)
	fmt.Fprintf(w, "Created\t: %s\n", common.TimestampString(p.Meta.CreatedAt))

	if b != nil {
		fmt.Fprintln(w, "Binding\t")
		host := b.Host
		if host == "" {
			host = "(unbound)"
		}
		fmt.Fprintf(w, "  Host\t: %s\n", host)
		fmt.Fprintf(w, "  VNIC Type\t: %s\n", b.VNICType)
		common.FprintfIfNotEmpty(w, "  Profile\t: %s\n", b.Profile)
	}
	if len(results) > 0 {
		fmt.Fprintln(w, "Results\t")
		for _, r := range results {
			fmt.Fprintf(w, "  %s\t: %s\n", r.Host, r.VIFType)
		}
	}
}

var (
	inspectCmd = &cobra.Command{
		Use:   "inspect <port ID>",
		Short: "Inspect a port",
		Long:  "Inspect a port. A unique prefix of the port ID is enough.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("port ID missing")
			}
			if len(args) > 1 {
				return errors.New("inspect command takes exactly 1 argument")
			}
			byMAC, err := cmd.Flags().GetBool("mac")
			if err != nil {
				return err
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				p       *api.Port
				b       *api.PortBinding
				results []*api.BindingResult
			)
			s.View(func(tx store.ReadTx) {
				if byMAC {
					p = binding.GetPortFromDeviceMAC(tx, args[0])
				} else {
					p = binding.GetPort(tx, args[0])
				}
				if p == nil {
					return
				}
				b = store.GetPortBinding(tx, p.ID)
				results = binding.GetBindingResults(tx, p.ID)
			})
			if p == nil {
				return fmt.Errorf("no single port matches %s", args[0])
			}

			w := tabwriter.NewWriter(os.Stdout, 8, 8, 8, ' ', 0)
			defer func() {
				// Ignore flushing errors - there's nothing we can do.
				_ = w.Flush()
			}()
			printPort(w, p, b, results)
			return nil
		},
	}
)

func init() {
	inspectCmd.Flags().Bool("mac", false, "Look the port up by MAC address")
}
