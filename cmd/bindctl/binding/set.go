package binding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/api"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

// parseLevels turns "driver[:segment]" values into binding levels numbered
// in the order given.
func parseLevels(values []string) ([]*api.BindingLevel, error) {
	levels := make([]*api.BindingLevel, 0, len(values))
	for i, v := range values {
		parts := strings.SplitN(v, ":", 2)
		if parts[0] == "" {
			return nil, fmt.Errorf("invalid level %q: driver missing", v)
		}
		l := &api.BindingLevel{
			Level:  int32(i),
			Driver: parts[0],
		}
		if len(parts) == 2 {
			l.SegmentID = parts[1]
		}
		levels = append(levels, l)
	}
	return levels, nil
}

var (
	setCmd = &cobra.Command{
		Use:   "set <port ID> <host>",
		Short: "Record the binding of a port on a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("set command takes exactly 2 arguments")
			}
			portID, host := args[0], args[1]

			flags := cmd.Flags()
			if !flags.Changed("vif-type") {
				return errors.New("--vif-type is mandatory")
			}
			vifType, err := flags.GetString("vif-type")
			if err != nil {
				return err
			}
			vifDetails, err := flags.GetString("vif-details")
			if err != nil {
				return err
			}
			levelValues, err := flags.GetStringArray("level")
			if err != nil {
				return err
			}
			levels, err := parseLevels(levelValues)
			if err != nil {
				return err
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.Apply(common.Context(cmd), func(tx store.Tx) error {
				_, err := binding.SetBindingResult(tx, portID, host, vifType, vifDetails, levels)
				return err
			})
		},
	}
)

func init() {
	flags := setCmd.Flags()
	flags.String("vif-type", "", "VIF type the port is bound with")
	flags.String("vif-details", "", "VIF details, passed through as given")
	flags.StringArray("level", nil, "Binding level as driver[:segment ID], outermost first (repeatable)")
}
