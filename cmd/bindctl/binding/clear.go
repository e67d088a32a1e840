package binding

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/manager/binding"
	"github.com/vnetkit/bindstate/manager/state/store"
)

var (
	clearCmd = &cobra.Command{
		Use:   "clear <port ID> <host>",
		Short: "Clear the binding of a port on a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errors.New("clear command takes exactly 2 arguments")
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			return s.Apply(common.Context(cmd), func(tx store.Tx) error {
				return binding.ClearBindingResult(tx, args[0], args[1])
			})
		},
	}

	drainCmd = &cobra.Command{
		Use:   "drain <host>",
		Short: "Clear every binding on a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("drain command takes exactly 1 argument")
			}

			s, err := common.Open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var cleared int
			err = s.Retry(common.Context(cmd), func(ms *store.MemoryStore) error {
				n, err := binding.ClearHostBindings(ms, args[0])
				cleared += n
				return err
			})
			if err != nil {
				return err
			}
			fmt.Printf("cleared %d bindings on %s\n", cleared, args[0])
			return nil
		},
	}
)
