package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vnetkit/bindstate/cmd/bindctl/binding"
	"github.com/vnetkit/bindstate/cmd/bindctl/common"
	"github.com/vnetkit/bindstate/cmd/bindctl/network"
	"github.com/vnetkit/bindstate/cmd/bindctl/port"
	"github.com/vnetkit/bindstate/cmd/bindctl/segment"
	"github.com/vnetkit/bindstate/version"
)

func main() {
	if c, err := mainCmd.ExecuteC(); err != nil {
		c.Println("Error:", err)
		os.Exit(-1)
	}
}

var (
	mainCmd = &cobra.Command{
		Use:           os.Args[0],
		Short:         "Manage network segments and port bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(cmd)
			if err != nil {
				return err
			}
			level, err := logrus.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetOutput(os.Stderr)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if show, _ := cmd.Flags().GetBool("metrics"); show {
				return common.WriteMetrics(os.Stderr, prometheus.DefaultGatherer)
			}
			return nil
		},
	}
)

func init() {
	common.AddFlags(mainCmd.PersistentFlags())
	mainCmd.PersistentFlags().Bool("metrics", false, "Print store metrics to stderr when the command is done")

	mainCmd.AddCommand(
		network.Cmd,
		port.Cmd,
		segment.Cmd,
		binding.Cmd,
		version.Cmd,
	)
}
