package main

import (
	"os"

	"github.com/spf13/cobra"
	_ "time/tzdata"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:          "epgctl",
		Short:        "Operator tooling for the EPG server",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cfgPath != "" {
				_ = os.Setenv("CONFIG_PATH", cfgPath)
			}
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is configs/config.yaml)")

	root.AddCommand(flushCacheCMD(), lookupCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
