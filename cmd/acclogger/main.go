package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "acclogger",
		Short:         "Record accelerometer samples to CSV on a removable card",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (TOML)")

	serve := newServeCmd(&configPath)
	root.AddCommand(serve, newHistoryCmd(&configPath), newAnalyzeCmd())

	// bare invocation runs the daemon
	root.Flags().AddFlagSet(serve.Flags())
	root.RunE = serve.RunE

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "acclogger:", err)
		os.Exit(1)
	}
}
