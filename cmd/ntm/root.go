package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ntm-hq/ntm/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ntm",
	Short: "NTM - frp tunnel supervisor and configuration sync",
	Long: `NTM runs frpc or frps under supervision and keeps client tunnel
configuration in sync with a central registry.

A server node runs frps and a control API that stores clients and their
proxies. A client node runs frpc and pulls its proxies from the server on a
schedule, restarting frpc when the configuration is rewritten.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "ntm.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
