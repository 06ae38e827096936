package main

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"ntm-hq/ntm/pkg/apiclient"
	"ntm-hq/ntm/pkg/cli"
	"ntm-hq/ntm/pkg/config"
)

// Flags shared by the commands that talk to a control API.
var adminFlags struct {
	server string
	token  string
	output string
}

func addAdminFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&adminFlags.server, "server", "", "control API base URL (default derived from config)")
	cmd.PersistentFlags().StringVar(&adminFlags.token, "token", "", "shared secret (default server-token from config)")
	cmd.PersistentFlags().StringVarP(&adminFlags.output, "output", "o", "text", "output format: text, json")
}

// newAdminClient builds an API client from --server and --token, falling back
// to the config file for whatever is missing.
func newAdminClient() (*apiclient.Client, error) {
	baseURL, token := adminFlags.server, adminFlags.token
	if baseURL == "" || token == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		if baseURL == "" {
			baseURL = controlURL(cfg)
		}
		if token == "" {
			token = cfg.ServerToken
		}
	}
	return apiclient.New(baseURL, token), nil
}

// controlURL is the API a node's admin commands talk to: the local API on a
// server, the remote one on a client.
func controlURL(cfg *config.Config) string {
	if !cfg.IsServer() {
		return cfg.ControlURL()
	}
	host := cfg.API.ListenHost
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.MasterPort))
}

func adminFormatter() (cli.Formatter, cli.OutputFormat, error) {
	format, err := cli.ParseOutputFormat(adminFlags.output)
	if err != nil {
		return nil, "", err
	}
	return cli.NewFormatter(format), format, nil
}
