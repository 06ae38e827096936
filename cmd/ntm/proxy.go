package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ntm-hq/ntm/pkg/cli"
	"ntm-hq/ntm/pkg/registry"
)

var proxyFlags struct {
	name       string
	proxyType  string
	localIP    string
	localPort  int
	remotePort int
	flags      []string
}

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Manage the proxies of a registered client",
	Long: `Add or remove proxies of a client through the control API.

Examples:
  # Expose local SSH of client "office" on remote port 6000
  ntm proxy add office --name ssh --type tcp --local-port 22 --remote-port 6000

  # Pass extra frpc settings through verbatim
  ntm proxy add office --name web --type tcp --local-port 80 --remote-port 8080 \
    --flag 'transport.useEncryption = true'

  # Remove a proxy
  ntm proxy remove office ssh`,
}

var proxyAddCmd = &cobra.Command{
	Use:   "add <client-id>",
	Short: "Add a proxy to a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := registry.Proxy{
			Name:       proxyFlags.name,
			Type:       proxyFlags.proxyType,
			LocalIP:    proxyFlags.localIP,
			LocalPort:  proxyFlags.localPort,
			RemotePort: proxyFlags.remotePort,
			Flags:      proxyFlags.flags,
		}
		if err := p.Validate(); err != nil {
			return err
		}

		api, err := newAdminClient()
		if err != nil {
			return err
		}
		if err := api.AddProxy(cmd.Context(), args[0], p); err != nil {
			return cli.NewCommandError("proxy add", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Proxy %s added to %s\n", p.Name, args[0])
		return nil
	},
}

var proxyRemoveCmd = &cobra.Command{
	Use:     "remove <client-id> <proxy-name>",
	Aliases: []string{"rm"},
	Short:   "Remove a proxy from a client",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAdminClient()
		if err != nil {
			return err
		}
		if err := api.RemoveProxy(cmd.Context(), args[0], args[1]); err != nil {
			return cli.NewCommandError("proxy remove", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Proxy %s removed from %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	addAdminFlags(proxyCmd)

	f := proxyAddCmd.Flags()
	f.StringVar(&proxyFlags.name, "name", "", "proxy name, unique within the client")
	f.StringVar(&proxyFlags.proxyType, "type", "tcp", "proxy type (tcp, udp, http, ...)")
	f.StringVar(&proxyFlags.localIP, "local-ip", "127.0.0.1", "local address frpc forwards to")
	f.IntVar(&proxyFlags.localPort, "local-port", 0, "local port")
	f.IntVar(&proxyFlags.remotePort, "remote-port", 0, "port exposed on the server")
	f.StringArrayVar(&proxyFlags.flags, "flag", nil, "extra TOML line appended to the proxy block (repeatable)")
	_ = proxyAddCmd.MarkFlagRequired("name")
	_ = proxyAddCmd.MarkFlagRequired("local-port")
	_ = proxyAddCmd.MarkFlagRequired("remote-port")

	proxyCmd.AddCommand(proxyAddCmd, proxyRemoveCmd)
	rootCmd.AddCommand(proxyCmd)
}
