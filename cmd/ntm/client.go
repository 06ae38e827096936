package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ntm-hq/ntm/pkg/cli"
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage clients in the registry of a running server",
	Long: `Manage the clients registered with a server's control API.

The API address and token are taken from the config file unless --server
and --token are given.

Examples:
  # List clients
  ntm client list

  # Register and remove a client
  ntm client add office
  ntm client delete office

  # Show the proxies section served to a client
  ntm client config office`,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients and their proxies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, _, err := adminFormatter()
		if err != nil {
			return err
		}
		api, err := newAdminClient()
		if err != nil {
			return err
		}

		clients, err := api.ListClients(cmd.Context())
		if err != nil {
			return cli.NewCommandError("client list", err)
		}

		table := cli.Table{Headers: []string{"CLIENT", "PROXY", "TYPE", "LOCAL", "REMOTE"}}
		for _, c := range clients {
			if len(c.Proxies) == 0 {
				table.Append(c.ID, "-", "-", "-", "-")
				continue
			}
			for _, p := range c.Proxies {
				table.Append(c.ID, p.Name, p.Type,
					fmt.Sprintf("%s:%d", p.LocalIP, p.LocalPort),
					strconv.Itoa(p.RemotePort))
			}
		}
		return formatter.FormatTo(cmd.OutOrStdout(), table)
	},
}

var clientAddCmd = &cobra.Command{
	Use:   "add <client-id>",
	Short: "Register a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAdminClient()
		if err != nil {
			return err
		}
		if err := api.CreateClient(cmd.Context(), args[0]); err != nil {
			return cli.NewCommandError("client add", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Client %s added\n", args[0])
		return nil
	},
}

var clientDeleteCmd = &cobra.Command{
	Use:     "delete <client-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a client and its proxies",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAdminClient()
		if err != nil {
			return err
		}
		if err := api.DeleteClient(cmd.Context(), args[0]); err != nil {
			return cli.NewCommandError("client delete", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Client %s deleted\n", args[0])
		return nil
	},
}

var clientConfigCmd = &cobra.Command{
	Use:   "config <client-id>",
	Short: "Print the proxies section served to a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := newAdminClient()
		if err != nil {
			return err
		}
		body, err := api.ClientConfig(cmd.Context(), args[0])
		if err != nil {
			return cli.NewCommandError("client config", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), body)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registry size and supervisor state of a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, format, err := adminFormatter()
		if err != nil {
			return err
		}
		api, err := newAdminClient()
		if err != nil {
			return err
		}
		st, err := api.Status(cmd.Context())
		if err != nil {
			return cli.NewCommandError("status", err)
		}
		if format == cli.FormatJSON {
			return formatter.FormatTo(cmd.OutOrStdout(), st)
		}

		table := cli.Table{Headers: []string{"FIELD", "VALUE"}}
		table.Append("role", st.Role)
		table.Append("clients", strconv.Itoa(st.Clients))
		table.Append("proxies", strconv.Itoa(st.Proxies))
		table.Append("state", string(st.Supervisor.State))
		table.Append("pid", strconv.Itoa(st.Supervisor.PID))
		table.Append("restarts", strconv.Itoa(st.Supervisor.Restarts))
		table.Append("crashes", strconv.Itoa(st.Supervisor.Crashes))
		return formatter.FormatTo(cmd.OutOrStdout(), table)
	},
}

func init() {
	addAdminFlags(clientCmd)
	addAdminFlags(statusCmd)

	clientCmd.AddCommand(clientListCmd, clientAddCmd, clientDeleteCmd, clientConfigCmd)
	rootCmd.AddCommand(clientCmd, statusCmd)
}
