package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ntm-hq/ntm/pkg/cli"
	"ntm-hq/ntm/pkg/registry"
	"ntm-hq/ntm/pkg/registry/storage"
	"ntm-hq/ntm/pkg/render"
)

var renderFlags struct {
	serverAddress string
	outFile       string
}

var renderCmd = &cobra.Command{
	Use:   "render <client-id>",
	Short: "Render a client's frpc configuration from the registry file",
	Long: `Read the registry configured for this server and print the proxies
section served to a client, without contacting a running server.

With --server-address the full frpc configuration is rendered, including
the connection and auth preamble.

Examples:
  # Print the proxies of client "office"
  ntm render office

  # Write a complete frpc.toml for client "office"
  ntm render office --server-address frp.example.com:7000 --out frpc.toml`,
	Args: cobra.ExactArgs(1),
	RunE: renderClient,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderFlags.serverAddress, "server-address", "", "render the full client config for this frps address (host:port)")
	renderCmd.Flags().StringVar(&renderFlags.outFile, "out", "", "write to file instead of stdout")
}

func renderClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Registry)
	if err != nil {
		return cli.NewCommandError("render", fmt.Errorf("failed to open registry: %w", err))
	}
	defer store.Close()

	logger := slog.New(slog.DiscardHandler)
	reg, err := registry.New(cmd.Context(), store, logger)
	if err != nil {
		return cli.NewCommandError("render", err)
	}

	client, err := reg.Get(args[0])
	if err != nil {
		return cli.NewCommandError("render", err)
	}

	contents := render.Client(client)
	if renderFlags.serverAddress != "" {
		contents, err = render.ClientConfig(renderFlags.serverAddress, cfg.ServerToken, contents)
		if err != nil {
			return cli.NewCommandError("render", err)
		}
	}

	if renderFlags.outFile != "" {
		if err := render.WriteFile(renderFlags.outFile, contents); err != nil {
			return cli.NewCommandError("render", err)
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", renderFlags.outFile)
		}
		return nil
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), contents)
	return err
}
