/*
Package cli provides command-line helpers shared by the ntm subcommands.

Output Formatting:

Admin commands print either an aligned table or indented JSON:

	formatter := cli.NewFormatter(cli.FormatText)
	table := cli.Table{Headers: []string{"CLIENT", "PROXIES"}}
	table.Append("home", "2")
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

Signal Handling:

SetupSignalHandler returns a context cancelled on the first SIGINT or
SIGTERM. A second signal exits immediately with status 1.

Errors:

ConfigError marks startup configuration problems and CommandError wraps the
failure of a subcommand. ExitCode maps both onto process exit codes.
*/
package cli
