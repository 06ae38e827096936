package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ntm-hq/ntm/pkg/cli"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file with environment overrides and check it.

Exits with status 2 when the configuration is invalid.

Examples:
  # Validate the default config
  ntm validate

  # Validate a specific file and print the result as JSON
  ntm validate --config /etc/ntm/ntm.yaml --output json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format: text, json")
}

type validateResult struct {
	Valid   bool   `json:"valid"`
	Config  string `json:"config"`
	Role    string `json:"role"`
	Summary string `json:"summary"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(out, validateResult{
			Valid:   true,
			Config:  cfgFile,
			Role:    cfg.Type,
			Summary: cfg.String(),
		})
	}

	fmt.Fprintf(out, "✓ Configuration valid: %s\n", cfgFile)
	fmt.Fprintf(out, "  %s\n", cfg)
	if verbose {
		binary, configPath := cfg.Process()
		fmt.Fprintf(out, "  binary: %s\n", binary)
		fmt.Fprintf(out, "  rendered config: %s\n", configPath)
	}
	return nil
}
