package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opensonata/sonata-verify/internal/core"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, source, err := loadConfig(cmd)
		if err != nil {
			return &ExitError{Code: ExitFault, Err: err}
		}
		if source == "" {
			source = "defaults"
		}

		data, err := yaml.Marshal(core.Redacted(*cfg))
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# source: %s\n", source)
		_, err = out.Write(data)
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
