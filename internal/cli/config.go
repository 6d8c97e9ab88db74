package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect settings",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings in YAML",
		RunE:  runConfigShow,
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		RunE:  runConfigPath,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadSettings()
	if err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	layout, cfg, err := loadSettings()
	if err != nil {
		return err
	}
	path := cfg.Source()
	if path == "" {
		path = layout.ConfigFile
		if configFile != "" {
			path = configFile
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
