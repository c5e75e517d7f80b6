package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pharmaflow/pharmaflow/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pharmaflow configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the backend URL, web server and logging, and writes the config file given by --config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
