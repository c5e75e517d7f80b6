package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pharmaflow/pharmaflow/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pharmaflow",
	Short: "Multi-perspective analysis of pharmaceutical manufacturing documents",
	Long: `PharmaFlow uploads pharmaceutical specifications, contracts and batch
records to the analysis backend and presents them from finance,
sustainability and chemistry/process perspectives, with a knowledge graph
and a document-grounded chat assistant.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
