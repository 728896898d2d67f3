package cmd

import (
	"github.com/pgstart/pgstart/pkg/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pgstart",
	Short: "Run SQL statements once at PostgreSQL instance start",
	Long: `pgstart executes administrator-supplied SQL statements exactly once,
as soon as a PostgreSQL instance finishes recovery and accepts connections.
It automates one-time initialization work (roles, settings, migrations)
without an external script polling for availability.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: /etc/pgstart/pgstart.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json or yaml")
}

// loadSettings loads the configuration for a subcommand
func loadSettings() (*config.Settings, error) {
	return config.Load(cfgFile)
}
