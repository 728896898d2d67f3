package cmd

import (
	"fmt"
	"os"

	"github.com/pgstart/pgstart/internal/runner"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without connecting",
	Long: `Checks that the configuration is usable: at least one statement source
(stmt or file) is set, and a configured statement file is readable.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.File != "" {
		if _, err := os.Stat(cfg.File); err != nil {
			return fmt.Errorf("could not open file %q: %w", cfg.File, err)
		}
		statements, err := runner.ReadStatementFile(cfg.File)
		if err != nil {
			return err
		}
		fmt.Printf("Statement file %s: %d statements\n", cfg.File, len(statements))
	}

	if cfg.Stmt != "" {
		fmt.Printf("Inline statement: %s\n", cfg.Stmt)
	}

	fmt.Printf("Target database: %s\n", cfg.DBName)
	fmt.Println("Configuration OK")
	return nil
}
