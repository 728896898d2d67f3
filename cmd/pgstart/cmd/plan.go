package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/pgstart/pgstart/internal/runner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the statements that would execute",
	Long: `Lists every statement a run would execute, in execution order: the
inline statement first (if set), then each non-blank line of the statement
file. Nothing is executed.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

type planEntry struct {
	Ordinal int    `json:"ordinal" yaml:"ordinal"`
	Origin  string `json:"origin" yaml:"origin"`
	Text    string `json:"text" yaml:"text"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var entries []planEntry
	ordinal := 0

	if cfg.Stmt != "" {
		ordinal++
		entries = append(entries, planEntry{Ordinal: ordinal, Origin: "stmt", Text: cfg.Stmt})
	}

	if cfg.File != "" {
		statements, err := runner.ReadStatementFile(cfg.File)
		if err != nil {
			return err
		}
		for _, stmt := range statements {
			ordinal++
			entries = append(entries, planEntry{Ordinal: ordinal, Origin: stmt.Origin, Text: stmt.Text})
		}
	}

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	default:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("#", "Origin", "Statement")
		for _, e := range entries {
			table.Append(fmt.Sprintf("%d", e.Ordinal), e.Origin, e.Text)
		}
		table.Render()
		fmt.Printf("\n%d statements would execute against %s\n", len(entries), cfg.DBName)
	}

	return nil
}
