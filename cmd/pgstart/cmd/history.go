package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pgstart/pgstart/pkg/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	historyLimit int
	historyRunID string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the run journal",
	Long: `Lists past initialization runs recorded in the journal. With --run,
shows the statements of a single run in execution order.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
	historyCmd.Flags().StringVar(&historyRunID, "run", "", "show the statements of one run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if cfg.HistoryPath == "" {
		return fmt.Errorf("no run journal configured (set history_path)")
	}

	journal, err := store.NewSQLiteStore(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open run journal: %w", err)
	}
	defer journal.Close()

	if historyRunID != "" {
		return showStatements(os.Stdout, journal, historyRunID)
	}
	return showRuns(os.Stdout, journal)
}

func showRuns(w io.Writer, journal store.Store) error {
	runs, err := journal.ListRuns(historyLimit)
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		data, err := yaml.Marshal(runs)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(data))
	default:
		table := tablewriter.NewWriter(w)
		table.Header("Run", "Database", "Status", "Statements", "Started", "Error")
		for _, run := range runs {
			errMsg := run.Error
			if len(errMsg) > 60 {
				errMsg = errMsg[:57] + "..."
			}
			table.Append(run.ID, run.Database, string(run.Status),
				fmt.Sprintf("%d", run.Statements),
				run.StartedAt.Format(time.RFC3339), errMsg)
		}
		table.Render()
	}
	return nil
}

func showStatements(w io.Writer, journal store.Store, runID string) error {
	recs, err := journal.ListStatements(runID)
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		data, err := yaml.Marshal(recs)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(data))
	default:
		table := tablewriter.NewWriter(w)
		table.Header("#", "Origin", "Tag", "Rows", "Status", "Duration", "Statement")
		for _, rec := range recs {
			table.Append(fmt.Sprintf("%d", rec.Ordinal), rec.Origin, rec.Tag,
				fmt.Sprintf("%d", rec.RowsAffected), string(rec.Status),
				fmt.Sprintf("%dms", rec.DurationMs), rec.Text)
		}
		table.Render()
	}
	return nil
}
