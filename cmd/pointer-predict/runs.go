package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointer.predict/internal/report"
	"github.com/banshee-data/pointer.predict/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored evaluation runs",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}
	f := cmd.Flags()
	f.String("db", getEnvStr("POINTER_PREDICT_DB", ""), "SQLite run store")
	f.Int("limit", 20, "Maximum number of runs to list")
	f.String("comparison", "", "Only list the runs of this comparison ID")
	f.Bool("json", false, "Print runs as JSON")
	return cmd
}

func runRuns(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	limit, _ := cmd.Flags().GetInt("limit")
	comparisonID, _ := cmd.Flags().GetString("comparison")
	asJSON, _ := cmd.Flags().GetBool("json")

	if dbPath == "" {
		return errors.New("--db (or POINTER_PREDICT_DB) is required")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer st.Close()

	var runs []store.RunRecord
	if comparisonID != "" {
		runs, err = st.Comparison(comparisonID)
	} else {
		runs, err = st.Runs(limit)
	}
	if err != nil {
		return err
	}

	if asJSON {
		if runs == nil {
			runs = []store.RunRecord{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	version, dirty, err := st.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	schema := fmt.Sprintf("v%d", version)
	if dirty {
		schema += " (dirty)"
	}
	rep := report.NewTerminalReporter(cmd.OutOrStdout(), nil)
	rep.StoredRuns(runs)
	rep.Label(8, "Schema:", schema)
	return nil
}
