package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rytflow/rytflow/internal/cli"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the change ledger",
		RunE:  runHistory,
	}

	cmd.Flags().String("row", "", "only entries for this row")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rowID, _ := cmd.Flags().GetString("row")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.GetAllHistory(ctx)
	if err != nil {
		return err
	}

	shown := 0
	for _, entry := range entries {
		if rowID != "" && entry.RowID != rowID {
			continue
		}
		line := fmt.Sprintf("%s  %-18s %s/%s  %q → %q",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Action, entry.RowID, entry.ColumnKey,
			entry.PreviousValue, entry.NewValue)
		if entry.Reason != "" {
			line += cli.SubtleStyle.Render("  (" + entry.Reason + ")")
		}
		fmt.Println(line)
		shown++
	}

	if shown == 0 {
		fmt.Println(cli.FormatInfo("No history entries"))
	}
	return nil
}
