package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rytflow/rytflow/internal/cli"
)

func fixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Apply, reject, or revisit suggested fixes",
		Long: `Fix applies pending suggestions without the interactive review loop.

  rytflow fix --column amount           apply every suggestion in a column
  rytflow fix --row <id> --col amount   apply one cell's suggestion
  rytflow fix --row <id> --col amount --reject
  rytflow fix --row <id> --col amount --undo
  rytflow fix --redo`,
		RunE: runFix,
	}

	cmd.Flags().String("column", "", "apply every pending suggestion in this column")
	cmd.Flags().String("row", "", "row ID for single-cell operations")
	cmd.Flags().String("col", "", "column key for single-cell operations")
	cmd.Flags().Bool("reject", false, "reject instead of apply")
	cmd.Flags().Bool("undo", false, "undo the most recent change to the cell")
	cmd.Flags().Bool("redo", false, "redo the most recently undone change")
	cmd.Flags().String("value", "", "set the cell to this value instead of the suggestion")

	return cmd
}

func runFix(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	column, _ := cmd.Flags().GetString("column")
	rowID, _ := cmd.Flags().GetString("row")
	col, _ := cmd.Flags().GetString("col")
	reject, _ := cmd.Flags().GetBool("reject")
	undo, _ := cmd.Flags().GetBool("undo")
	redo, _ := cmd.Flags().GetBool("redo")
	value, _ := cmd.Flags().GetString("value")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess, err := loadSession(ctx, store)
	if err != nil {
		return err
	}
	batch := sess.batch

	switch {
	case redo:
		if !batch.Redo() {
			fmt.Println(cli.FormatInfo("Nothing to redo"))
			return nil
		}
		fmt.Println(cli.FormatSuccess("Redid last undone change"))

	case undo:
		if rowID == "" || col == "" {
			return fmt.Errorf("--undo needs --row and --col")
		}
		if !batch.Undo(rowID, col) {
			fmt.Println(cli.FormatInfo("No history for that cell"))
			return nil
		}
		fmt.Println(cli.FormatSuccess("Change undone, previous suggestion restored"))

	case column != "":
		applied, err := batch.ApplyColumnFix(column)
		if err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Applied %d suggestions in column %s", applied, column)))

	case rowID != "" && col != "":
		switch {
		case value != "":
			err = batch.UpdateCell(rowID, col, value)
		case reject:
			err = batch.RejectSuggestion(rowID, col)
		default:
			err = batch.ApplySuggestion(rowID, col)
		}
		if err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated %s/%s", rowID, col)))

	default:
		return fmt.Errorf("nothing to do: pass --column, --row/--col, --undo, or --redo")
	}

	return sess.persist(ctx)
}
