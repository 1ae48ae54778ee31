package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rytflow/rytflow/internal/cli"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the cleaned batch",
		Long: `Export writes the batch's current values as flat records. Rows with a
skipped cell are left out. The output format follows the file extension
(.csv or .json); without --out, CSV goes to stdout.`,
		RunE: runExport,
	}

	cmd.Flags().StringP("out", "o", "", "output file (.csv or .json)")
	cmd.Flags().Bool("force", false, "export even when cells still need review")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out, _ := cmd.Flags().GetString("out")
	force, _ := cmd.Flags().GetBool("force")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess, err := loadSession(ctx, store)
	if err != nil {
		return err
	}

	counts := sess.batch.NeedsReview()
	if counts.Total() > 0 && !force {
		return fmt.Errorf("%s still need review; use --force to export anyway", cli.RenderReviewCounts(counts))
	}

	records := sess.batch.ExportRecords()
	columns := sess.batch.Columns()

	var writer io.Writer = os.Stdout
	format := "csv"
	if out != "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".json":
			format = "json"
		case ".csv":
		default:
			return fmt.Errorf("unsupported output extension %q", filepath.Ext(out))
		}

		file, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		defer func() { _ = file.Close() }()
		writer = file
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(records); err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
	default:
		w := csv.NewWriter(writer)
		header := make([]string, 0, len(columns))
		for _, col := range columns {
			header = append(header, col.Key)
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to write export header: %w", err)
		}
		for _, record := range records {
			line := make([]string, 0, len(columns))
			for _, col := range columns {
				line = append(line, record[col.Key])
			}
			if err := w.Write(line); err != nil {
				return fmt.Errorf("failed to write export row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("failed to flush export: %w", err)
		}
	}

	if out != "" {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d rows to %s", len(records), out)))
	}
	return nil
}
