package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/rytflow/rytflow/internal/cli"
	"github.com/rytflow/rytflow/internal/grid"
	"github.com/rytflow/rytflow/internal/importer"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import a payment batch and run it through the cleaning rules",
		Long: `Import parses a CSV payment file, maps its columns onto the rule set's
schema, cleans every field, and flags duplicates against payment history.
The processed batch becomes the active batch for review.

With --demo, a built-in sample batch is imported instead of a file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringSlice("map", nil, "column mapping as source=target (repeatable)")
	cmd.Flags().Bool("demo", false, "import the built-in demo batch")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	demo, _ := cmd.Flags().GetBool("demo")
	mapFlags, _ := cmd.Flags().GetStringSlice("map")

	if !demo && len(args) == 0 {
		return fmt.Errorf("provide a CSV file or use --demo")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ruleSet, err := loadRuleSet()
	if err != nil {
		return err
	}

	input := grid.ImportInput{}
	if demo {
		input.FileName = "demo.csv"
		input.RawRows = importer.DemoRows()
	} else {
		path := args[0]
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = file.Close() }()

		parsed, err := importer.NewParser().ParseFile(ctx, file, path)
		if err != nil {
			return err
		}

		input.FileName = parsed.FileName
		input.RawRows = parsed.Rows
		input.Mappings = importer.DetectMappings(parsed.Headers, ruleSet)
	}

	for _, m := range mapFlags {
		parts := strings.SplitN(m, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid --map %q, want source=target", m)
		}
		if input.Mappings == nil {
			input.Mappings = make(map[string]string)
		}
		input.Mappings[parts[0]] = parts[1]
	}

	index, err := loadDedupeIndex(ctx, store)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(input.RawRows),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Cleaning rows...[reset]"),
	)

	batch, err := grid.NewFromImport(input, ruleSet, index)
	if err != nil {
		return err
	}
	_ = bar.Set(len(input.RawRows))
	fmt.Fprintln(os.Stderr)

	if err := store.SaveBatch(ctx, batch.Snapshot()); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}

	fmt.Println(cli.RenderBatchSummary(batch))
	return nil
}
