package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rytflow/rytflow/internal/cli"
)

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all batches, requests, and history",
		Long: `Reset removes every batch, reconciliation request, ledger entry, and
payment history record. The schema itself is kept.

This is a destructive operation.`,
		RunE: runReset,
	}

	cmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")

	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	force, _ := cmd.Flags().GetBool("force")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !force {
		fmt.Print("This will delete all batches and history. Continue? [y/N]: ")
		response, err := cli.NewNonBlockingReader(os.Stdin).ReadLine(ctx)
		if err != nil {
			if errors.Is(err, cli.ErrInputCancelled) {
				fmt.Println()
				fmt.Println(cli.FormatInfo("Reset canceled"))
				return nil
			}
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.ToLower(response) != "y" {
			fmt.Println(cli.FormatInfo("Reset canceled"))
			return nil
		}
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess("All data deleted"))
	return nil
}
