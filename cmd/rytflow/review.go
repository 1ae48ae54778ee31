package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rytflow/rytflow/internal/cli"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review the active batch",
		Long: `Review shows the active batch with every cell colored by its review
state. With --interactive, outstanding issues are walked one by one and
each decision is applied and recorded immediately.`,
		RunE: runReview,
	}

	cmd.Flags().BoolP("interactive", "i", false, "walk outstanding issues interactively")
	cmd.Flags().Bool("grid", false, "print the full grid, not just the summary")

	return cmd
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	interactive, _ := cmd.Flags().GetBool("interactive")
	showGrid, _ := cmd.Flags().GetBool("grid")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess, err := loadSession(ctx, store)
	if err != nil {
		return err
	}

	if interactive {
		handler := cli.NewInterruptHandler(os.Stdout)
		ctx = handler.HandleInterrupts(ctx, true)

		prompter := cli.NewReviewPrompter(sess.batch, os.Stdin, os.Stdout)
		runErr := prompter.Run(ctx)

		// Persist whatever was decided, interrupted or not. The review
		// context may already be canceled, so saving gets its own.
		if err := sess.persist(context.Background()); err != nil {
			return err
		}
		if runErr != nil && !handler.WasInterrupted() {
			return runErr
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Resolved %d cells", prompter.Resolved())))
		return nil
	}

	fmt.Println(cli.RenderBatchSummary(sess.batch))
	if showGrid {
		fmt.Println()
		fmt.Println(cli.RenderGrid(sess.batch))
	}
	return nil
}
