package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rytflow/rytflow/internal/cli"
	"github.com/rytflow/rytflow/internal/config"
	"github.com/rytflow/rytflow/internal/reconcile"
	"github.com/rytflow/rytflow/internal/service"
	"github.com/rytflow/rytflow/internal/whatsapp"
)

const requestTTL = 24 * time.Hour

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Chase missing or disputed data over WhatsApp",
	}

	cmd.AddCommand(reconcileSendCmd())
	cmd.AddCommand(reconcilePollCmd())
	cmd.AddCommand(reconcileExpireCmd())
	cmd.AddCommand(reconcileConfirmCmd())

	return cmd
}

func reconcileSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a form request for a row's missing fields",
		RunE:  runReconcileSend,
	}

	cmd.Flags().String("row", "", "row ID to request data for (required)")
	cmd.Flags().StringSlice("fields", nil, "field keys to request (required)")
	cmd.Flags().String("phone", "", "override the recipient phone number")
	_ = cmd.MarkFlagRequired("row")
	_ = cmd.MarkFlagRequired("fields")

	return cmd
}

func runReconcileSend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rowID, _ := cmd.Flags().GetString("row")
	fields, _ := cmd.Flags().GetStringSlice("fields")
	phone, _ := cmd.Flags().GetString("phone")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess, err := loadSession(ctx, store)
	if err != nil {
		return err
	}

	coordinator, err := buildCoordinator(ctx, sess, store, "")
	if err != nil {
		return err
	}

	request, err := coordinator.RequestMissingData(ctx, rowID, fields, reconcile.RequestOptions{
		PhoneOverride: phone,
	})
	if err != nil {
		return err
	}

	if err := store.SaveRequest(ctx, request); err != nil {
		return err
	}
	if err := sess.persist(ctx); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Request %s sent to %s", request.ID, request.RecipientPhone)))
	fmt.Println(cli.SubtleStyle.Render("Form: " + request.FormLink))
	return nil
}

func reconcilePollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Apply form replies to the batch",
		Long: `Poll reads collected form submissions and merges each reply into the
batch. Replies already applied are skipped, so polling the same source
twice is safe.`,
		RunE: runReconcilePoll,
	}

	cmd.Flags().String("file", "", "JSON file of form submissions (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runReconcilePoll(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	file, _ := cmd.Flags().GetString("file")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess, err := loadSession(ctx, store)
	if err != nil {
		return err
	}

	coordinator, err := buildCoordinator(ctx, sess, store, file)
	if err != nil {
		return err
	}

	applied, err := coordinator.Poll(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, id := range applied {
		if err := store.MarkRequestReplied(ctx, id, now); err != nil {
			return err
		}
	}
	if err := sess.persist(ctx); err != nil {
		return err
	}

	if len(applied) == 0 {
		fmt.Println(cli.FormatInfo("No new replies"))
	} else {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Applied %d replies", len(applied))))
	}
	return nil
}

func reconcileExpireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire pending requests past their deadline",
		Long: `Expire abandons pending requests older than 24 hours: the row unlocks
and each unanswered cell returns to critical so it shows up in review
again. Use --all to expire regardless of age.`,
		RunE: runReconcileExpire,
	}

	cmd.Flags().Bool("all", false, "expire every pending request regardless of age")

	return cmd
}

func runReconcileExpire(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	all, _ := cmd.Flags().GetBool("all")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sess, err := loadSession(ctx, store)
	if err != nil {
		return err
	}

	coordinator, err := buildCoordinator(ctx, sess, store, "")
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-requestTTL)
	expired := 0
	for _, request := range coordinator.Pending() {
		if !all && request.SentAt.After(cutoff) {
			continue
		}
		if err := coordinator.Expire(request.ID); err != nil {
			return err
		}
		if err := store.MarkRequestExpired(ctx, request.ID); err != nil {
			return err
		}
		expired++
	}
	if err := sess.persist(ctx); err != nil {
		return err
	}

	fmt.Println(cli.FormatInfo(fmt.Sprintf("Expired %d requests", expired)))
	return nil
}

func reconcileConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Acknowledge reconciled values",
		Long: `Confirm promotes every cell updated by a reply from its transient
highlighted state to validated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sess, err := loadSession(ctx, store)
			if err != nil {
				return err
			}

			confirmed := sess.batch.ConfirmLiveUpdates()
			if err := sess.persist(ctx); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Confirmed %d reconciled cells", len(confirmed))))
			return nil
		},
	}
}

// buildCoordinator wires a coordinator over the session's batch, restoring
// previously persisted requests so idempotency survives restarts. The sender
// falls back to a console dry-run when Twilio is not configured.
func buildCoordinator(ctx context.Context, sess *session, store service.Storage, submissionsFile string) (*reconcile.Coordinator, error) {
	var sender whatsapp.Sender

	twilioConfig := config.LoadTwilioConfig()
	if twilioConfig.Configured() {
		twilioSender, err := whatsapp.NewTwilioSender(twilioConfig)
		if err != nil {
			return nil, err
		}
		sender = whatsapp.NewRetryingSender(twilioSender, service.RetryOptions{
			MaxAttempts: viper.GetInt("reconcile.send_attempts"),
		})
	} else {
		fmt.Println(cli.FormatWarning("Twilio not configured, messages print to the console"))
		sender = whatsapp.NewConsoleSender(os.Stdout)
	}

	var poller whatsapp.Poller
	if submissionsFile != "" {
		poller = whatsapp.NewFilePoller(submissionsFile)
	}

	coordinator := reconcile.NewCoordinator(sess.batch, sender, poller, reconcile.Config{
		FormBaseURL:    viper.GetString("reconcile.form_base_url"),
		DefaultCountry: viper.GetString("reconcile.default_country"),
	})

	pending, err := store.GetPendingRequests(ctx)
	if err != nil {
		return nil, err
	}
	coordinator.Restore(pending)

	return coordinator, nil
}
