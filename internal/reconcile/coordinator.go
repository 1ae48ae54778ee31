// Package reconcile turns missing or disputed fields into outbound requests
// and merges asynchronous replies back into the batch without losing
// in-flight edits.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/grid"
	"github.com/rytflow/rytflow/internal/model"
	"github.com/rytflow/rytflow/internal/whatsapp"
)

// Config holds the coordinator's channel settings.
type Config struct {
	// FormBaseURL is the public base for verification form links.
	FormBaseURL string
	// DefaultCountry selects the country code for bare phone numbers.
	DefaultCountry string
}

// Coordinator owns the request/reply cycle between one batch and the
// outbound channel. Requests are idempotent per (row, field set) and
// replies are applied at most once per request even if the channel
// redelivers them.
type Coordinator struct {
	batch    *grid.Batch
	sender   whatsapp.Sender
	poller   whatsapp.Poller
	config   Config
	requests map[string]*model.WhatsAppRequest
	applied  map[string]bool
	mu       sync.Mutex
}

// NewCoordinator wires a coordinator to a batch and its channel effects.
func NewCoordinator(batch *grid.Batch, sender whatsapp.Sender, poller whatsapp.Poller, config Config) *Coordinator {
	if config.FormBaseURL == "" {
		config.FormBaseURL = "http://localhost:3000"
	}
	if config.DefaultCountry == "" {
		config.DefaultCountry = "MY"
	}
	return &Coordinator{
		batch:    batch,
		sender:   sender,
		poller:   poller,
		config:   config,
		requests: make(map[string]*model.WhatsAppRequest),
		applied:  make(map[string]bool),
	}
}

// RequestOptions tweaks one outbound request.
type RequestOptions struct {
	// Details switches the message to the payment-confirmation template.
	Details *PaymentDetails
	// PhoneOverride replaces the row's phone number as the recipient.
	PhoneOverride string
	// RecipientOverride replaces the row's name in the message.
	RecipientOverride string
}

// RequestMissingData sends an outbound request for the given fields of a
// row and locks the row while the request is in flight. Issuing a second
// request for the same (row, field set) while one is pending returns the
// existing handle instead of opening another conversation. If the send
// fails the lock is released and the pending record discarded.
func (c *Coordinator) RequestMissingData(ctx context.Context, rowID string, fields []string, opts RequestOptions) (*model.WhatsAppRequest, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no target fields", common.ErrInvalidConfig)
	}

	row, err := c.batch.Row(rowID)
	if err != nil {
		return nil, err
	}

	phone := opts.PhoneOverride
	if phone == "" {
		phone = row.Data["phone"]
	}
	if phone == "" {
		phone = row.PhoneNumber
	}
	phone = whatsapp.NormalizePhone(phone, c.config.DefaultCountry)
	if phone == "" {
		return nil, fmt.Errorf("%w: row %s", common.ErrNoPhoneNumber, rowID)
	}

	recipient := opts.RecipientOverride
	if recipient == "" {
		recipient = row.Data["name"]
	}
	if recipient == "" {
		recipient = "there"
	}

	c.mu.Lock()
	for _, existing := range c.requests {
		if existing.RowID == rowID && existing.Status == model.RequestPending && existing.Targets(fields) {
			c.mu.Unlock()
			slog.Debug("Reusing pending request", "request_id", existing.ID, "row_id", rowID)
			out := *existing
			return &out, nil
		}
	}

	request := &model.WhatsAppRequest{
		ID:             uuid.NewString(),
		RowID:          rowID,
		RecipientName:  recipient,
		RecipientPhone: phone,
		TargetFields:   append([]string(nil), fields...),
		SentAt:         time.Now(),
		Status:         model.RequestPending,
	}
	request.FormLink = BuildFormLink(c.config.FormBaseURL, request.ID)
	c.requests[request.ID] = request
	c.mu.Unlock()

	if err := c.batch.LockRow(rowID, request.ID); err != nil {
		c.dropRequest(request.ID)
		return nil, err
	}

	var body string
	if opts.Details != nil {
		body = BuildPaymentDetailsMessage(recipient, *opts.Details, request.FormLink)
	} else {
		body = BuildMissingFieldsMessage(recipient, fields, request.FormLink)
	}

	result, err := c.sender.Send(ctx, phone, body)
	if err != nil {
		// Roll back the optimistic lock and pending record so the
		// caller can retry cleanly.
		c.dropRequest(request.ID)
		if unlockErr := c.batch.UnlockRow(rowID); unlockErr != nil {
			common.LogError(unlockErr, "Failed to unlock row after send failure", common.Fields{"row_id": rowID})
		}
		return nil, fmt.Errorf("failed to send reconciliation request: %w", err)
	}

	c.mu.Lock()
	request.MessageSID = result.MessageSID
	out := *request
	c.mu.Unlock()

	slog.Info("Sent reconciliation request",
		"request_id", request.ID,
		"row_id", rowID,
		"fields", fields)
	return &out, nil
}

// ApplyReply merges one reply into the batch. Each supplied field reads the
// row's current value as the undo baseline, moves the cell to live-update,
// and records a reconciled ledger entry; the row unlocks only after every
// field is applied. Applying the same request twice is a no-op.
func (c *Coordinator) ApplyReply(requestID string, fields map[string]string) error {
	c.mu.Lock()
	request, ok := c.requests[requestID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", common.ErrRequestNotFound, requestID)
	}
	if c.applied[requestID] {
		c.mu.Unlock()
		slog.Debug("Ignoring redelivered reply", "request_id", requestID)
		return nil
	}
	c.applied[requestID] = true
	rowID := request.RowID
	c.mu.Unlock()

	for key, value := range fields {
		if err := c.batch.ApplyReconciledValue(rowID, key, value); err != nil {
			if errors.Is(err, common.ErrColumnNotFound) {
				slog.Warn("Reply carried unknown field", "request_id", requestID, "field", key)
				continue
			}
			// Release the claim so a redelivered reply can retry.
			c.clearApplied(requestID)
			return err
		}
	}

	if err := c.batch.UnlockRow(rowID); err != nil {
		c.clearApplied(requestID)
		return err
	}

	c.mu.Lock()
	now := time.Now()
	request.Status = model.RequestReplied
	request.RepliedAt = &now
	c.mu.Unlock()

	slog.Info("Applied reconciliation reply", "request_id", requestID, "row_id", rowID)
	return nil
}

// Poll drains the channel of newly-submitted replies and applies each one,
// returning the request IDs applied in this pass. Submissions already seen
// are skipped, so redelivery by the channel is harmless.
func (c *Coordinator) Poll(ctx context.Context) ([]string, error) {
	if c.poller == nil {
		return nil, nil
	}

	submissions, err := c.poller.Poll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPollFailed, err)
	}

	var appliedIDs []string
	for _, sub := range submissions {
		requestID := sub.RequestID
		if requestID == "" {
			requestID = c.pendingRequestFor(sub.RowID)
		}
		if requestID == "" {
			slog.Warn("Dropping submission with no matching request", "row_id", sub.RowID)
			continue
		}

		c.mu.Lock()
		alreadyApplied := c.applied[requestID]
		c.mu.Unlock()
		if alreadyApplied {
			continue
		}

		if err := c.ApplyReply(requestID, sub.Data); err != nil {
			common.LogError(err, "Failed to apply polled reply", common.Fields{"request_id": requestID})
			continue
		}
		appliedIDs = append(appliedIDs, requestID)
	}
	return appliedIDs, nil
}

// Expire abandons a pending request: the row unlocks and each still-pending
// target cell returns to critical. Callers own the timeout policy; the
// channel itself has no cancellation primitive.
func (c *Coordinator) Expire(requestID string) error {
	c.mu.Lock()
	request, ok := c.requests[requestID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", common.ErrRequestNotFound, requestID)
	}
	if request.Status != model.RequestPending {
		c.mu.Unlock()
		return nil
	}
	request.Status = model.RequestExpired
	rowID := request.RowID
	targets := append([]string(nil), request.TargetFields...)
	c.mu.Unlock()

	if err := c.batch.UnlockRow(rowID); err != nil {
		return err
	}
	row, err := c.batch.Row(rowID)
	if err != nil {
		return err
	}
	for _, field := range targets {
		// A cell resolved while the request was pending keeps its
		// resolution; manual edits always win over the channel.
		switch row.StatusFor(field).State {
		case model.StateValidated, model.StateLiveUpdate, model.StateSkipped:
			continue
		}
		if err := c.batch.RevertToCritical(rowID, field, "Request expired - no reply received"); err != nil {
			return err
		}
	}

	slog.Info("Expired reconciliation request", "request_id", requestID, "row_id", rowID)
	return nil
}

// Pending lists the requests still awaiting a reply.
func (c *Coordinator) Pending() []model.WhatsAppRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.WhatsAppRequest
	for _, request := range c.requests {
		if request.Status == model.RequestPending {
			out = append(out, *request)
		}
	}
	return out
}

// Restore reloads previously persisted requests, marking replied and
// expired ones as already applied.
func (c *Coordinator) Restore(requests []model.WhatsAppRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range requests {
		request := requests[i]
		c.requests[request.ID] = &request
		if request.Status != model.RequestPending {
			c.applied[request.ID] = true
		}
	}
}

func (c *Coordinator) pendingRequestFor(rowID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, request := range c.requests {
		if request.RowID == rowID && request.Status == model.RequestPending {
			return request.ID
		}
	}
	return ""
}

func (c *Coordinator) clearApplied(requestID string) {
	c.mu.Lock()
	delete(c.applied, requestID)
	c.mu.Unlock()
}

func (c *Coordinator) dropRequest(requestID string) {
	c.mu.Lock()
	delete(c.requests, requestID)
	c.mu.Unlock()
}
