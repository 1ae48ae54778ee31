package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/grid"
	"github.com/rytflow/rytflow/internal/model"
	"github.com/rytflow/rytflow/internal/rules"
	"github.com/rytflow/rytflow/internal/whatsapp"
)

type sentMessage struct {
	to   string
	body string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, body string) (*whatsapp.SendResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sentMessage{to: to, body: body})
	return &whatsapp.SendResult{MessageSID: "SM-test", Success: true}, nil
}

type fakePoller struct {
	submissions []whatsapp.Submission
	err         error
}

func (f *fakePoller) Poll(context.Context) ([]whatsapp.Submission, error) {
	return f.submissions, f.err
}

// missingBankBatch builds a one-row batch whose bank cell is critical.
func missingBankBatch(t *testing.T) (*grid.Batch, string) {
	t.Helper()
	b, err := grid.NewFromImport(grid.ImportInput{
		FileName: "test.csv",
		RawRows: []map[string]string{{
			"name":          "Ali Ahmad",
			"amount":        "5000.00",
			"accountNumber": "123456789012",
			"bank":          "",
			"date":          "2024-03-15",
			"phone":         "+60123456789",
		}},
	}, rules.DefaultRuleSet(), nil)
	require.NoError(t, err)

	rowID := b.Rows()[0].ID
	require.NoError(t, b.RevertToCritical(rowID, "bank", "Missing bank code"))
	return b, rowID
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeSender, *grid.Batch, string) {
	t.Helper()
	b, rowID := missingBankBatch(t)
	sender := &fakeSender{}
	c := NewCoordinator(b, sender, nil, Config{})
	return c, sender, b, rowID
}

func TestRequestMissingDataSendsAndLocks(t *testing.T) {
	c, sender, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	assert.Equal(t, rowID, request.RowID)
	assert.Equal(t, model.RequestPending, request.Status)
	assert.Equal(t, []string{"bank"}, request.TargetFields)
	assert.Equal(t, "http://localhost:3000/verify/"+request.ID, request.FormLink)
	assert.Equal(t, "SM-test", request.MessageSID)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+60123456789", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "Hi Ali Ahmad")
	assert.Contains(t, sender.sent[0].body, "Missing: bank")
	assert.Contains(t, sender.sent[0].body, request.FormLink)

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.True(t, row.Locked)
	assert.Equal(t, request.ID, row.OutboundThreadID)
}

func TestRequestMissingDataReusesPendingRequest(t *testing.T) {
	c, sender, _, rowID := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.RequestMissingData(ctx, rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	// Same row and field set: the pending request is returned, nothing sent.
	second, err := c.RequestMissingData(ctx, rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, sender.sent, 1)

	// A different field set opens a fresh conversation.
	third, err := c.RequestMissingData(ctx, rowID, []string{"bank", "date"}, RequestOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Len(t, sender.sent, 2)
}

func TestRequestMissingDataFieldSetOrderInsensitive(t *testing.T) {
	c, sender, _, rowID := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.RequestMissingData(ctx, rowID, []string{"bank", "date"}, RequestOptions{})
	require.NoError(t, err)

	second, err := c.RequestMissingData(ctx, rowID, []string{"date", "bank"}, RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, sender.sent, 1)
}

func TestRequestMissingDataSendFailureRollsBack(t *testing.T) {
	c, sender, b, rowID := newTestCoordinator(t)
	sender.err = errors.New("twilio unreachable")

	_, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.Error(t, err)

	row, rowErr := b.Row(rowID)
	require.NoError(t, rowErr)
	assert.False(t, row.Locked)
	assert.Empty(t, c.Pending())

	// A retry after the channel recovers starts clean.
	sender.err = nil
	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)
	assert.Len(t, c.Pending(), 1)
	assert.Equal(t, model.RequestPending, request.Status)
}

func TestRequestMissingDataValidation(t *testing.T) {
	c, _, _, rowID := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.RequestMissingData(ctx, rowID, nil, RequestOptions{})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = c.RequestMissingData(ctx, "no-such-row", []string{"bank"}, RequestOptions{})
	assert.ErrorIs(t, err, common.ErrRowNotFound)
}

func TestRequestMissingDataOverrides(t *testing.T) {
	c, sender, _, rowID := newTestCoordinator(t)

	_, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{
		PhoneOverride:     "0198887777",
		RecipientOverride: "Finance Team",
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+60198887777", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "Hi Finance Team")
}

func TestRequestMissingDataPaymentDetails(t *testing.T) {
	c, sender, _, rowID := newTestCoordinator(t)

	_, err := c.RequestMissingData(context.Background(), rowID, []string{"amount"}, RequestOptions{
		Details: &PaymentDetails{Amount: "5000.00", Bank: "MBB"},
	})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].body, "Amount: 5000.00")
	assert.Contains(t, sender.sent[0].body, "Bank: MBB")
	assert.Contains(t, sender.sent[0].body, "Account: N/A")
}

func TestApplyReplyMergesAndUnlocks(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	require.NoError(t, c.ApplyReply(request.ID, map[string]string{"bank": "MBB"}))

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.Equal(t, "MBB", row.Data["bank"])
	assert.False(t, row.Locked)

	status := row.StatusFor("bank")
	assert.Equal(t, model.StateLiveUpdate, status.State)
	assert.Equal(t, model.SourceWhatsApp, status.Source)

	assert.Empty(t, c.Pending())
}

func TestApplyReplyIdempotent(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	require.NoError(t, c.ApplyReply(request.ID, map[string]string{"bank": "MBB"}))

	// A redelivered reply, even with different data, changes nothing.
	require.NoError(t, c.ApplyReply(request.ID, map[string]string{"bank": "CIMB"}))

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.Equal(t, "MBB", row.Data["bank"])
}

func TestApplyReplyUnknownRequest(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)
	err := c.ApplyReply("missing-id", map[string]string{"bank": "MBB"})
	assert.ErrorIs(t, err, common.ErrRequestNotFound)
}

func TestApplyReplySkipsUnknownFields(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	require.NoError(t, c.ApplyReply(request.ID, map[string]string{
		"bank":     "MBB",
		"nonsense": "ignored",
	}))

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.Equal(t, "MBB", row.Data["bank"])
	assert.NotContains(t, row.Data, "nonsense")
}

func TestApplyReplyLastWriteWins(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	// A manual edit lands while the request is in flight. The reply still
	// wins, and the edit becomes the undo baseline for the reconciled value.
	require.NoError(t, b.UpdateCell(rowID, "bank", "PBB"))
	require.NoError(t, c.ApplyReply(request.ID, map[string]string{"bank": "MBB"}))

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.Equal(t, "MBB", row.Data["bank"])

	history := b.History()
	last := history[len(history)-1]
	assert.Equal(t, model.ActionReconciled, last.Action)
	assert.Equal(t, "PBB", last.PreviousValue)
	assert.Equal(t, "MBB", last.NewValue)
}

func TestPollAppliesSubmissions(t *testing.T) {
	b, rowID := missingBankBatch(t)
	sender := &fakeSender{}
	poller := &fakePoller{}
	c := NewCoordinator(b, sender, poller, Config{})
	ctx := context.Background()

	request, err := c.RequestMissingData(ctx, rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	poller.submissions = []whatsapp.Submission{
		{RequestID: request.ID, Data: map[string]string{"bank": "MBB"}},
	}

	applied, err := c.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{request.ID}, applied)

	// Channel redelivery on the next pass is deduplicated.
	applied, err = c.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestPollResolvesRequestByRow(t *testing.T) {
	b, rowID := missingBankBatch(t)
	poller := &fakePoller{}
	c := NewCoordinator(b, &fakeSender{}, poller, Config{})
	ctx := context.Background()

	request, err := c.RequestMissingData(ctx, rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	// Form submissions carry the row, not always the request.
	poller.submissions = []whatsapp.Submission{
		{RowID: rowID, Data: map[string]string{"bank": "MBB"}},
	}

	applied, err := c.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{request.ID}, applied)
}

func TestPollDropsUnmatchedSubmissions(t *testing.T) {
	b, _ := missingBankBatch(t)
	poller := &fakePoller{submissions: []whatsapp.Submission{
		{RowID: "unknown-row", Data: map[string]string{"bank": "MBB"}},
	}}
	c := NewCoordinator(b, &fakeSender{}, poller, Config{})

	applied, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestPollErrors(t *testing.T) {
	b, _ := missingBankBatch(t)
	poller := &fakePoller{err: errors.New("file unreadable")}
	c := NewCoordinator(b, &fakeSender{}, poller, Config{})

	_, err := c.Poll(context.Background())
	assert.ErrorIs(t, err, common.ErrPollFailed)
}

func TestPollWithoutPoller(t *testing.T) {
	b, _ := missingBankBatch(t)
	c := NewCoordinator(b, &fakeSender{}, nil, Config{})

	applied, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, applied)
}

func TestExpireRevertsAndUnlocks(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	require.NoError(t, c.Expire(request.ID))

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.False(t, row.Locked)

	status := row.StatusFor("bank")
	assert.Equal(t, model.StateCritical, status.State)
	assert.Equal(t, "Request expired - no reply received", status.Message)

	assert.Empty(t, c.Pending())

	// Expiring twice is harmless.
	require.NoError(t, c.Expire(request.ID))
}

func TestExpireUnknownRequest(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)
	assert.ErrorIs(t, c.Expire("missing-id"), common.ErrRequestNotFound)
}

func TestExpireAfterReplyIsNoOp(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)
	require.NoError(t, c.ApplyReply(request.ID, map[string]string{"bank": "MBB"}))

	require.NoError(t, c.Expire(request.ID))

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.Equal(t, model.StateLiveUpdate, row.StatusFor("bank").State)
}

func TestExpireKeepsManuallyResolvedCells(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)

	request, err := c.RequestMissingData(context.Background(), rowID, []string{"bank", "date"}, RequestOptions{})
	require.NoError(t, err)

	// The operator fixes the bank code while the request is in flight.
	require.NoError(t, b.UpdateCell(rowID, "bank", "MBB"))

	require.NoError(t, c.Expire(request.ID))

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.False(t, row.Locked)

	// The manual fix survives expiry; only the unresolved target reverts.
	bank := row.StatusFor("bank")
	assert.Equal(t, model.StateValidated, bank.State)
	assert.Equal(t, "MBB", row.Data["bank"])

	date := row.StatusFor("date")
	assert.Equal(t, model.StateCritical, date.State)
	assert.Equal(t, "Request expired - no reply received", date.Message)
}

func TestApplyReplyFailureDoesNotConsumeReply(t *testing.T) {
	b, _ := missingBankBatch(t)
	c := NewCoordinator(b, &fakeSender{}, nil, Config{})

	c.Restore([]model.WhatsAppRequest{{
		ID:           "req-orphan",
		RowID:        "no-such-row",
		TargetFields: []string{"bank"},
		Status:       model.RequestPending,
	}})

	err := c.ApplyReply("req-orphan", map[string]string{"bank": "MBB"})
	assert.ErrorIs(t, err, common.ErrRowNotFound)

	// The failed reply is not marked consumed, so a redelivery surfaces the
	// same error instead of being silently dropped.
	err = c.ApplyReply("req-orphan", map[string]string{"bank": "MBB"})
	assert.ErrorIs(t, err, common.ErrRowNotFound)
}

func TestRestore(t *testing.T) {
	b, rowID := missingBankBatch(t)
	c := NewCoordinator(b, &fakeSender{}, nil, Config{})

	replied := model.WhatsAppRequest{
		ID:           "req-replied",
		RowID:        rowID,
		TargetFields: []string{"bank"},
		Status:       model.RequestReplied,
	}
	pending := model.WhatsAppRequest{
		ID:           "req-pending",
		RowID:        rowID,
		TargetFields: []string{"date"},
		Status:       model.RequestPending,
	}
	c.Restore([]model.WhatsAppRequest{replied, pending})

	pendingOut := c.Pending()
	require.Len(t, pendingOut, 1)
	assert.Equal(t, "req-pending", pendingOut[0].ID)

	// Replies to the already-replied request are treated as redelivery.
	require.NoError(t, c.ApplyReply("req-replied", map[string]string{"bank": "CIMB"}))
	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.NotEqual(t, "CIMB", row.Data["bank"])
}

func TestReconciliationCycle(t *testing.T) {
	c, _, b, rowID := newTestCoordinator(t)
	ctx := context.Background()

	request, err := c.RequestMissingData(ctx, rowID, []string{"bank"}, RequestOptions{})
	require.NoError(t, err)

	require.NoError(t, c.ApplyReply(request.ID, map[string]string{"bank": "MBB"}))

	confirmed := b.ConfirmLiveUpdates()
	require.Len(t, confirmed, 1)
	assert.Equal(t, grid.Cursor{RowID: rowID, ColumnKey: "bank"}, confirmed[0])

	row, err := b.Row(rowID)
	require.NoError(t, err)
	assert.Equal(t, model.StateValidated, row.StatusFor("bank").State)
	assert.False(t, row.NeedsReview())
}
