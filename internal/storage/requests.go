package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/model"
)

// SaveRequest inserts or updates a reconciliation request.
func (s *SQLiteStorage) SaveRequest(ctx context.Context, req *model.WhatsAppRequest) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("%w: request", ErrNilParameter)
	}
	if err := validateString(req.ID, "request.ID"); err != nil {
		return err
	}

	fields, err := json.Marshal(req.TargetFields)
	if err != nil {
		return fmt.Errorf("failed to marshal target fields: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO whatsapp_requests
		 (id, row_id, recipient_name, recipient_phone, target_fields, sent_at, status, replied_at, form_link, message_sid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 status = excluded.status, replied_at = excluded.replied_at, message_sid = excluded.message_sid`,
		req.ID, req.RowID, req.RecipientName, req.RecipientPhone, string(fields),
		req.SentAt, string(req.Status), req.RepliedAt, req.FormLink, req.MessageSID); err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// GetRequest loads one request by ID.
func (s *SQLiteStorage) GetRequest(ctx context.Context, id string) (*model.WhatsAppRequest, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, row_id, recipient_name, recipient_phone, target_fields, sent_at, status, replied_at, form_link, message_sid
		 FROM whatsapp_requests WHERE id = ?`, id)

	req, err := scanRequest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrRequestNotFound, id)
	}
	return req, err
}

// GetPendingRequests lists the requests still awaiting a reply, oldest
// first.
func (s *SQLiteStorage) GetPendingRequests(ctx context.Context) ([]model.WhatsAppRequest, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, row_id, recipient_name, recipient_phone, target_fields, sent_at, status, replied_at, form_link, message_sid
		 FROM whatsapp_requests WHERE status = ? ORDER BY sent_at`, string(model.RequestPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.WhatsAppRequest
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func scanRequest(scan func(...any) error) (*model.WhatsAppRequest, error) {
	var req model.WhatsAppRequest
	var fields string
	var status string
	var repliedAt sql.NullTime
	var formLink, messageSID sql.NullString

	if err := scan(&req.ID, &req.RowID, &req.RecipientName, &req.RecipientPhone, &fields,
		&req.SentAt, &status, &repliedAt, &formLink, &messageSID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	if err := json.Unmarshal([]byte(fields), &req.TargetFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target fields: %w", err)
	}
	req.Status = model.RequestStatus(status)
	if repliedAt.Valid {
		t := repliedAt.Time
		req.RepliedAt = &t
	}
	req.FormLink = formLink.String
	req.MessageSID = messageSID.String
	return &req, nil
}

// MarkRequestReplied transitions a request to replied.
func (s *SQLiteStorage) MarkRequestReplied(ctx context.Context, id string, repliedAt time.Time) error {
	return s.markRequest(ctx, id, model.RequestReplied, &repliedAt)
}

// MarkRequestExpired transitions a request to expired.
func (s *SQLiteStorage) MarkRequestExpired(ctx context.Context, id string) error {
	return s.markRequest(ctx, id, model.RequestExpired, nil)
}

func (s *SQLiteStorage) markRequest(ctx context.Context, id string, status model.RequestStatus, repliedAt *time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE whatsapp_requests SET status = ?, replied_at = ? WHERE id = ?`,
		string(status), repliedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrRequestNotFound, id)
	}
	return nil
}

// DeleteRequest removes a request record, used when a send attempt is
// rolled back.
func (s *SQLiteStorage) DeleteRequest(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM whatsapp_requests WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}
