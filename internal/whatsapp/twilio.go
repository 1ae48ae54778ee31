package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rytflow/rytflow/internal/common"
)

const defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioConfig holds the credentials for the Twilio Messages API.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string // sender, e.g. "whatsapp:+14155238886"
	BaseURL        string // overridable for tests
}

// Configured reports whether the config carries usable credentials.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && strings.HasPrefix(c.AccountSID, "AC")
}

// TwilioSender sends WhatsApp messages through the Twilio REST API.
type TwilioSender struct {
	client *http.Client
	config TwilioConfig
}

// NewTwilioSender creates a sender from validated config.
func NewTwilioSender(config TwilioConfig) (*TwilioSender, error) {
	if config.AccountSID == "" || config.AuthToken == "" {
		return nil, fmt.Errorf("%w: twilio account SID and auth token are required", common.ErrMissingConfig)
	}
	if !strings.HasPrefix(config.AccountSID, "AC") {
		return nil, fmt.Errorf("%w: twilio account SID must start with AC", common.ErrInvalidConfig)
	}
	if config.WhatsAppNumber == "" {
		config.WhatsAppNumber = "whatsapp:+14155238886"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultTwilioBaseURL
	}

	return &TwilioSender{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type twilioMessageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Send posts one message to the Twilio Messages endpoint. Transport and API
// failures come back as retryable errors with an operator-friendly message
// where Twilio's own wording is unhelpful.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	if !strings.HasPrefix(to, "whatsapp:") {
		to = "whatsapp:" + to
	}

	form := url.Values{}
	form.Set("From", s.config.WhatsAppNumber)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.config.BaseURL, s.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrSendFailed, err),
			Retryable: true,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read twilio response: %w", err)
	}

	var message twilioMessageResponse
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("failed to decode twilio response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, common.ErrRateLimit
	}
	if resp.StatusCode >= 400 {
		return nil, twilioError(resp.StatusCode, message)
	}

	return &SendResult{Success: true, MessageSID: message.SID}, nil
}

// twilioError translates common Twilio failures into messages an operator
// can act on.
func twilioError(status int, message twilioMessageResponse) error {
	base := fmt.Errorf("%w: twilio returned %d: %s", common.ErrSendFailed, status, message.Message)

	lower := strings.ToLower(message.Message)
	switch {
	case strings.Contains(lower, "not a valid phone number"):
		return common.NewUserError("Invalid phone number format. Must be E.164 format (e.g. +60123456789)", base)
	case strings.Contains(lower, "not registered"), strings.Contains(lower, "sandbox"):
		return common.NewUserError("Recipient must first join the Twilio sandbox before messages can be delivered", base)
	case status == http.StatusUnauthorized:
		return common.NewUserError("Twilio authentication failed. Check the account SID and auth token", base)
	default:
		return &common.RetryableError{Err: base, Retryable: status >= 500}
	}
}
