package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrGatewayNotConfigured is returned when no mail gateway URL is set.
var ErrGatewayNotConfigured = errors.New("mail gateway not configured")

type sendMailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type sendMailResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// EmailSender posts emails to an HTTP mail gateway.
type EmailSender struct {
	httpClient *resty.Client
	from       string
	configured bool
	logger     *zap.Logger
}

// NewEmailSender creates the sender. An empty baseURL makes every Send fail with ErrGatewayNotConfigured.
func NewEmailSender(baseURL, token, from string, timeout time.Duration, logger *zap.Logger) *EmailSender {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &EmailSender{
		httpClient: client,
		from:       from,
		configured: baseURL != "",
		logger:     logger,
	}
}

// Send implements the email channel.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if !s.configured {
		return ErrGatewayNotConfigured
	}
	if msg.Recipient.Email == "" {
		return fmt.Errorf("clinician %s has no email address", msg.Recipient.ID)
	}

	request := sendMailRequest{
		From:    s.from,
		To:      []string{msg.Recipient.Email},
		Subject: Subject(msg.Alert),
		Text:    Body(msg),
	}

	var response sendMailResponse
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post("/v1/messages")
	if err != nil {
		return fmt.Errorf("failed to call mail gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail gateway returned %d: %s", resp.StatusCode(), resp.String())
	}

	s.logger.Debug("Email accepted by gateway",
		zap.String("alert_id", msg.Alert.ID),
		zap.String("recipient_id", msg.Recipient.ID),
		zap.String("gateway_id", response.ID),
	)
	return nil
}
