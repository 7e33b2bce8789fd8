package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/whiskypay/gateway/internal/domain"
	"github.com/whiskypay/gateway/internal/repositories/merchantrepo"
	"github.com/whiskypay/gateway/pkg/signing"
)

const SignatureHeader = "X-Whiskypay-Signature"

// WebhookSender POSTs signed completion events to the merchant's endpoint.
// The merchant secret is looked up at send time; it never rides in the job
// payload.
type WebhookSender struct {
	merchantRepo merchantrepo.IMerchantRepository
	httpClient   *http.Client
	logger       zerolog.Logger
}

func NewWebhookSender(merchantRepo merchantrepo.IMerchantRepository, timeout time.Duration, logger zerolog.Logger) *WebhookSender {
	return &WebhookSender{
		merchantRepo: merchantRepo,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

func (s *WebhookSender) Deliver(ctx context.Context, job domain.NotificationJob) error {
	var payload domain.WebhookJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal webhook payload: %w", err)
	}

	merchant, err := s.merchantRepo.GetByID(ctx, payload.MerchantID)
	if err != nil {
		return fmt.Errorf("failed to resolve merchant for webhook: %w", err)
	}
	if merchant.WebhookURL == "" {
		s.logger.Warn().
			Str("merchant_id", merchant.ID).
			Str("session_id", payload.Event.SessionID).
			Msg("Merchant has no webhook URL configured, skipping delivery")
		return nil
	}

	body, err := signing.Canonicalize(payload.Event)
	if err != nil {
		return err
	}
	signature := signing.SignBytes(body, merchant.WebhookSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, merchant.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Anything outside 2xx is a failed delivery for retry purposes.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	s.logger.Info().
		Str("session_id", payload.Event.SessionID).
		Str("merchant_id", merchant.ID).
		Int("status_code", resp.StatusCode).
		Msg("Webhook delivered")
	return nil
}
