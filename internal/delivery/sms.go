package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/parkgolf/notify-backend/pkg/config"
	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

// SMSSender posts notification text to the SMS gateway. Without an API key
// or base URL it runs in simulate mode. The recipient number travels in the
// notification payload under "phone"; a payload without one is a clean no-op.
type SMSSender struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sender     string
	logg       *logger.Logger
}

// NewSMSSender builds the SMS transport from config.
func NewSMSSender(cfg config.SMSConfig, logg *logger.Logger) *SMSSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSSender{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		sender:     cfg.Sender,
		logg:       logg,
	}
}

func (s *SMSSender) Send(ctx context.Context, notification *models.Notification) error {
	recipient, _ := notification.Data["phone"].(string)
	if recipient == "" {
		return nil
	}

	if s.apiKey == "" || s.baseURL == "" {
		if s.logg != nil {
			ctx = s.logg.WithNotificationID(ctx, notification.ID)
			s.logg.Info(ctx, "simulated sms delivery")
		}
		return nil
	}

	payload := map[string]string{
		"to":      recipient,
		"from":    s.sender,
		"message": notification.Message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute sms request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
