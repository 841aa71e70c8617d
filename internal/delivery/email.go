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

// EmailSender posts notification text to the transactional mail provider.
// Without an API key it runs in simulate mode. The recipient address travels
// in the notification payload under "email"; a payload without one is a
// clean no-op.
type EmailSender struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
	logg       *logger.Logger
}

// NewEmailSender builds the email transport from config.
func NewEmailSender(cfg config.EmailConfig, logg *logger.Logger) *EmailSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmailSender{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		logg:       logg,
	}
}

func (s *EmailSender) Send(ctx context.Context, notification *models.Notification) error {
	recipient, _ := notification.Data["email"].(string)
	if recipient == "" {
		return nil
	}

	if s.apiKey == "" {
		if s.logg != nil {
			ctx = s.logg.WithNotificationID(ctx, notification.ID)
			s.logg.Info(ctx, "simulated email delivery")
		}
		return nil
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": recipient}}},
		},
		"from":    map[string]string{"email": s.fromEmail},
		"subject": notification.Title,
		"content": []map[string]string{
			{"type": "text/plain", "value": notification.Message},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute email request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}
