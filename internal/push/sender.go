package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/parkgolf/notify-backend/internal/devices"
	"github.com/parkgolf/notify-backend/pkg/config"
	"github.com/parkgolf/notify-backend/pkg/db/models"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

// FCM caps multicast batches at 500 tokens.
const multicastBatchSize = 500

const defaultSendTimeout = 10 * time.Second

// Result aggregates per-token outcomes of one push fan-out.
type Result struct {
	SuccessCount int
	FailureCount int
	FailedTokens []string
}

// Succeeded applies the delivery success rule: at least one token accepted,
// or nothing to deliver at all.
func (r Result) Succeeded() bool {
	if r.SuccessCount > 0 {
		return true
	}
	return r.SuccessCount == 0 && r.FailureCount == 0
}

type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Sender fans a notification out to every registered device of a user.
// Without configured credentials it runs in simulate mode, reporting full
// success without contacting the provider.
type Sender struct {
	client   multicaster
	registry devices.Registry
	logg     *logger.Logger
	timeout  time.Duration
}

// SenderParams wires push sender dependencies.
type SenderParams struct {
	Firebase config.FirebaseConfig
	Registry devices.Registry
	Logger   *logger.Logger
	Timeout  time.Duration
}

// NewSender resolves provider credentials and builds the push sender.
func NewSender(ctx context.Context, params SenderParams) (*Sender, error) {
	if params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "device registry required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	sender := &Sender{
		registry: params.Registry,
		logg:     params.Logger,
		timeout:  timeout,
	}

	creds, err := resolveCredentials(params.Firebase)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve push credentials")
	}
	if creds == nil {
		params.Logger.Warn(ctx, "no push credentials configured, running in simulate mode")
		return sender, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: creds.projectID}, creds.options...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize messaging client")
	}

	sender.client = client
	return sender, nil
}

// Simulated reports whether the sender runs without a real provider client.
func (s *Sender) Simulated() bool {
	return s.client == nil
}

// Send delivers the notification to every device token registered for its
// user. A user without tokens counts as a clean no-op.
func (s *Sender) Send(ctx context.Context, notification *models.Notification) (Result, error) {
	tokens := s.registry.Tokens(ctx, notification.UserID)
	if len(tokens) == 0 {
		return Result{}, nil
	}

	if s.client == nil {
		ctx = s.logg.WithNotificationID(ctx, notification.ID)
		s.logg.Info(ctx, fmt.Sprintf("simulated push to %d devices", len(tokens)))
		return Result{SuccessCount: len(tokens)}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result Result
	for start := 0; start < len(tokens); start += multicastBatchSize {
		end := start + multicastBatchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, s.buildMessage(notification, batch))
		if err != nil {
			result.FailureCount += len(batch)
			result.FailedTokens = append(result.FailedTokens, batch...)
			continue
		}

		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
		for i, tokenResp := range resp.Responses {
			if !tokenResp.Success {
				result.FailedTokens = append(result.FailedTokens, batch[i])
			}
		}
	}

	return result, nil
}

func (s *Sender) buildMessage(notification *models.Notification, tokens []string) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Message,
		},
		Data: notification.Data.Strings(),
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
					Badge: intPtr(1),
				},
			},
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
	}
}

func intPtr(v int) *int { return &v }
