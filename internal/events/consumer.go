package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/internal/templates"
	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	"github.com/parkgolf/notify-backend/pkg/logger"
	redispkg "github.com/parkgolf/notify-backend/pkg/redis"
)

const consumerScope = "domain-events"

// Deliverer pushes one notification out immediately after creation.
type Deliverer interface {
	Deliver(ctx context.Context, notification *models.Notification) bool
}

type idempotencyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Consumer turns booking and payment domain events into delivered
// notifications.
type Consumer struct {
	subscription *pubsub.Subscriber
	store        notifications.Service
	templates    templates.Service
	deliverer    Deliverer
	idempotency  idempotencyStore
	ttl          time.Duration
	logg         *logger.Logger
}

// ConsumerParams wire the event consumer dependencies.
type ConsumerParams struct {
	Subscription   *pubsub.Subscriber
	Store          notifications.Service
	Templates      templates.Service
	Deliverer      Deliverer
	Idempotency    idempotencyStore
	IdempotencyTTL time.Duration
	Logger         *logger.Logger
}

// NewConsumer builds the domain event consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("notification store required")
	}
	if params.Templates == nil {
		return nil, fmt.Errorf("template service required")
	}
	if params.Deliverer == nil {
		return nil, fmt.Errorf("delivery coordinator required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.IdempotencyTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Consumer{
		subscription: params.Subscription,
		store:        params.Store,
		templates:    params.Templates,
		deliverer:    params.Deliverer,
		idempotency:  params.Idempotency,
		ttl:          ttl,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.handle(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

type eventEnvelope struct {
	EventID string         `json:"eventId"`
	UserID  string         `json:"userId"`
	Data    map[string]any `json:"data"`
}

type eventText struct {
	notificationType enums.NotificationType
	title            string
	message          string
}

var handledEvents = map[string]eventText{
	"booking.confirmed": {
		notificationType: enums.NotificationTypeBookingConfirmed,
		title:            "Booking confirmed",
		message:          "Your tee time has been confirmed.",
	},
	"booking.cancelled": {
		notificationType: enums.NotificationTypeBookingCancelled,
		title:            "Booking cancelled",
		message:          "Your booking has been cancelled.",
	},
	"payment.success": {
		notificationType: enums.NotificationTypePaymentSuccess,
		title:            "Payment received",
		message:          "Your payment was processed successfully.",
	},
	"payment.failed": {
		notificationType: enums.NotificationTypePaymentFailed,
		title:            "Payment failed",
		message:          "Your payment could not be processed.",
	},
}

func (c *Consumer) handle(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	text, handled := handledEvents[eventType]
	if !handled {
		c.logg.Info(logCtx, "skipping unhandled event type")
		return processResult{ack: true}
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode event envelope", err)
		return processResult{ack: true}
	}
	if envelope.EventID == "" || envelope.UserID == "" {
		c.logg.Warn(logCtx, "event missing id or user, dropping")
		return processResult{ack: true}
	}

	key := redispkg.IdempotencyKey(consumerScope, envelope.EventID)
	fresh, err := c.idempotency.SetNX(logCtx, key, "1", c.ttl)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.notify(logCtx, envelope, text); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Del(logCtx, key)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) notify(ctx context.Context, envelope eventEnvelope, text eventText) error {
	title := text.title
	message := text.message
	rendered, err := c.templates.GenerateFromType(ctx, text.notificationType, envelope.Data)
	if err != nil {
		c.logg.Warn(ctx, "template render failed, using literal text")
	} else if rendered != nil {
		title = rendered.Title
		message = rendered.Message
	}

	created, err := c.store.Create(ctx, notifications.CreateParams{
		UserID:  envelope.UserID,
		Type:    text.notificationType,
		Title:   title,
		Message: message,
		Data:    envelope.Data,
	})
	if err != nil {
		return err
	}

	c.deliverer.Deliver(ctx, created)
	return nil
}
