package delivery

import (
	"context"
	"time"

	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/internal/preferences"
	"github.com/parkgolf/notify-backend/internal/push"
	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

const (
	defaultDeliveryTimeout = 30 * time.Second
	outcomeWriteTimeout    = 5 * time.Second
)

type pushSender interface {
	Send(ctx context.Context, notification *models.Notification) (push.Result, error)
}

type channelSender interface {
	Send(ctx context.Context, notification *models.Notification) error
}

// Coordinator routes one notification to its channel sender and records the
// outcome. Deliver never returns an error: sender failures become a FAILED
// status and feed the retry loop.
type Coordinator struct {
	store   notifications.Service
	prefs   preferences.Service
	push    pushSender
	email   channelSender
	sms     channelSender
	logg    *logger.Logger
	timeout time.Duration
}

// CoordinatorParams wires delivery dependencies.
type CoordinatorParams struct {
	Store   notifications.Service
	Prefs   preferences.Service
	Push    pushSender
	Email   channelSender
	SMS     channelSender
	Logger  *logger.Logger
	Timeout time.Duration
}

// NewCoordinator wires delivery dependencies.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification store required")
	}
	if params.Prefs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preference store required")
	}
	if params.Push == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push sender required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &Coordinator{
		store:   params.Store,
		prefs:   params.Prefs,
		push:    params.Push,
		email:   params.Email,
		sms:     params.SMS,
		logg:    params.Logger,
		timeout: timeout,
	}, nil
}

// Deliver attempts one delivery and reports whether it succeeded. A channel
// the user has opted out of is marked SENT without contacting the sender.
func (c *Coordinator) Deliver(ctx context.Context, notification *models.Notification) bool {
	ctx = c.logg.WithNotificationID(ctx, notification.ID)
	ctx = c.logg.WithUserID(ctx, notification.UserID)

	sendCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	channel := notification.Channel()

	allowed, err := c.prefs.Allows(sendCtx, notification.UserID, notification.Type, channel)
	if err != nil {
		// An unreachable preference store must not block delivery.
		c.logg.Warn(ctx, "preference lookup failed, delivering anyway")
		allowed = true
	}
	if !allowed {
		if err := c.markSent(ctx, notification.ID); err != nil {
			c.logg.Error(ctx, "marking opted-out notification sent", err)
			return false
		}
		c.logg.Info(ctx, "channel disabled by user preference, skipped send")
		return true
	}

	ok := c.send(sendCtx, notification, channel)
	if ok {
		if err := c.markSent(ctx, notification.ID); err != nil {
			c.logg.Error(ctx, "marking notification sent", err)
			return false
		}
		return true
	}

	if err := c.markFailed(ctx, notification.ID); err != nil {
		c.logg.Error(ctx, "marking notification failed", err)
	}
	return false
}

// markSent records the outcome under its own short deadline. A sender that
// exhausts the send budget must still get its attempt written, otherwise the
// row sits unrecorded until the claim lease lapses.
func (c *Coordinator) markSent(ctx context.Context, id int64) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer cancel()
	return c.store.MarkSent(writeCtx, id)
}

func (c *Coordinator) markFailed(ctx context.Context, id int64) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer cancel()
	return c.store.MarkFailed(writeCtx, id)
}

func (c *Coordinator) send(ctx context.Context, notification *models.Notification, channel enums.DeliveryChannel) bool {
	switch channel {
	case enums.DeliveryChannelPush:
		result, err := c.push.Send(ctx, notification)
		if err != nil {
			c.logg.Error(ctx, "push delivery failed", err)
			return false
		}
		return result.Succeeded()
	case enums.DeliveryChannelEmail:
		if c.email == nil {
			c.logg.Warn(ctx, "email transport not configured")
			return false
		}
		if err := c.email.Send(ctx, notification); err != nil {
			c.logg.Error(ctx, "email delivery failed", err)
			return false
		}
		return true
	case enums.DeliveryChannelSMS:
		if c.sms == nil {
			c.logg.Warn(ctx, "sms transport not configured")
			return false
		}
		if err := c.sms.Send(ctx, notification); err != nil {
			c.logg.Error(ctx, "sms delivery failed", err)
			return false
		}
		return true
	default:
		c.logg.Warn(ctx, "unknown delivery channel")
		return false
	}
}
