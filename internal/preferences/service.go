package preferences

import (
	"context"

	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
)

// Service defines per-user channel opt-in operations.
type Service interface {
	Get(ctx context.Context, userID string) (*models.NotificationSettings, error)
	Update(ctx context.Context, userID string, params UpdateParams) (*models.NotificationSettings, error)
	Allows(ctx context.Context, userID string, notificationType enums.NotificationType, channel enums.DeliveryChannel) (bool, error)
}

type service struct {
	repo Repository
}

// UpdateParams carries the flags to change. Nil fields keep their current
// value.
type UpdateParams struct {
	Email     *bool `json:"email"`
	SMS       *bool `json:"sms"`
	Push      *bool `json:"push"`
	Marketing *bool `json:"marketing"`
}

// NewService wires notification settings dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preferences repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the user's settings, creating the default row on first read.
func (s *service) Get(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	settings, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get notification settings")
	}
	if settings != nil {
		return settings, nil
	}

	defaults := models.DefaultNotificationSettings(userID)
	if err := s.repo.Upsert(ctx, &defaults); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create default notification settings")
	}
	return &defaults, nil
}

func (s *service) Update(ctx context.Context, userID string, params UpdateParams) (*models.NotificationSettings, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if params.Email != nil {
		current.Email = *params.Email
	}
	if params.SMS != nil {
		current.SMS = *params.SMS
	}
	if params.Push != nil {
		current.Push = *params.Push
	}
	if params.Marketing != nil {
		current.Marketing = *params.Marketing
	}

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update notification settings")
	}
	return current, nil
}

// Allows reports whether a notification may go out on the given channel.
// Marketing content additionally requires the marketing opt-in.
func (s *service) Allows(ctx context.Context, userID string, notificationType enums.NotificationType, channel enums.DeliveryChannel) (bool, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	if notificationType == enums.NotificationTypeMarketing && !settings.Marketing {
		return false, nil
	}

	switch channel {
	case enums.DeliveryChannelPush:
		return settings.Push, nil
	case enums.DeliveryChannelEmail:
		return settings.Email, nil
	case enums.DeliveryChannelSMS:
		return settings.SMS, nil
	default:
		return false, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery channel")
	}
}
