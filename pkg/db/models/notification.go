package models

import (
	"time"

	dbtypes "github.com/parkgolf/notify-backend/pkg/db/types"
	"github.com/parkgolf/notify-backend/pkg/enums"
)

// DefaultMaxRetries is applied when a notification is created without an
// explicit retry budget.
const DefaultMaxRetries = 3

// Notification is one unit of outbound communication to a single user.
// UpdatedAt doubles as the time of the most recent delivery attempt and
// feeds the retry backoff calculation.
type Notification struct {
	ID              int64                    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string                   `gorm:"type:text;not null;index" json:"userId"`
	Type            enums.NotificationType   `gorm:"type:text;not null" json:"type"`
	Title           string                   `gorm:"type:text;not null" json:"title"`
	Message         string                   `gorm:"type:text;not null" json:"message"`
	Data            dbtypes.PayloadMap       `gorm:"type:jsonb" json:"data,omitempty"`
	DeliveryChannel *enums.DeliveryChannel   `gorm:"type:text" json:"deliveryChannel,omitempty"`
	Status          enums.NotificationStatus `gorm:"type:text;not null;default:PENDING;index" json:"status"`
	RetryCount      int                      `gorm:"not null;default:0" json:"retryCount"`
	MaxRetries      int                      `gorm:"not null;default:3" json:"maxRetries"`
	ScheduledAt     *time.Time               `gorm:"type:timestamptz" json:"scheduledAt,omitempty"`
	SentAt          *time.Time               `gorm:"type:timestamptz" json:"sentAt,omitempty"`
	ReadAt          *time.Time               `gorm:"type:timestamptz" json:"readAt,omitempty"`
	ClaimedUntil    *time.Time               `gorm:"type:timestamptz" json:"-"`
	CreatedAt       time.Time                `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time                `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

// Channel resolves the delivery channel, defaulting to PUSH when unset.
func (n Notification) Channel() enums.DeliveryChannel {
	if n.DeliveryChannel == nil || *n.DeliveryChannel == "" {
		return enums.DeliveryChannelPush
	}
	return *n.DeliveryChannel
}
