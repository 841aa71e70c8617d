package models

import (
	"time"

	dbtypes "github.com/parkgolf/notify-backend/pkg/db/types"
	"github.com/parkgolf/notify-backend/pkg/enums"
)

// DeadLetterNotification is the quarantined snapshot of a notification that
// exhausted its retry budget. The source notification row is deleted in the
// same transaction that creates this one; the two never coexist.
type DeadLetterNotification struct {
	ID              int64                  `gorm:"primaryKey;autoIncrement" json:"id"`
	OriginalID      int64                  `gorm:"not null" json:"originalId"`
	UserID          string                 `gorm:"type:text;not null;index" json:"userId"`
	Type            enums.NotificationType `gorm:"type:text;not null" json:"type"`
	Title           string                 `gorm:"type:text;not null" json:"title"`
	Message         string                 `gorm:"type:text;not null" json:"message"`
	Data            dbtypes.PayloadMap     `gorm:"type:jsonb" json:"data,omitempty"`
	DeliveryChannel *enums.DeliveryChannel `gorm:"type:text" json:"deliveryChannel,omitempty"`
	FailureReason   string                 `gorm:"type:text;not null" json:"failureReason"`
	RetryCount      int                    `gorm:"not null;default:0" json:"retryCount"`
	MovedAt         time.Time              `gorm:"type:timestamptz;autoCreateTime;index" json:"movedAt"`
}
