package models

import (
	"time"

	dbtypes "github.com/parkgolf/notify-backend/pkg/db/types"
	"github.com/parkgolf/notify-backend/pkg/enums"
)

// NotificationTemplate stores the {{var}} substitution source for generating
// notification text from structured event data. At most one active template
// per type is consulted; the most recently updated active row wins.
type NotificationTemplate struct {
	ID        int64                  `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      enums.NotificationType `gorm:"type:text;not null;index" json:"type"`
	Title     string                 `gorm:"type:text;not null" json:"title"`
	Content   string                 `gorm:"type:text;not null" json:"content"`
	Variables dbtypes.PayloadMap     `gorm:"type:jsonb" json:"variables,omitempty"`
	IsActive  bool                   `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time              `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time              `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}
