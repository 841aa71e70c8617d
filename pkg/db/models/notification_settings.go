package models

import "time"

// NotificationSettings holds per-user channel opt-in flags. A row is created
// lazily with defaults the first time a user's settings are read.
type NotificationSettings struct {
	UserID    string    `gorm:"primaryKey;type:text" json:"userId"`
	Email     bool      `gorm:"not null;default:true" json:"email"`
	SMS       bool      `gorm:"column:sms;not null;default:false" json:"sms"`
	Push      bool      `gorm:"not null;default:true" json:"push"`
	Marketing bool      `gorm:"not null;default:false" json:"marketing"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updatedAt"`
}

// DefaultNotificationSettings returns the opt-in flags applied on first read.
func DefaultNotificationSettings(userID string) NotificationSettings {
	return NotificationSettings{
		UserID:    userID,
		Email:     true,
		SMS:       false,
		Push:      true,
		Marketing: false,
	}
}
