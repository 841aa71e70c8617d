package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationTypeBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationTypePaymentSuccess   NotificationType = "PAYMENT_SUCCESS"
	NotificationTypePaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotificationTypeFriendRequest    NotificationType = "FRIEND_REQUEST"
	NotificationTypeFriendAccepted   NotificationType = "FRIEND_ACCEPTED"
	NotificationTypeChatMessage      NotificationType = "CHAT_MESSAGE"
	NotificationTypeSystem           NotificationType = "SYSTEM"
	NotificationTypeMarketing        NotificationType = "MARKETING"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeBookingConfirmed,
	NotificationTypeBookingCancelled,
	NotificationTypePaymentSuccess,
	NotificationTypePaymentFailed,
	NotificationTypeFriendRequest,
	NotificationTypeFriendAccepted,
	NotificationTypeChatMessage,
	NotificationTypeSystem,
	NotificationTypeMarketing,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
