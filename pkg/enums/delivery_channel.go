package enums

import "fmt"

// DeliveryChannel identifies the medium a notification is sent through.
type DeliveryChannel string

const (
	DeliveryChannelPush  DeliveryChannel = "PUSH"
	DeliveryChannelEmail DeliveryChannel = "EMAIL"
	DeliveryChannelSMS   DeliveryChannel = "SMS"
)

var validDeliveryChannels = []DeliveryChannel{
	DeliveryChannelPush,
	DeliveryChannelEmail,
	DeliveryChannelSMS,
}

// IsValid checks whether the given channel matches the canonical enum.
func (c DeliveryChannel) IsValid() bool {
	for _, candidate := range validDeliveryChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseDeliveryChannel converts raw strings into DeliveryChannel.
func ParseDeliveryChannel(value string) (DeliveryChannel, error) {
	for _, candidate := range validDeliveryChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery channel %q", value)
}
