package enums

// DevicePlatform identifies the platform a push token was registered from.
type DevicePlatform string

const (
	DevicePlatformIOS     DevicePlatform = "IOS"
	DevicePlatformAndroid DevicePlatform = "ANDROID"
	DevicePlatformWeb     DevicePlatform = "WEB"
)
