package util

// gin context keys
const (
	ContextUserKey   = "user"
	ContextConfigKey = "config"
)
