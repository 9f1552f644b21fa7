package utils

import "time"

// Now returns current time (useful for mocking in tests)
var Now = time.Now

// IsExpired checks if a timestamp is expired
func IsExpired(timestamp time.Time, ttl time.Duration) bool {
	return Now().Sub(timestamp) > ttl
}

// FormatTimestamp formats timestamp in ISO 8601 format
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
