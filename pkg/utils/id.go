package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateNoteID generates a unique note ID
func GenerateNoteID() string {
	return GenerateID("note")
}

// GenerateCategoryID generates a unique category ID
func GenerateCategoryID() string {
	return GenerateID("cat")
}

// GenerateUserID generates a unique user ID
func GenerateUserID() string {
	return GenerateID("user")
}

// GenerateInstanceID generates a unique gateway instance ID
func GenerateInstanceID() string {
	return GenerateID("gw")
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	timestamp := time.Now().UnixNano()
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", timestamp, hex.EncodeToString(b))
}
