package common

import "github.com/google/uuid"

// GenerateUUID generates a new UUID string
func GenerateUUID() string {
	return uuid.New().String()
}
