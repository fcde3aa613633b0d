package utils

import "github.com/google/uuid"

// GetToken returns a random collision-resistant token.
func GetToken() string {
	return uuid.NewString()
}
