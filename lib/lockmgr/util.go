package lockmgr

import (
	"crypto/rand"
)

const (
	ownerIDBytes = 32
)

// generateOwnerID creates a new unique owner ID.
// The owner ID is a random byte slice of 256 bits.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, ownerIDBytes)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}
