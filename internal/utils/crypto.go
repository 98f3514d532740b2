package utils

import (
	"crypto/rand"
)

const KeySize = 32

// GenerateRandomKey returns KeySize bytes from the system CSPRNG. It panics if
// the CSPRNG is unavailable.
func GenerateRandomKey() []byte {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return key
}
