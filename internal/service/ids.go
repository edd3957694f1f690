package service

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
)

// errorIDBytes yields a 24-character hex error id.
const errorIDBytes = 12

// NewErrorID returns a fresh error id from the system CSPRNG.
func NewErrorID() (string, error) {
	b := make([]byte, errorIDBytes)
	if _, err := crand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate error id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
