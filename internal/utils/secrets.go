package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret returns bytes of crypto-random data, hex encoded
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateSigningSecrets returns independent 256-bit secrets for admin tokens
// (JWT_SECRET) and payment verification tokens (PAYMENT_WEBHOOK_SECRET)
func GenerateSigningSecrets() (adminSecret, paymentSecret string, err error) {
	adminSecret, err = GenerateSecret(32)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate admin secret: %w", err)
	}

	paymentSecret, err = GenerateSecret(32)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate payment secret: %w", err)
	}

	return adminSecret, paymentSecret, nil
}
