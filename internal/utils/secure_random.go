package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateSecureDigits generates a cryptographically secure string of n decimal
// digits, leading zeros included. Used for reference suffixes and account
// number tails.
func GenerateSecureDigits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("digit count must be positive")
	}
	digits := make([]byte, n)
	ten := big.NewInt(10)
	for i := range digits {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
