package config

import (
	"crypto/rand"
	"fmt"
)

func randomSecret(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("config: read random bytes: %w", err)
	}
	return buf, nil
}
