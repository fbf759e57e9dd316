package session

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names honored by FromEnv.
const (
	EnvTTL        = "AUTHGATE_SESSION_TTL"
	EnvTokenBytes = "AUTHGATE_SESSION_TOKEN_BYTES"
)

const (
	defaultTTL        = 24 * time.Hour
	defaultTokenBytes = 32

	minTokenBytes = 32
	maxTokenBytes = 64
)

// Config controls session issuance.
type Config struct {
	// TTL is the lifetime of a newly started session.
	TTL time.Duration

	// TokenBytes is the entropy of each opaque token before encoding.
	TokenBytes int
}

// DefaultConfig returns the baked-in session settings: 24h lifetime,
// 32 bytes of token entropy.
func DefaultConfig() Config {
	return Config{TTL: defaultTTL, TokenBytes: defaultTokenBytes}
}

// FromEnv builds a Config from environment variables, falling back to
// DefaultConfig for anything unset.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: %s=%q must be a positive duration", ErrConfig, EnvTTL, v)
		}
		cfg.TTL = d
	}

	if v := os.Getenv(EnvTokenBytes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minTokenBytes || n > maxTokenBytes {
			return Config{}, fmt.Errorf("%w: %s=%q must be an integer in [%d,%d]",
				ErrConfig, EnvTokenBytes, v, minTokenBytes, maxTokenBytes)
		}
		cfg.TokenBytes = n
	}

	return cfg, nil
}
