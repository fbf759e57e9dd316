package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and transport defaults.
type Config struct {
	MaxBodyBytes int64

	// CookieEnabled makes login set the session token as an HttpOnly
	// cookie and blank it from the JSON body. Bearer headers keep
	// working either way.
	CookieEnabled  bool
	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// LoadConfigFromEnv loads auth API config from environment variables
// with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:   envInt64("AUTHGATE_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		CookieEnabled:  envBool("AUTHGATE_AUTH_COOKIE_ENABLED", true),
		CookieName:     envString("AUTHGATE_AUTH_COOKIE_NAME", "authgate_session"),
		CookiePath:     envString("AUTHGATE_AUTH_COOKIE_PATH", "/"),
		CookieDomain:   envString("AUTHGATE_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:   envBool("AUTHGATE_AUTH_COOKIE_SECURE", false),
		CookieSameSite: envSameSite("AUTHGATE_AUTH_COOKIE_SAMESITE", http.SameSiteLaxMode),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = "authgate_session"
	}
	if strings.TrimSpace(cfg.CookiePath) == "" {
		cfg.CookiePath = "/"
	}

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
