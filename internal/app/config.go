package app

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPAddr string

	CORSAllow []string

	RedisAddr string // host:port; empty disables the cross-instance bus
	RedisDB   int

	SendBuffer   int           // outbound frames buffered per connection
	PingInterval time.Duration // websocket keepalive period

	RateLimitMax    int           // ws upgrades allowed per window per IP
	RateLimitWindow time.Duration
}

func LoadConfig() Config {
	cfg := Config{
		Env:       getEnv("APP_ENV", "dev"),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		RedisAddr: getEnv("REDIS_ADDR", ""),
	}
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.SendBuffer = getEnvInt("SEND_BUFFER", 256)
	cfg.PingInterval = getEnvDuration("PING_INTERVAL", 20*time.Second)
	cfg.RateLimitMax = getEnvInt("RATE_LIMIT_MAX", 60)
	cfg.RateLimitWindow = getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	// CORS allowlist
	allow := getEnv("CORS_ALLOW", "http://localhost:4200")
	cfg.CORSAllow = splitCSV(allow)
	log.Printf("config: %+v\n", cfg)
	return cfg
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getEnvInt parses an int env var with a fallback
func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		var i int
		_, _ = fmt.Sscanf(v, "%d", &i)
		if i > 0 {
			return i
		}
	}
	return def
}

// getEnvDuration parses a duration env var ("30s", "2m") with a fallback
func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
