package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// Instance-token signing secret. Process-wide, loaded once; rotation is
	// handled by restart.
	TokenSecret string
	// Author-auth JWT secret.
	AuthSecret string

	// Code namespace: indices are drawn from [0, MaxCodeIndex).
	MaxCodeIndex int32
	// How long a freshly minted code stays active.
	CodeValidity time.Duration
	// How long an issued instance token stays redeemable.
	InstanceTTL time.Duration
	// Reject play summaries larger than this many bytes.
	MaxSummaryBytes int64
	// How often the reaper sweeps for codes past their expires_at.
	ReaperCadence time.Duration

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:        addr,
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           envOr("DB_DSN", ""),
		TokenSecret:     envOr("TOKEN_HMAC_SECRET", "playcode-dev-token-key"),
		AuthSecret:      envOr("AUTH_HMAC_SECRET", "playcode-dev-auth-key"),
		MaxCodeIndex:    int32(envInt("MAX_CODE_INDEX", 1_000_000)),
		CodeValidity:    envDur("CODE_VALIDITY", 4*7*24*time.Hour),
		InstanceTTL:     envDur("INSTANCE_TTL", 8*time.Hour),
		MaxSummaryBytes: int64(envInt("MAX_SUMMARY_BYTES", 64<<10)),
		ReaperCadence:   envDur("REAPER_CADENCE", 5*time.Minute),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", ""),
		CORSOrigins:     csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDur(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
