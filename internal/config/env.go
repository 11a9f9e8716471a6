package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Env struct {
	AppAddr   string
	GinMode   string
	DBUser    string
	DBPass    string
	DBHost    string
	DBName    string
	JWTSecret string
	// SaveDelay is the quiescence window before a session snapshot is
	// persisted to the reservation store.
	SaveDelay   time.Duration
	CORSOrigins []string
}

func LoadEnv() Env {
	env := Env{
		AppAddr:   getenv("APP_ADDR", ":8080"),
		GinMode:   strings.TrimSpace(os.Getenv("GIN_MODE")),
		DBUser:    getenv("DB_USER", "root"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    getenv("DB_HOST", "127.0.0.1:3306"),
		DBName:    getenv("DB_NAME", "paydesk_app"),
		JWTSecret: getenv("JWT_SECRET", "dev-secret-change-me"),
		SaveDelay: 1500 * time.Millisecond,
	}

	if ms := strings.TrimSpace(os.Getenv("SAVE_DELAY_MS")); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n >= 0 {
			env.SaveDelay = time.Duration(n) * time.Millisecond
		}
	}

	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				env.CORSOrigins = append(env.CORSOrigins, o)
			}
		}
	} else {
		env.CORSOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}
	}

	return env
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
