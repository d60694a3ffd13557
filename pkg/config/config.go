package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// Hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often a pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// PublicAppURL is the client-facing site used to build links in emails.
	// Example: https://reparaciones.leselec.com.ar
	PublicAppURL string

	// AllowedOrigins is the CORS allowlist for the public client endpoints.
	AllowedOrigins []string

	BusinessName string
	Locale       string

	Auth     AuthConfig
	SMTP     SMTPConfig
	WhatsApp WhatsAppConfig
	Payments PaymentsConfig
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string

	// MaxConns caps the pool; zero keeps the pgxpool default.
	MaxConns int
	// LockTimeout bounds how long a transition waits on a row lock.
	LockTimeout time.Duration
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
	ResetTTL  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	ReplyTo  string
}

type WhatsAppConfig struct {
	Token      string
	PhoneID    string
	APIVersion string
}

type PaymentsConfig struct {
	Mock                   bool
	MercadoPagoAccessToken string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	_ = godotenv.Load()

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "repairshop"),
			User:     env("DB_USER", "repairshop"),
			Password: env("DB_PASSWORD", "repairshop"),
			SSLMode:  env("DB_SSLMODE", "disable"),

			MaxConns:    envInt("DB_MAX_CONNS", 0),
			LockTimeout: envDuration("DB_LOCK_TIMEOUT", 5*time.Second),
		},
		PublicAppURL:   strings.TrimSuffix(env("PUBLIC_APP_URL", "http://localhost:3000"), "/"),
		AllowedOrigins: envList("ALLOWED_ORIGINS", "http://localhost:3000"),
		BusinessName:   env("BUSINESS_NAME", "LESELEC"),
		Locale:         env("LOCALE", "es-AR"),
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
			Issuer:    env("AUTH_ISSUER", "repairshop"),
			TokenTTL:  envDuration("AUTH_TOKEN_TTL", 12*time.Hour),
			ResetTTL:  envDuration("AUTH_RESET_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			User:     os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
			From:     env("EMAIL_FROM", os.Getenv("EMAIL_USER")),
			ReplyTo:  os.Getenv("EMAIL_REPLY_TO"),
		},
		WhatsApp: WhatsAppConfig{
			Token:      os.Getenv("WHATSAPP_TOKEN"),
			PhoneID:    os.Getenv("WHATSAPP_PHONE_ID"),
			APIVersion: env("WHATSAPP_API_VERSION", "v17.0"),
		},
		Payments: PaymentsConfig{
			Mock:                   envBool("PAYMENT_GATEWAY_MOCK", true),
			MercadoPagoAccessToken: os.Getenv("MERCADOPAGO_ACCESS_TOKEN"),
		},
	}
}

// IsProd reports whether upstream error details must be hidden from responses.
func (c Config) IsProd() bool {
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	}
	return false
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on", "mock":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
