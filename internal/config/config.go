package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	// EncryptionKey is 64 hex characters (32 bytes) used for AES-256-GCM
	// sealing of provider credentials.
	EncryptionKey   string `env:"ENCRYPTION_KEY,required"`
	WebhookSecret   string `env:"WEBHOOK_SECRET"`
	ManagementToken string `env:"MANAGEMENT_TOKEN"`

	// SIPInboundHostname is the SIP host providers point their trunks at,
	// e.g. "sip.example.com".
	SIPInboundHostname string `env:"SIP_INBOUND_HOSTNAME,required"`

	PlatformURL    string `env:"PLATFORM_URL,required"`
	PlatformAPIKey string `env:"PLATFORM_API_KEY"`

	AgentServiceURL    string `env:"AGENT_SERVICE_URL"`
	AgentServiceAPIKey string `env:"AGENT_SERVICE_API_KEY"`

	DefaultAgentID       string `env:"DEFAULT_AGENT_ID" envDefault:"default"`
	DefaultAgentName     string `env:"DEFAULT_AGENT_NAME" envDefault:"Receptionist"`
	DefaultAgentGreeting string `env:"DEFAULT_AGENT_GREETING" envDefault:"Hello, how can I help you today?"`

	TelephonyEnabled bool `env:"TELEPHONY_ENABLED" envDefault:"true"`

	CallTTLSeconds      int `env:"CALL_TTL_SECONDS" envDefault:"14400"`
	EventSeenTTLSeconds int `env:"EVENT_SEEN_TTL_SECONDS" envDefault:"86400"`
	RetentionDays       int `env:"RETENTION_DAYS" envDefault:"30"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) CallTTL() time.Duration {
	return time.Duration(c.CallTTLSeconds) * time.Second
}

func (c *Config) EventSeenTTL() time.Duration {
	return time.Duration(c.EventSeenTTLSeconds) * time.Second
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY must be hex-encoded (generate with: openssl rand -hex 32)")
	}
	if len(key) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}

	if isProduction {
		if err := validateSecret("MANAGEMENT_TOKEN", c.ManagementToken); err != nil {
			return err
		}

		if c.WebhookSecret == "" {
			log.Warn().Msg("WEBHOOK_SECRET is empty in production: webhook signature verification disabled")
		}
		if c.PlatformAPIKey == "" {
			return fmt.Errorf("PLATFORM_API_KEY is required in production")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
