// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/model"
	"github.com/Venkatavamsikrishna/Youtube-Auto-Reply/internal/secret"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config describes the service configuration.
type Config struct {
	DevMode     bool   `envconfig:"DEV_MODE" default:"false"`
	Port        int    `envconfig:"PORT" default:"8080"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	QuotaTZ     string `envconfig:"QUOTA_TZ" default:"Local"`

	Google struct {
		ClientID    string `envconfig:"GOOGLE_CLIENT_ID"`
		RedirectURL string `envconfig:"GOOGLE_REDIRECT_URL"`
	} `envconfig:""`

	Params struct {
		GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET_PARAM"`
		YouTubeAPIKey      string `envconfig:"YOUTUBE_API_KEY_PARAM"`
		GeminiAPIKey       string `envconfig:"GEMINI_API_KEY_PARAM"`
		JWTSecret          string `envconfig:"JWT_SECRET_PARAM"`
	} `envconfig:""`

	Gemini struct {
		Model         string        `envconfig:"GEMINI_MODEL" default:"gemini-pro"`
		BaseURL       string        `envconfig:"GEMINI_BASE_URL"`
		RPS           float64       `envconfig:"GEMINI_RPS" default:"1"`
		Burst         int           `envconfig:"GEMINI_BURST" default:"2"`
		Timeout       time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
		StripMarkdown bool          `envconfig:"GEMINI_STRIP_MARKDOWN" default:"true"`
	} `envconfig:""`

	Store struct {
		Backend     string `envconfig:"STORE_BACKEND" default:"memory"`
		DynamoTable string `envconfig:"STORE_TABLE" default:"YouTubeAutoReply"`
		RedisAddr   string `envconfig:"REDIS_ADDR"`
		PGDSN       string `envconfig:"PG_DSN"`
	} `envconfig:""`

	LeaseTable string `envconfig:"LEASE_TABLE"`
	KMSKeyID   string `envconfig:"KMS_KEY_ID" default:"alias/ytautoreply-token-key"`

	AutoReply struct {
		Concurrency int64         `envconfig:"AUTOREPLY_CONCURRENCY" default:"4"`
		LeaseTTL    time.Duration `envconfig:"AUTOREPLY_LEASE_TTL" default:"2m"`
		Wait        bool          `envconfig:"AUTOREPLY_WAIT" default:"false"`
	} `envconfig:""`

	// Resolved through secret.Resolver, never read from plain env tags.
	GoogleClientSecret string `ignored:"true"`
	YouTubeAPIKey      string `ignored:"true"`
	GeminiAPIKey       string `ignored:"true"`
	JWTSecret          string `ignored:"true"`
}

// Load reads the configuration from the environment and fills in derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Google.RedirectURL == "" {
		if c.DevMode {
			c.Google.RedirectURL = fmt.Sprintf("http://localhost:%d/auth/callback", c.Port)
		} else {
			c.Google.RedirectURL = strings.TrimRight(c.FrontendURL, "/") + "/api/auth/callback"
		}
	}
	if c.Params.GoogleClientSecret == "" {
		c.Params.GoogleClientSecret = secret.ParamGoogleClientSecret
	}
	if c.Params.YouTubeAPIKey == "" {
		c.Params.YouTubeAPIKey = secret.ParamYouTubeAPIKey
	}
	if c.Params.GeminiAPIKey == "" {
		c.Params.GeminiAPIKey = secret.ParamGeminiAPIKey
	}
	if c.Params.JWTSecret == "" {
		c.Params.JWTSecret = secret.ParamJWTSecret
	}
}

// SecretSpecs lists the secrets to resolve into c. The Gemini key is optional:
// without it only reply generation is unavailable.
func (c *Config) SecretSpecs() []secret.Spec {
	return []secret.Spec{
		{Param: c.Params.GoogleClientSecret, Dest: &c.GoogleClientSecret, Required: true},
		{Param: c.Params.YouTubeAPIKey, Dest: &c.YouTubeAPIKey, Required: true},
		{Param: c.Params.GeminiAPIKey, Dest: &c.GeminiAPIKey},
		{Param: c.Params.JWTSecret, Dest: &c.JWTSecret, Required: true},
	}
}

// Validate reports every missing or inconsistent setting as one ErrConfiguration.
func (c *Config) Validate() error {
	var problems []string
	if c.Google.ClientID == "" {
		problems = append(problems, "GOOGLE_CLIENT_ID is required")
	}
	if c.GoogleClientSecret == "" {
		problems = append(problems, "google client secret is required")
	}
	if c.YouTubeAPIKey == "" {
		problems = append(problems, "youtube api key is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "jwt secret is required")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.Store.DynamoTable == "" {
			problems = append(problems, "STORE_TABLE is required for the dynamodb backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.Store.PGDSN == "" {
			problems = append(problems, "PG_DSN is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	if c.AutoReply.Concurrency < 1 {
		problems = append(problems, "AUTOREPLY_CONCURRENCY must be at least 1")
	}
	if c.Gemini.RPS < 0 {
		problems = append(problems, "GEMINI_RPS must not be negative")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", model.ErrConfiguration, strings.Join(problems, "; "))
}

// IsConfiguration reports whether err came from Validate.
func IsConfiguration(err error) bool {
	return errors.Is(err, model.ErrConfiguration)
}
