// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultParamsURL is the media host endpoint that issues signed upload parameters.
const DefaultParamsURL = "https://bbs-api.miyoushe.com/apihub/wapi/getUploadParams"

// Config holds all runtime configuration for the service.
type Config struct {
	Host        string `validate:"omitempty,hostname|ip"`
	Port        string `validate:"required,numeric"`
	AppEnv      string `validate:"required,oneof=development production test"`
	LogLevel    string `validate:"required,oneof=debug info warn error"`
	OpenBrowser bool

	// StaticDir overrides the embedded landing page when set.
	StaticDir  string `validate:"omitempty,dir"`
	ScratchDir string `validate:"required"`

	MaxUploadBytes int64 `validate:"gt=0"`

	// Media host
	ParamsURL        string        `validate:"required,url"`
	NegotiateTimeout time.Duration `validate:"gt=0"`
	UploadTimeout    time.Duration `validate:"gt=0"`
}

// Load reads configuration from envFile (if present) and environment variables,
// then validates it.
func Load(envFile string) (*Config, error) {
	// A missing .env is normal; everything can come from the environment.
	_ = godotenv.Load(envFile)

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "67108864"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
	}
	negotiateTimeout, err := time.ParseDuration(getEnv("NEGOTIATE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse NEGOTIATE_TIMEOUT: %w", err)
	}
	uploadTimeout, err := time.ParseDuration(getEnv("UPLOAD_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("parse UPLOAD_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Host:        getEnv("HOST", "0.0.0.0"),
		Port:        getEnv("PORT", "5000"),
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		OpenBrowser: getEnv("OPEN_BROWSER", "true") == "true",

		StaticDir:  getEnv("STATIC_DIR", ""),
		ScratchDir: getEnv("SCRATCH_DIR", os.TempDir()),

		MaxUploadBytes: maxUpload,

		ParamsURL:        getEnv("PARAMS_URL", DefaultParamsURL),
		NegotiateTimeout: negotiateTimeout,
		UploadTimeout:    uploadTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
