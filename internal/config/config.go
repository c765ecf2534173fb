package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"sandboxsignup/internal/pkg/validator"
)

const (
	defaultListenAddr     = ":8080"
	defaultHandoffDelay   = "5s"
	defaultRedirectDelay  = "3s"
	defaultCodeTTL        = "5m"
	defaultResendCooldown = "60s"
	defaultJWTTTL         = "24h"
	defaultCodePepper     = "change-me-code-pepper"
	defaultJWTSecret      = "change-me-jwt-secret"
)

// PoolConfig mirrors the deployable config.json the sign-up page fetches at
// startup. Every key is required; a page without a valid directory endpoint
// cannot render the form.
type PoolConfig struct {
	UserPoolID      string `json:"userPoolId" validate:"required"`
	ClientID        string `json:"clientId" validate:"required"`
	Region          string `json:"region" validate:"required"`
	HostedDomain    string `json:"hostedDomain" validate:"required"`
	RedirectURI     string `json:"redirectUri" validate:"required,url"`
	LoginURL        string `json:"loginUrl" validate:"required,url"`
	BotCheckSiteKey string `json:"botCheckSiteKey" validate:"required"`
}

// Config is the full runtime configuration: the pool config file plus
// environment-driven service settings.
type Config struct {
	AppEnv     string
	ListenAddr string

	Pool PoolConfig

	// DirectoryProvider selects "cognito" or "devpool".
	DirectoryProvider string
	DatabaseURL       string

	// VerifyMode selects "confirm_registration" or "verify_attribute".
	VerifyMode     string
	ResendBotCheck bool

	BotCheckProvider string
	BotCheckEndpoint string
	DevBotToken      string

	HandoffDelay  time.Duration
	RedirectDelay time.Duration

	CodePepper     string
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	JWTSecret      string
	JWTTTL         time.Duration
	DevCodeLog     bool
}

func Load(poolConfigPath string) (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.ListenAddr = strings.TrimSpace(getEnv("LISTEN_ADDR", defaultListenAddr))

	pool, err := loadPoolConfig(poolConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Pool = *pool

	cfg.DirectoryProvider = strings.ToLower(getEnv("DIRECTORY_PROVIDER", "devpool"))
	if cfg.DirectoryProvider != "cognito" && cfg.DirectoryProvider != "devpool" {
		return nil, fmt.Errorf("DIRECTORY_PROVIDER must be cognito or devpool, got %q", cfg.DirectoryProvider)
	}
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", "signup.db"))

	cfg.VerifyMode = strings.ToLower(getEnv("VERIFY_MODE", "confirm_registration"))
	if cfg.VerifyMode != "confirm_registration" && cfg.VerifyMode != "verify_attribute" {
		return nil, fmt.Errorf("VERIFY_MODE must be confirm_registration or verify_attribute, got %q", cfg.VerifyMode)
	}
	cfg.ResendBotCheck = parseBoolEnv("RESEND_BOT_CHECK", "false")

	cfg.BotCheckProvider = strings.ToLower(getEnv("BOT_CHECK_PROVIDER", "dev"))
	if cfg.BotCheckProvider != "http" && cfg.BotCheckProvider != "dev" {
		return nil, fmt.Errorf("BOT_CHECK_PROVIDER must be http or dev, got %q", cfg.BotCheckProvider)
	}
	cfg.BotCheckEndpoint = strings.TrimSpace(os.Getenv("BOT_CHECK_ENDPOINT"))
	cfg.DevBotToken = strings.TrimSpace(getEnv("DEV_BOT_TOKEN", "dev-token"))

	cfg.HandoffDelay, err = parseDurationEnv("HANDOFF_DELAY", defaultHandoffDelay)
	if err != nil {
		return nil, err
	}
	cfg.RedirectDelay, err = parseDurationEnv("REDIRECT_DELAY", defaultRedirectDelay)
	if err != nil {
		return nil, err
	}
	cfg.CodeTTL, err = parseDurationEnv("CODE_TTL", defaultCodeTTL)
	if err != nil {
		return nil, err
	}
	cfg.ResendCooldown, err = parseDurationEnv("RESEND_COOLDOWN", defaultResendCooldown)
	if err != nil {
		return nil, err
	}
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	cfg.CodePepper = strings.TrimSpace(getEnv("CODE_PEPPER", defaultCodePepper))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.DevCodeLog = parseBoolEnv("DEV_CODE_LOG", "true")

	if err := validate(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s directory=%s verify_mode=%s bot_check=%s",
		cfg.AppEnv, cfg.DirectoryProvider, cfg.VerifyMode, cfg.BotCheckProvider)

	return cfg, nil
}

func loadPoolConfig(path string) (*PoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool config %s: %w", path, err)
	}

	var pool PoolConfig
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("parse pool config %s: %w", path, err)
	}

	if fields := validator.Validate(&pool); fields != nil {
		return nil, fmt.Errorf("pool config %s is missing or invalid: %v", path, fields)
	}
	return &pool, nil
}

func validate(cfg *Config) error {
	if cfg.HandoffDelay <= 0 {
		return fmt.Errorf("HANDOFF_DELAY must be > 0")
	}
	if cfg.RedirectDelay <= 0 {
		return fmt.Errorf("REDIRECT_DELAY must be > 0")
	}
	if cfg.CodeTTL <= 0 {
		return fmt.Errorf("CODE_TTL must be > 0")
	}
	if cfg.ResendCooldown <= 0 {
		return fmt.Errorf("RESEND_COOLDOWN must be > 0")
	}
	if cfg.BotCheckProvider == "http" && cfg.BotCheckEndpoint == "" {
		return fmt.Errorf("BOT_CHECK_ENDPOINT is required when BOT_CHECK_PROVIDER=http")
	}
	if cfg.DirectoryProvider == "cognito" && cfg.VerifyMode == "verify_attribute" {
		return fmt.Errorf("VERIFY_MODE=verify_attribute is not supported with the cognito directory")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.CodePepper, defaultCodePepper) {
			return fmt.Errorf("in prod/release CODE_PEPPER must be set and not default")
		}
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.BotCheckProvider == "dev" {
			return fmt.Errorf("in prod/release BOT_CHECK_PROVIDER must not be dev")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
