// Package config provides service configuration loaded from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/rvald/interactions/internal/credentials"
	"github.com/rvald/interactions/internal/logger"
)

const logPrefix = "config:Load"

// Flag is a boolean switch that is on whenever its variable is set to
// anything other than an explicit false value ("0", "false", "f").
type Flag bool

func (f *Flag) Decode(value string) error {
	v := strings.TrimSpace(value)
	if v == "" {
		*f = false
		return nil
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*f = Flag(b)
		return nil
	}
	*f = true
	return nil
}

// Config holds service configuration.
type Config struct {
	// Application credentials.
	ClientID     string `envconfig:"DISCORD_CLIENT_ID"`
	PublicKey    string `envconfig:"DISCORD_PUBLIC_KEY"`
	ClientSecret string `envconfig:"DISCORD_CLIENT_SECRET"`
	Scope        string `envconfig:"DISCORD_SCOPE" default:"applications.commands.update"`
	APIBaseURL   string `envconfig:"DISCORD_API_BASE_URL" default:"https://discord.com/api/v10"`

	// Test-only switches.
	DontRegister          Flag `envconfig:"DONT_REGISTER_WITH_DISCORD"`
	DontValidateSignature Flag `envconfig:"DONT_VALIDATE_SIGNATURE"`

	// HTTP transport
	HTTPAddr         string `envconfig:"HTTP_ADDR" default:":8080"`
	InteractionsPath string `envconfig:"INTERACTIONS_PATH" default:"/interactions"`
	FeedToken        string `envconfig:"FEED_TOKEN"`

	// Dispatch behaviour
	StrictMerge  Flag `envconfig:"STRICT_MERGE"`
	ErrorReplies Flag `envconfig:"ERROR_REPLIES"`

	// Storage; empty DATABASE_URL selects the file store under StateDir.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	StateDir    string `envconfig:"STATE_DIR"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
}

// Load reads an optional .env file (envFile, or ./.env when empty) and then
// processes the environment. Variables already set win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("%s - load %s: %w", logPrefix, envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	return &c, nil
}

// DefaultStateDir is $XDG_STATE_HOME/interactions or ~/.local/state/interactions.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "interactions")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".interactions"
	}
	return filepath.Join(home, ".local", "state", "interactions")
}

// Production reports whether APP_ENV names a production deployment.
func (c *Config) Production() bool {
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	}
	return false
}

// ValidateForServe checks required config when serving interactions.
func (c *Config) ValidateForServe() error {
	var errs []error
	if c.DontValidateSignature {
		if c.Production() {
			errs = append(errs, fmt.Errorf("%s - DONT_VALIDATE_SIGNATURE is refused when APP_ENV=%s", logPrefix, c.AppEnv))
		}
	} else {
		if c.PublicKey == "" {
			errs = append(errs, fmt.Errorf("%s - DISCORD_PUBLIC_KEY is required for serve", logPrefix))
		} else if b, err := hex.DecodeString(c.PublicKey); err != nil || len(b) != 32 {
			errs = append(errs, fmt.Errorf("%s - DISCORD_PUBLIC_KEY must be 64 hex characters", logPrefix))
		}
	}
	if !strings.HasPrefix(c.InteractionsPath, "/") {
		errs = append(errs, fmt.Errorf("%s - INTERACTIONS_PATH must start with /", logPrefix))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("%s - HTTP_ADDR is required for serve", logPrefix))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%s - LOG_LEVEL: %w", logPrefix, err))
	}
	return errors.Join(errs...)
}

// ValidateForRegister checks required config for administrative calls.
func (c *Config) ValidateForRegister() error {
	if c.DontRegister {
		return nil
	}
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, fmt.Errorf("%s - DISCORD_CLIENT_ID is required to register commands", logPrefix))
	}
	if c.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("%s - DISCORD_CLIENT_SECRET is required to register commands", logPrefix))
	}
	if strings.TrimSpace(c.Scope) == "" {
		errs = append(errs, fmt.Errorf("%s - DISCORD_SCOPE must not be empty", logPrefix))
	}
	return errors.Join(errs...)
}

// Fetcher returns the token source implied by the configuration: a static
// placeholder token when registration is disabled, otherwise the OAuth2
// client credentials grant against the API base URL.
func (c *Config) Fetcher() credentials.Fetcher {
	if c.DontRegister {
		return credentials.NewBypass(c.Scope)
	}
	return credentials.NewClientCredentials(c.APIBaseURL, c.ClientID, c.ClientSecret, c.Scope, nil)
}
