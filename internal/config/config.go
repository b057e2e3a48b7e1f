package config

import (
	"encoding/json"
	"fmt"
	"os"

	"reefops/internal/constants"
	"reefops/internal/models"
	"reefops/internal/security"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMissingDBPath     = models.ConfigError{Message: "missing database path"}
	ErrMissingStorageDir = models.ConfigError{Message: "missing attachment storage directory"}
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the JSON config file, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*models.Config, error) {
	if err := security.ValidateLocalPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = int(constants.DefaultServerReadTimeout.Seconds())
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = int(constants.DefaultServerWriteTimeout.Seconds())
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = int(constants.DefaultServerIdleTimeout.Seconds())
	}
	if c.Storage.MaxFileMB <= 0 {
		c.Storage.MaxFileMB = constants.MaxFileSizeBytes / (1024 * 1024)
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = constants.DefaultTokenTTLHours
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultInitialBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "reefops"
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if path := os.Getenv("REEFOPS_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if dir := os.Getenv("REEFOPS_STORAGE_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	// Secrets are only accepted from the environment.
	if secret := os.Getenv("REEFOPS_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		c.Email.APIKey = key
	}
	if level := os.Getenv("REEFOPS_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

func validateConfig(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Storage.Dir == "" {
		return ErrMissingStorageDir
	}
	if err := security.ValidateLocalPath(c.Database.Path); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("database path: %v", err)}
	}
	if err := security.ValidateLocalPath(c.Storage.Dir); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("storage dir: %v", err)}
	}

	if err := validate.Struct(c); err != nil {
		return models.ConfigError{Message: err.Error()}
	}

	isProduction := os.Getenv("REEFOPS_ENV") == "production"
	if isProduction {
		if c.Auth.RequireAuth && c.Auth.JWTSecret == "" {
			return models.ConfigError{Message: "JWT secret is required in production (set REEFOPS_JWT_SECRET)"}
		}
		if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
			return models.ConfigError{Message: "JWT secret must be at least 32 characters long"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production"}
		}
	}
	if c.Features.EmailNotifications && c.Email.FromAddr == "" {
		return models.ConfigError{Message: "email notifications require a from address"}
	}

	return nil
}
