package models

// Config is the top-level service configuration, loaded from JSON with
// environment overrides applied afterwards.
type Config struct {
	LogLevel string `json:"logLevel,omitempty"`

	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Storage  StorageConfig  `json:"storage"`
	Auth     AuthConfig     `json:"auth"`
	Email    EmailConfig    `json:"email,omitempty"`
	Retry    RetryConfig    `json:"retry,omitempty"`
	Tracing  TracingConfig  `json:"tracing,omitempty"`
	Features FeatureConfig  `json:"features,omitempty"`
}

type ServerConfig struct {
	Port            int `json:"port,omitempty"`
	ReadTimeoutSec  int `json:"readTimeoutSec,omitempty"`
	WriteTimeoutSec int `json:"writeTimeoutSec,omitempty"`
	IdleTimeoutSec  int `json:"idleTimeoutSec,omitempty"`
}

type DatabaseConfig struct {
	Path string `json:"path" validate:"required"`
}

// StorageConfig configures the attachment object store.
type StorageConfig struct {
	Dir           string `json:"dir" validate:"required"`
	PublicBaseURL string `json:"publicBaseUrl,omitempty"`
	MaxFileMB     int    `json:"maxFileMB,omitempty"`
}

type AuthConfig struct {
	// JWTSecret is normally supplied via REEFOPS_JWT_SECRET.
	JWTSecret      string `json:"-"`
	TokenTTLHours  int    `json:"tokenTtlHours,omitempty"`
	RequireAuth    bool   `json:"requireAuth"`
	AllowQueryAuth bool   `json:"allowQueryAuth,omitempty"`
}

// EmailConfig configures the best-effort SendGrid mailer used for
// scheduling notifications.
type EmailConfig struct {
	Enabled  bool   `json:"enabled"`
	FromName string `json:"fromName,omitempty"`
	FromAddr string `json:"fromAddr,omitempty" validate:"omitempty,email"`
	// APIKey is supplied via SENDGRID_API_KEY.
	APIKey string `json:"-"`
}

// RetryConfig tunes the startup backoff for opening the database. Store
// operations themselves are never retried automatically.
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs,omitempty"`
	MaxBackoffMs     int `json:"maxBackoffMs,omitempty"`
	MaxAttempts      int `json:"maxAttempts,omitempty"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName,omitempty"`
	ServiceVersion string  `json:"serviceVersion,omitempty"`
	Environment    string  `json:"environment,omitempty"`
	OTLPEndpoint   string  `json:"otlpEndpoint,omitempty"`
	SampleRate     float64 `json:"sampleRate,omitempty"`
	UseStdout      bool    `json:"useStdout,omitempty"`
}

type FeatureConfig struct {
	EmailNotifications bool `json:"emailNotifications"`
	MessageSearch      bool `json:"messageSearch"`
}

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return "config: " + e.Message
}
