// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Workflow      WorkflowConfig     `mapstructure:"workflow"`
	RateLimit     RateLimitConfig    `mapstructure:"rate_limit"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// IsProduction reports whether the app runs with production error masking.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // seconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // seconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // seconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// StorageConfig selects the upload backend. S3 wins when credentials are
// present; otherwise files go to the local upload directory.
type StorageConfig struct {
	UploadDir   string `mapstructure:"upload_dir"`
	MaxFileSize int64  `mapstructure:"max_file_size"` // bytes

	S3 struct {
		Bucket          string `mapstructure:"bucket"`
		Region          string `mapstructure:"region"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
	} `mapstructure:"s3"`
}

// S3Configured reports whether object storage credentials are present.
func (s StorageConfig) S3Configured() bool {
	return s.S3.Bucket != "" && s.S3.AccessKeyID != "" && s.S3.SecretAccessKey != ""
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

// IntegrationConfig holds settings for AWS messaging services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// NotificationConfig holds settings for the outbound message queue and
// phone normalization.
type NotificationConfig struct {
	QueueSize         int      `mapstructure:"queue_size"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RetryDelayMs      int      `mapstructure:"retry_delay_ms"`
	HomeCountryCode   string   `mapstructure:"home_country_code"`
	KnownCountryCodes []string `mapstructure:"known_country_codes"`
}

// WorkflowConfig holds defaults for generated access links.
type WorkflowConfig struct {
	PaymentLinkExpiryDays  int    `mapstructure:"payment_link_expiry_days"`
	DocumentLinkExpiryDays int    `mapstructure:"document_link_expiry_days"`
	DefaultMaxUploads      int    `mapstructure:"default_max_uploads"`
	DefaultCurrency        string `mapstructure:"default_currency"`

	BankDefaults struct {
		BankName      string `mapstructure:"bank_name"`
		AccountName   string `mapstructure:"account_name"`
		AccountNumber string `mapstructure:"account_number"`
		IBAN          string `mapstructure:"iban"`
		SwiftCode     string `mapstructure:"swift_code"`
	} `mapstructure:"bank_defaults"`
}

type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	PublicLimit   int  `mapstructure:"public_limit"`
	WindowSeconds int  `mapstructure:"window_seconds"`
	BlockSeconds  int  `mapstructure:"block_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
