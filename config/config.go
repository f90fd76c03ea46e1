// Package config loads the service configuration from YAML with an
// environment overlay.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/esign/keys"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidValue         = errors.New("invalid value")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigurationError
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func missing(field string) *ConfigError {
	return &ConfigError{Field: field, Message: "required field is missing", Err: ErrMissingRequiredField}
}

func invalid(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: ErrInvalidValue}
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Address is the listen address.
	Address string `yaml:"address" json:"address"`

	// PublicURL is the externally visible base URL, used in verification
	// links.
	PublicURL string `yaml:"public-url" json:"public_url"`

	// Mode is the gin mode (debug, release, test).
	Mode string `yaml:"mode" json:"mode,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown-timeout" json:"shutdown_timeout,omitempty"`
}

// SetDefaults sets default values for server configuration.
func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:8080"
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("server.public-url", fmt.Sprintf("'%s' is not an absolute URL", c.PublicURL))
	}
	switch c.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode", fmt.Sprintf("unknown mode '%s'", c.Mode))
	}
	return nil
}

// PKCS12SignatureConfig contains configuration for signing using a PKCS#12
// bundle, given either as a file or inline as base64.
type PKCS12SignatureConfig struct {
	// PFXFile is the path to the PKCS#12 file.
	PFXFile string `yaml:"pfx-file" json:"pfx_file,omitempty"`

	// PFXBase64 is the PKCS#12 bundle encoded as base64.
	PFXBase64 string `yaml:"pfx-base64" json:"-"`

	// PFXPassphrase is the PKCS#12 passphrase. It may be empty.
	PFXPassphrase string `yaml:"pfx-passphrase" json:"-"`
}

// Validate validates the PKCS12 signature configuration.
func (c *PKCS12SignatureConfig) Validate() error {
	if c.PFXFile == "" && c.PFXBase64 == "" {
		return missing("signing.pkcs12.pfx-file")
	}
	return nil
}

// Bundle reads the configured bundle.
func (c *PKCS12SignatureConfig) Bundle() (keys.PKCS12Bundle, error) {
	if c.PFXBase64 != "" {
		return keys.BundleFromBase64(c.PFXBase64, c.PFXPassphrase)
	}
	if c.PFXFile == "" {
		return keys.PKCS12Bundle{}, keys.ErrEmptyBundle
	}
	return keys.BundleFromFile(c.PFXFile, c.PFXPassphrase)
}

// TimestampConfig contains timestamp service configuration.
type TimestampConfig struct {
	// URL is the timestamp service URL.
	URL string `yaml:"url" json:"url"`

	// Username for HTTP authentication.
	Username string `yaml:"username" json:"username,omitempty"`

	// Password for HTTP authentication.
	Password string `yaml:"password" json:"password,omitempty"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout" json:"timeout,omitempty"`
}

// Validate validates the timestamp configuration.
func (c *TimestampConfig) Validate() error {
	if c.URL == "" {
		return NewConfigError("url", "timestamp URL is required")
	}
	if c.Timeout < 0 {
		return invalid("signing.timestamp.timeout", "must not be negative")
	}
	return nil
}

// TimeoutDuration returns the request timeout.
func (c *TimestampConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// SigningConfig contains the signing identity and the descriptive entries
// written into every signature.
type SigningConfig struct {
	PKCS12 *PKCS12SignatureConfig `yaml:"pkcs12" json:"pkcs12,omitempty"`

	// ESignName is the product name used in signature reasons.
	ESignName string `yaml:"esign-name" json:"esign_name"`

	// ContactInfo is written as the signature /ContactInfo.
	ContactInfo string `yaml:"contact-info" json:"contact_info,omitempty"`

	// Location is written as the signature /Location.
	Location string `yaml:"location" json:"location,omitempty"`

	// Timestamp enables RFC 3161 timestamps when set.
	Timestamp *TimestampConfig `yaml:"timestamp" json:"timestamp,omitempty"`
}

// SetDefaults sets default values for signing configuration.
func (c *SigningConfig) SetDefaults() {
	if c.PKCS12 == nil {
		c.PKCS12 = &PKCS12SignatureConfig{}
	}
	if c.ESignName == "" {
		c.ESignName = "esign"
	}
	if c.Location == "" {
		c.Location = "n/a"
	}
}

// Validate validates the signing configuration.
func (c *SigningConfig) Validate() error {
	if err := c.PKCS12.Validate(); err != nil {
		return err
	}
	if c.Timestamp != nil {
		if err := c.Timestamp.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LocalStorageConfig stores objects on the local file system.
type LocalStorageConfig struct {
	Dir     string `yaml:"dir" json:"dir"`
	BaseURL string `yaml:"base-url" json:"base_url"`
}

// S3StorageConfig stores objects in an S3 bucket.
type S3StorageConfig struct {
	Bucket        string `yaml:"bucket" json:"bucket"`
	Region        string `yaml:"region" json:"region"`
	Prefix        string `yaml:"prefix" json:"prefix,omitempty"`
	Endpoint      string `yaml:"endpoint" json:"endpoint,omitempty"`
	PublicBaseURL string `yaml:"public-base-url" json:"public_base_url,omitempty"`
}

// StorageConfig selects the object store.
type StorageConfig struct {
	// Driver is one of memory, local, s3.
	Driver string             `yaml:"driver" json:"driver"`
	Local  LocalStorageConfig `yaml:"local" json:"local"`
	S3     S3StorageConfig    `yaml:"s3" json:"s3"`
}

// SetDefaults sets default values for storage configuration.
func (c *StorageConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "local"
	}
	if c.Local.Dir == "" {
		c.Local.Dir = "data/files"
	}
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case "memory":
	case "local":
		if c.Local.BaseURL == "" {
			return missing("storage.local.base-url")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return missing("storage.s3.bucket")
		}
		if c.S3.Region == "" {
			return missing("storage.s3.region")
		}
	default:
		return invalid("storage.driver", fmt.Sprintf("unknown driver '%s'", c.Driver))
	}
	return nil
}

// DatabaseConfig selects the document store.
type DatabaseConfig struct {
	// Driver is memory or postgres.
	Driver          string        `yaml:"driver" json:"driver"`
	DSN             string        `yaml:"dsn" json:"-"`
	MaxOpenConns    int           `yaml:"max-open-conns" json:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max-idle-conns" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn-max-lifetime" json:"conn_max_lifetime,omitempty"`
}

// SetDefaults sets default values for database configuration.
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "memory"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "memory":
	case "postgres":
		if c.DSN == "" {
			return missing("database.dsn")
		}
	default:
		return invalid("database.driver", fmt.Sprintf("unknown driver '%s'", c.Driver))
	}
	return nil
}

// VerificationConfig tunes the verification summary cache.
type VerificationConfig struct {
	CacheTTL  time.Duration `yaml:"cache-ttl" json:"cache_ttl"`
	CacheSize int           `yaml:"cache-size" json:"cache_size"`
}

// SetDefaults sets default values for verification configuration.
func (c *VerificationConfig) SetDefaults() {
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheSize == 0 {
		c.CacheSize = 1024
	}
}

// Validate validates the verification configuration.
func (c *VerificationConfig) Validate() error {
	if c.CacheTTL < 0 {
		return invalid("verification.cache-ttl", "must not be negative")
	}
	if c.CacheSize < 0 {
		return invalid("verification.cache-size", "must not be negative")
	}
	return nil
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is the log format (text, json).
	Format string `yaml:"format" json:"format,omitempty"`

	// Output is the log output (stdout, stderr, or file path).
	Output string `yaml:"output" json:"output,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate validates the logging configuration.
func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", fmt.Sprintf("unknown level '%s'", c.Level))
	}
	switch c.Format {
	case "text", "json":
	default:
		return invalid("logging.format", fmt.Sprintf("unknown format '%s'", c.Format))
	}
	return nil
}

// AppConfig contains the complete application configuration.
type AppConfig struct {
	Server       *ServerConfig       `yaml:"server" json:"server,omitempty"`
	Logging      *LoggingConfig      `yaml:"logging" json:"logging,omitempty"`
	Signing      *SigningConfig      `yaml:"signing" json:"signing,omitempty"`
	Storage      *StorageConfig      `yaml:"storage" json:"storage,omitempty"`
	Database     *DatabaseConfig     `yaml:"database" json:"database,omitempty"`
	Verification *VerificationConfig `yaml:"verification" json:"verification,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	c := &AppConfig{}
	c.SetDefaults()
	return c
}

// SetDefaults fills in missing sections and values.
func (c *AppConfig) SetDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Signing == nil {
		c.Signing = &SigningConfig{}
	}
	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Database == nil {
		c.Database = &DatabaseConfig{}
	}
	if c.Verification == nil {
		c.Verification = &VerificationConfig{}
	}
	c.Server.SetDefaults()
	c.Logging.SetDefaults()
	c.Signing.SetDefaults()
	c.Storage.SetDefaults()
	c.Database.SetDefaults()
	c.Verification.SetDefaults()
	if c.Storage.Local.BaseURL == "" {
		c.Storage.Local.BaseURL = strings.TrimRight(c.Server.PublicURL, "/") + "/files"
	}
}

// Validate checks every section, returning the first problem found.
func (c *AppConfig) Validate() error {
	validators := []interface{ Validate() error }{
		c.Server, c.Logging, c.Signing, c.Storage, c.Database, c.Verification,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadAppConfig loads the complete application configuration from a file.
func LoadAppConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseAppConfig(data)
}

// ParseAppConfig parses YAML configuration and applies defaults.
func ParseAppConfig(data []byte) (*AppConfig, error) {
	var config AppConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &ConfigError{Message: "failed to parse config", Err: err}
	}
	config.SetDefaults()
	return &config, nil
}

// Environment variables understood by ApplyEnv.
const (
	EnvPFXBase64    = "PFX_BASE64"
	EnvPassphrase   = "PASS_PHRASE"
	EnvPublicURL    = "PUBLIC_URL"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvS3Bucket     = "S3_BUCKET_NAME"
	EnvAWSRegion    = "AWS_REGION"
	EnvLogLevel     = "LOG_LEVEL"
	EnvServerAddr   = "SERVER_ADDRESS"
	EnvTimestampURL = "TSA_URL"
	EnvCacheTTL     = "VERIFY_CACHE_TTL"
)

// ApplyEnv overlays environment values on the configuration. Setting
// DATABASE_URL switches the database driver to postgres, setting
// S3_BUCKET_NAME switches storage to s3.
func (c *AppConfig) ApplyEnv(env map[string]string) error {
	c.SetDefaults()
	if v := env[EnvPFXBase64]; v != "" {
		c.Signing.PKCS12.PFXBase64 = v
	}
	if v, ok := env[EnvPassphrase]; ok {
		c.Signing.PKCS12.PFXPassphrase = v
	}
	if v := env[EnvPublicURL]; v != "" {
		c.Server.PublicURL = v
	}
	if v := env[EnvServerAddr]; v != "" {
		c.Server.Address = v
	}
	if v := env[EnvDatabaseURL]; v != "" {
		c.Database.Driver = "postgres"
		c.Database.DSN = v
	}
	if v := env[EnvS3Bucket]; v != "" {
		c.Storage.Driver = "s3"
		c.Storage.S3.Bucket = v
	}
	if v := env[EnvAWSRegion]; v != "" {
		c.Storage.S3.Region = v
	}
	if v := env[EnvLogLevel]; v != "" {
		c.Logging.Level = v
	}
	if v := env[EnvTimestampURL]; v != "" {
		if c.Signing.Timestamp == nil {
			c.Signing.Timestamp = &TimestampConfig{}
		}
		c.Signing.Timestamp.URL = v
	}
	if v := env[EnvCacheTTL]; v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			if secs, convErr := strconv.Atoi(v); convErr == nil {
				ttl = time.Duration(secs) * time.Second
			} else {
				return &ConfigError{Field: EnvCacheTTL, Message: "not a duration", Err: err}
			}
		}
		c.Verification.CacheTTL = ttl
	}
	return nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ReadEnvFile reads a dotenv file. Values already present in base win, so
// the real environment overrides the file.
func ReadEnvFile(path string, base map[string]string) (map[string]string, error) {
	fileEnv, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	merged := make(map[string]string, len(fileEnv)+len(base))
	for k, v := range fileEnv {
		merged[k] = v
	}
	for k, v := range base {
		merged[k] = v
	}
	return merged, nil
}
