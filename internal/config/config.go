package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// DefaultAccountURL is the paper-trading account endpoint.
	DefaultAccountURL = "https://paper-api.alpaca.markets/v2/account"

	// Credential variable names. The hyphenated forms double as request header names.
	EnvKeyID     = "APCA-API-KEY-ID"
	EnvSecretKey = "APCA-API-SECRET-KEY"

	redactedValue = "***"
)

// Config holds the application configuration loaded from the environment.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	EnvFile  string `mapstructure:"env_file"`

	// EnvFileErr is set when the env file exists but could not be parsed. Load
	// falls back to the process environment; callers log it once logging is up.
	EnvFileErr error `mapstructure:"-" json:"-"`

	KeyID     string `mapstructure:"apca_api_key_id"`
	SecretKey string `mapstructure:"apca_api_secret_key"`

	AccountURL         string        `mapstructure:"account_url"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	Publish PublishConfig `mapstructure:",squash"`
}

// PublishConfig lists the optional sinks a probe snapshot is forwarded to.
// A sink is active when its target (url, queue, topic) is set.
type PublishConfig struct {
	HTTPURL            string `mapstructure:"publish_http_url"`
	HTTPMethod         string `mapstructure:"publish_http_method"`
	HTTPTimeoutSeconds int    `mapstructure:"publish_http_timeout_seconds"`

	// HTTPHeaders comes from PUBLISH_HTTP_HEADERS, a JSON object of header names to values.
	HTTPHeaders map[string]string `mapstructure:"-"`

	SQSQueueURL string `mapstructure:"publish_sqs_queue_url"`
	SQSRegion   string `mapstructure:"publish_sqs_region"`

	SNSTopicARN string `mapstructure:"publish_sns_topic_arn"`
	SNSRegion   string `mapstructure:"publish_sns_region"`

	AWSEndpoint        string `mapstructure:"publish_aws_endpoint"`
	AWSAccessKeyID     string `mapstructure:"publish_aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"publish_aws_secret_access_key"`

	PubSubProject string `mapstructure:"publish_pubsub_project"`
	PubSubTopic   string `mapstructure:"publish_pubsub_topic"`
}

// Load reads configuration from the optional env file and the process environment.
func Load() (*Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	var envFileErr error
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		envFileErr = fmt.Errorf("load env file %s: %w", envFile, err)
	}

	v := viper.New()

	v.SetDefault("app_name", "account-probe")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("env_file", envFile)
	v.SetDefault("account_url", DefaultAccountURL)
	v.SetDefault("http_timeout_seconds", 0)
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/probes.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("publish_http_method", "POST")
	v.SetDefault("publish_http_timeout_seconds", 5)
	for _, key := range publishKeys {
		v.SetDefault(key, "")
	}

	// godotenv rejects hyphens in variable names, so AutomaticEnv also resolves the
	// underscore spelling (APCA_API_KEY_ID), which takes precedence when both are set.
	if err := v.BindEnv("apca_api_key_id", EnvKeyID); err != nil {
		return nil, fmt.Errorf("bind key id: %w", err)
	}
	if err := v.BindEnv("apca_api_secret_key", EnvSecretKey); err != nil {
		return nil, fmt.Errorf("bind secret key: %w", err)
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.EnvFileErr = envFileErr

	if raw := strings.TrimSpace(v.GetString("publish_http_headers")); raw != "" {
		headers, err := parseHeaders(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid publish_http_headers: %w", err)
		}
		cfg.Publish.HTTPHeaders = headers
	}

	cfg.AccountURL = strings.TrimSpace(cfg.AccountURL)
	if cfg.AccountURL == "" {
		return nil, fmt.Errorf("invalid account_url (must not be empty)")
	}
	if cfg.HTTPTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// publishKeys get empty defaults so AutomaticEnv picks them up during Unmarshal.
var publishKeys = []string{
	"publish_http_url",
	"publish_http_headers",
	"publish_sqs_queue_url",
	"publish_sqs_region",
	"publish_sns_topic_arn",
	"publish_sns_region",
	"publish_aws_endpoint",
	"publish_aws_access_key_id",
	"publish_aws_secret_access_key",
	"publish_pubsub_project",
	"publish_pubsub_topic",
}

// Redacted returns a copy safe to log: secret values are masked.
func (c Config) Redacted() Config {
	c.KeyID = redact(c.KeyID)
	c.SecretKey = redact(c.SecretKey)
	c.Publish.AWSAccessKeyID = redact(c.Publish.AWSAccessKeyID)
	c.Publish.AWSSecretAccessKey = redact(c.Publish.AWSSecretAccessKey)
	if len(c.Publish.HTTPHeaders) > 0 {
		masked := make(map[string]string, len(c.Publish.HTTPHeaders))
		for k, v := range c.Publish.HTTPHeaders {
			masked[k] = redact(v)
		}
		c.Publish.HTTPHeaders = masked
	}
	return c
}

// parseHeaders decodes a JSON object such as {"Authorization":"Bearer x"}.
func parseHeaders(raw string) (map[string]string, error) {
	var headers map[string]string
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return nil, err
	}
	return headers, nil
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return redactedValue
}
