package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"voucherdesk/pkg/client"
	"voucherdesk/pkg/logger"
)

type Config struct {
	Port string

	LogLevel  string
	LogFormat string

	BackendBaseURL string
	BackendTimeout time.Duration

	SessionKey string
	SessionTTL time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	FormDefinitionFile string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	return LoadTo(serviceName, os.Stdout)
}

// LoadTo is Load with the service log written to out.
func LoadTo(serviceName string, out io.Writer) *Config {
	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Output:    out,
		AddSource: true,
		Service:   serviceName,
	})

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}

	cfg.Client = client.NewClient()
	cfg.Client.SetVoucherClient(cfg.BackendBaseURL, cfg.BackendTimeout)
	cfg.LogConfiguration()
	return cfg
}

// FromEnv reads every setting from the environment without validating or
// connecting to anything.
func FromEnv() *Config {
	return &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		LogLevel:  getEnvStr(EnvLogLevel, DefaultLogLevel),
		LogFormat: getEnvStr(EnvLogFormat, DefaultLogFormat),

		BackendBaseURL: getEnvStr(EnvBackendBaseURL, DefaultBackendBaseURL),
		BackendTimeout: getEnvDuration(EnvBackendTimeout, DefaultBackendTimeout),

		SessionKey: getEnvStr(EnvSessionKey, DefaultSessionKey),
		SessionTTL: getEnvDuration(EnvSessionTTL, DefaultSessionTTL),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		KafkaBrokers: getEnvList(EnvKafkaBrokers),
		KafkaTopic:   getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),

		MongoURI:          getEnvStr(EnvMongoURI, ""),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		FormDefinitionFile: getEnvStr(EnvFormDefinitionFile, ""),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) MongoEnabled() bool {
	return cfg.MongoURI != ""
}

func (cfg *Config) KafkaEnabled() bool {
	return len(cfg.KafkaBrokers) > 0
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if u, err := url.Parse(cfg.BackendBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("BackendBaseURL must be an absolute http(s) URL, got: %s", cfg.BackendBaseURL))
	}
	if cfg.BackendTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("BackendTimeout must be positive, got: %s", cfg.BackendTimeout))
	}

	if key, err := base64.StdEncoding.DecodeString(cfg.SessionKey); err != nil || (len(key) != 16 && len(key) != 24 && len(key) != 32) {
		errors = append(errors, "SessionKey must be a base64 encoded 16, 24 or 32 byte key")
	}
	if cfg.SessionTTL <= 0 {
		errors = append(errors, fmt.Sprintf("SessionTTL must be positive, got: %s", cfg.SessionTTL))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		errors = append(errors, "KafkaTopic cannot be empty when KafkaBrokers are set")
	}

	if cfg.MongoEnabled() {
		if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"log_level", cfg.LogLevel,
		"backend_base_url", cfg.BackendBaseURL,
		"backend_timeout", cfg.BackendTimeout,
		"session_key_default", cfg.SessionKey == DefaultSessionKey,
		"session_ttl", cfg.SessionTTL,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"form_definition_file", cfg.FormDefinitionFile,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*://)[^:@/]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	if cfg.Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := cfg.Client.GracefulShutdown(ctx); err != nil {
		cfg.Log.Error("Failed to close clients", "error", err)
	}
}
