// config.go - Environment configuration, validated once at startup.
//
// All settings are read from AFD_* environment variables into an immutable
// Config. Validation accumulates every problem and fails fast with all of
// them rather than surfacing errors one request at a time.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the validated application configuration.
type Config struct {
	Addr      string
	SecretKey string

	StorageBackend string // "dir" or "s3"
	Folder         string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string

	DailyLimitMB   int64
	MaxUploadBytes int64

	InactivityMinutes int
	SweepInterval     time.Duration

	QuotaBackend string // "file" or "bolt"
	QuotaDBPath  string
}

// DailyLimitBytes returns the per-client daily allowance in bytes.
func (c Config) DailyLimitBytes() int64 {
	return c.DailyLimitMB * bytesPerMB
}

// ConfigValidationError represents a configuration validation error.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// configValidator accumulates validation errors across all settings.
type configValidator struct {
	errors []ConfigValidationError
}

func (v *configValidator) addError(field, message string) {
	v.errors = append(v.errors, ConfigValidationError{Field: field, Message: message})
}

func (v *configValidator) err() error {
	if len(v.errors) == 0 {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d error(s):\n", len(v.errors))
	for i, e := range v.errors {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e.Error())
	}
	return fmt.Errorf("%s", sb.String())
}

func (v *configValidator) required(key string) string {
	value := os.Getenv(key)
	if value == "" {
		v.addError(key, "required environment variable not set")
	}
	return value
}

func (v *configValidator) positiveInt(key, value string, def int64) int64 {
	if value == "" {
		return def
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.addError(key, "must be a valid integer")
		return def
	}
	if n <= 0 {
		v.addError(key, "must be a positive integer")
		return def
	}
	return n
}

func (v *configValidator) enum(key, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, opt := range allowed {
		if value == opt {
			return
		}
	}
	v.addError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

func (v *configValidator) addr(key, value string) {
	if value == "" {
		return
	}
	i := strings.LastIndex(value, ":")
	if i < 0 {
		v.addError(key, "must be of the form host:port or :port")
		return
	}
	port, err := strconv.Atoi(value[i+1:])
	if err != nil {
		v.addError(key, "port must be a number")
		return
	}
	if port < 1 || port > 65535 {
		v.addError(key, "port must be between 1 and 65535")
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// LoadConfig reads and validates the full configuration. A missing secret
// key is fatal here, never per-request.
func LoadConfig() (Config, error) {
	v := &configValidator{}

	cfg := Config{
		Addr:           getenvDefault("AFD_ADDR", ":8080"),
		SecretKey:      v.required("AFD_SECRET_KEY"),
		StorageBackend: getenvDefault("AFD_STORAGE_BACKEND", "dir"),
		Folder:         getenvDefault("AFD_FOLDER", "./files"),
		S3Endpoint:     os.Getenv("AFD_S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("AFD_S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("AFD_S3_SECRET_KEY"),
		S3Bucket:       os.Getenv("AFD_BUCKET"),
		QuotaBackend:   getenvDefault("AFD_QUOTA_BACKEND", "file"),
		QuotaDBPath:    getenvDefault("AFD_QUOTA_DB", "./db.json"),
	}

	v.addr("AFD_ADDR", cfg.Addr)
	v.enum("AFD_STORAGE_BACKEND", cfg.StorageBackend, []string{"dir", "s3"})
	v.enum("AFD_QUOTA_BACKEND", cfg.QuotaBackend, []string{"file", "bolt"})
	v.enum("AFD_LOG_FORMAT", os.Getenv("AFD_LOG_FORMAT"), []string{"json", "text"})
	v.enum("AFD_LOG_LEVEL", os.Getenv("AFD_LOG_LEVEL"), []string{"debug", "info", "warn", "error"})

	if cfg.StorageBackend == "s3" {
		if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" || cfg.S3Bucket == "" {
			v.addError("AFD_S3_ENDPOINT", "s3 backend requires AFD_S3_ENDPOINT, AFD_S3_ACCESS_KEY, AFD_S3_SECRET_KEY and AFD_BUCKET")
		}
	}

	cfg.DailyLimitMB = v.positiveInt("AFD_DAILY_LIMIT_MB", os.Getenv("AFD_DAILY_LIMIT_MB"), 100)
	cfg.InactivityMinutes = int(v.positiveInt("AFD_CLEANUP_AFTER_MINS_INACTIVITY",
		os.Getenv("AFD_CLEANUP_AFTER_MINS_INACTIVITY"), 60))
	sweepSeconds := v.positiveInt("AFD_SWEEP_INTERVAL_SECONDS", os.Getenv("AFD_SWEEP_INTERVAL_SECONDS"), 10)
	cfg.SweepInterval = time.Duration(sweepSeconds) * time.Second

	// A single upload can never usefully exceed the daily allowance.
	cfg.MaxUploadBytes = v.positiveInt("AFD_MAX_UPLOAD_BYTES",
		os.Getenv("AFD_MAX_UPLOAD_BYTES"), cfg.DailyLimitMB*bytesPerMB)

	if err := v.err(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
