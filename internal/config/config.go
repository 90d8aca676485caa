package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	UploadDir          string
	UploadField        string
	MaxFileSize        int64
	MaxRequestBodySize int64
	OCRLanguage        string
	OCRTimeout         time.Duration
	OCRMaxConcurrency  int
	VerifyImageContent bool
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "5000",
		UploadDir:          "uploads",
		UploadField:        "image",
		MaxFileSize:        5 * 1024 * 1024,  // 5MB
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		OCRLanguage:        "eng",
		OCRTimeout:         2 * time.Minute,
		OCRMaxConcurrency:  runtime.NumCPU(),
		RequestTimeout:     3 * time.Minute,
		ShutdownTimeout:    30 * time.Second,
		LogLevel:           "info",
	}
}

func LoadFromEnv() (*Config, error) {
	d := Default()
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", d.Host),
		Port:               getEnvOrDefault("PORT", d.Port),
		UploadDir:          getEnvOrDefault("UPLOAD_DIR", d.UploadDir),
		UploadField:        getEnvOrDefault("UPLOAD_FIELD", d.UploadField),
		MaxFileSize:        parseIntOrDefault("MAX_FILE_SIZE", d.MaxFileSize),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", d.MaxRequestBodySize),
		OCRLanguage:        getEnvOrDefault("OCR_LANGUAGE", d.OCRLanguage),
		OCRTimeout:         parseDurationOrDefault("OCR_TIMEOUT", d.OCRTimeout),
		OCRMaxConcurrency:  int(parseIntOrDefault("OCR_MAX_CONCURRENCY", int64(d.OCRMaxConcurrency))),
		VerifyImageContent: parseBoolOrDefault("VERIFY_IMAGE_CONTENT", d.VerifyImageContent),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", d.RequestTimeout),
		ShutdownTimeout:    parseDurationOrDefault("SHUTDOWN_TIMEOUT", d.ShutdownTimeout),
		LogLevel:           strings.ToLower(getEnvOrDefault("LOG_LEVEL", d.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if strings.TrimSpace(c.UploadField) == "" {
		return fmt.Errorf("UPLOAD_FIELD must not be empty")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be > 0 (got %d)", c.MaxFileSize)
	}
	if c.MaxRequestBodySize < c.MaxFileSize {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be >= MAX_FILE_SIZE (got %d < %d)",
			c.MaxRequestBodySize, c.MaxFileSize)
	}
	if strings.TrimSpace(c.OCRLanguage) == "" {
		return fmt.Errorf("OCR_LANGUAGE must not be empty")
	}
	if c.OCRTimeout < 0 {
		return fmt.Errorf("OCR_TIMEOUT must be >= 0 (got %s)", c.OCRTimeout)
	}
	if c.OCRMaxConcurrency <= 0 {
		return fmt.Errorf("OCR_MAX_CONCURRENCY must be > 0 (got %d)", c.OCRMaxConcurrency)
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, shutdown=%s)",
			c.RequestTimeout, c.ShutdownTimeout)
	}
	return nil
}

// UploadPath returns the absolute staging directory.
func (c *Config) UploadPath() (string, error) {
	return filepath.Abs(c.UploadDir)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
