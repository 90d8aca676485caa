package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"HOST", "PORT", "UPLOAD_DIR", "UPLOAD_FIELD", "MAX_FILE_SIZE",
		"MAX_REQUEST_BODY_SIZE", "OCR_LANGUAGE", "OCR_TIMEOUT", "OCR_MAX_CONCURRENCY",
		"VERIFY_IMAGE_CONTENT", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("Expected default port 5000, got %s", cfg.Port)
	}
	if cfg.MaxFileSize != 5*1024*1024 {
		t.Errorf("Expected 5MB file limit, got %d", cfg.MaxFileSize)
	}
	if cfg.OCRLanguage != "eng" {
		t.Errorf("Expected language eng, got %s", cfg.OCRLanguage)
	}
	if cfg.UploadField != "image" {
		t.Errorf("Expected field image, got %s", cfg.UploadField)
	}
	if cfg.ServerAddress() != "0.0.0.0:5000" {
		t.Errorf("Unexpected server address %s", cfg.ServerAddress())
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", " 8081 ")
	t.Setenv("OCR_TIMEOUT", "0s")
	t.Setenv("VERIFY_IMAGE_CONTENT", "true")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8081" {
		t.Errorf("Expected trimmed port, got %s", cfg.ServerAddress())
	}
	if cfg.OCRTimeout != 0 {
		t.Errorf("Expected disabled OCR timeout, got %s", cfg.OCRTimeout)
	}
	if !cfg.VerifyImageContent {
		t.Error("Expected content verification enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected lower-cased log level, got %s", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid PORT"},
		{"zero file size", func(c *Config) { c.MaxFileSize = 0 }, "MAX_FILE_SIZE"},
		{"body smaller than file", func(c *Config) { c.MaxRequestBodySize = 1024 }, "MAX_REQUEST_BODY_SIZE"},
		{"empty field", func(c *Config) { c.UploadField = " " }, "UPLOAD_FIELD"},
		{"no concurrency", func(c *Config) { c.OCRMaxConcurrency = 0 }, "OCR_MAX_CONCURRENCY"},
		{"negative timeout", func(c *Config) { c.OCRTimeout = -time.Second }, "OCR_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
