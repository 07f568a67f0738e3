package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars
	os.Unsetenv("PORT")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("ENV")
	os.Unsetenv("SMS_COUNTRY_CODE")
	os.Unsetenv("LOG_STALE_DAYS")
	os.Unsetenv("DEDUPE_SAME_DAY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.LogLevel)
	}

	if cfg.Env != "development" {
		t.Errorf("expected env 'development', got %s", cfg.Env)
	}

	if cfg.SMSCountryCode != "66" {
		t.Errorf("expected country code '66', got %s", cfg.SMSCountryCode)
	}

	if cfg.LogStaleDays != 2 {
		t.Errorf("expected stale threshold 2, got %d", cfg.LogStaleDays)
	}

	if !cfg.DedupeSameDay {
		t.Error("expected same-day dedupe enabled by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("SMTP_HOST", "smtp.example.com")
	os.Setenv("SMTP_SECURE", "true")
	os.Setenv("EMAIL_API_URL", "https://mail.example.com/")
	os.Setenv("SMS_API_KEY", "key")
	os.Setenv("DEDUPE_SAME_DAY", "false")
	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("SMTP_HOST")
		os.Unsetenv("SMTP_SECURE")
		os.Unsetenv("EMAIL_API_URL")
		os.Unsetenv("SMS_API_KEY")
		os.Unsetenv("DEDUPE_SAME_DAY")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("expected env 'production', got %s", cfg.Env)
	}

	if cfg.SMTPHost != "smtp.example.com" {
		t.Errorf("expected smtp host, got %s", cfg.SMTPHost)
	}

	if !cfg.SMTPSecure {
		t.Error("expected SMTP_SECURE to parse as true")
	}

	// trailing slash trimmed so path joins stay predictable
	if cfg.EmailAPIURL != "https://mail.example.com" {
		t.Errorf("expected trimmed API URL, got %s", cfg.EmailAPIURL)
	}

	if cfg.SMSAPIKey != "key" {
		t.Errorf("expected sms key, got %s", cfg.SMSAPIKey)
	}

	if cfg.DedupeSameDay {
		t.Error("expected same-day dedupe disabled")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	os.Setenv("PORT", "not-a-number")
	defer os.Unsetenv("PORT")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid PORT")
	}
}
