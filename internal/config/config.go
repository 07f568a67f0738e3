package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (sweep lease + rate limiting; optional)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// SMTP relay (primary email provider)
	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPSecure bool // implicit TLS when true, STARTTLS otherwise

	// Hosted template-email API (email fallback provider)
	EmailAPIURL     string
	EmailAPIKey     string
	EmailAPISecret  string
	EmailTemplateID string
	EmailFromAddr   string
	EmailFromName   string

	// Bulk SMS gateway
	SMSAPIURL      string
	SMSAPIKey      string
	SMSAPISecret   string
	SMSSender      string
	SMSCountryCode string

	// Sweep behavior
	CronSecret     string
	LogStaleDays   int  // daily-log staleness threshold before a warning fires
	DedupeSameDay  bool // skip events already sent today per the alert log
	HTTPTimeoutSec int  // timeout for each outbound provider call
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:     8080,
		LogLevel: "info",
		Env:      "development",

		// Local postgres defaults
		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "carelink",
		DBPassword: "",
		DBName:     "carelink",
		DBSSLMode:  "disable",

		// Redis defaults
		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		SMTPPort: 587,

		EmailFromAddr: "noreply@carelink.local",
		EmailFromName: "CareLink",

		SMSCountryCode: "66",

		LogStaleDays:   2,
		DedupeSameDay:  true,
		HTTPTimeoutSec: 15,
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	// SMTP config
	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.SMTPHost = host
	}

	if port := os.Getenv("SMTP_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
		}
		cfg.SMTPPort = p
	}

	if user := os.Getenv("SMTP_USER"); user != "" {
		cfg.SMTPUser = user
	}

	if pass := os.Getenv("SMTP_PASS"); pass != "" {
		cfg.SMTPPass = pass
	}

	if secure := os.Getenv("SMTP_SECURE"); secure != "" {
		cfg.SMTPSecure = parseBool(secure)
	}

	// Template-email API config
	if url := os.Getenv("EMAIL_API_URL"); url != "" {
		cfg.EmailAPIURL = strings.TrimRight(url, "/")
	}

	if key := os.Getenv("EMAIL_API_KEY"); key != "" {
		cfg.EmailAPIKey = key
	}

	if secret := os.Getenv("EMAIL_API_SECRET"); secret != "" {
		cfg.EmailAPISecret = secret
	}

	if id := os.Getenv("EMAIL_TEMPLATE_ID"); id != "" {
		cfg.EmailTemplateID = id
	}

	if addr := os.Getenv("EMAIL_FROM_ADDRESS"); addr != "" {
		cfg.EmailFromAddr = addr
	}

	if name := os.Getenv("EMAIL_FROM_NAME"); name != "" {
		cfg.EmailFromName = name
	}

	// SMS gateway config
	if url := os.Getenv("SMS_API_URL"); url != "" {
		cfg.SMSAPIURL = strings.TrimRight(url, "/")
	}

	if key := os.Getenv("SMS_API_KEY"); key != "" {
		cfg.SMSAPIKey = key
	}

	if secret := os.Getenv("SMS_API_SECRET"); secret != "" {
		cfg.SMSAPISecret = secret
	}

	if sender := os.Getenv("SMS_SENDER"); sender != "" {
		cfg.SMSSender = sender
	}

	if code := os.Getenv("SMS_COUNTRY_CODE"); code != "" {
		cfg.SMSCountryCode = code
	}

	// Sweep config
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		cfg.CronSecret = secret
	}

	if days := os.Getenv("LOG_STALE_DAYS"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_STALE_DAYS: %w", err)
		}
		cfg.LogStaleDays = d
	}

	if dedupe := os.Getenv("DEDUPE_SAME_DAY"); dedupe != "" {
		cfg.DedupeSameDay = parseBool(dedupe)
	}

	if timeout := os.Getenv("HTTP_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeoutSec = t
	}

	return cfg, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
