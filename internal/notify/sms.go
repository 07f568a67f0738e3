package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SMSConfig holds the bulk-SMS gateway credentials. CountryCode is the
// calling code prepended during number normalization (default "66").
type SMSConfig struct {
	BaseURL     string
	Key         string
	Secret      string
	Sender      string
	CountryCode string
	Timeout     time.Duration
}

// SMSSender delivers plaintext messages through the bulk-SMS HTTP gateway.
// There is no fallback chain for SMS.
type SMSSender struct {
	cfg    SMSConfig
	client *http.Client
	logger *zap.Logger
}

type smsSendRequest struct {
	MSISDN  []string `json:"msisdn"`
	Message string   `json:"message"`
	Sender  string   `json:"sender"`
}

type smsSendResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewSMSSender(cfg SMSConfig, logger *zap.Logger) *SMSSender {
	if cfg.CountryCode == "" {
		cfg.CountryCode = "66"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *SMSSender) Configured() bool {
	return s.cfg.BaseURL != "" && s.cfg.Key != ""
}

// Send normalizes the recipient number and posts it to the gateway.
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if msg.RecipientPhone == "" {
		return fmt.Errorf("message has no recipient phone")
	}

	number := NormalizePhone(msg.RecipientPhone, s.cfg.CountryCode)
	if number == "" {
		return fmt.Errorf("recipient phone %q has no digits", msg.RecipientPhone)
	}

	reqBody := smsSendRequest{
		MSISDN:  []string{number},
		Message: msg.Text,
		Sender:  s.cfg.Sender,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	url := s.cfg.BaseURL + "/sms"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.Key, s.cfg.Secret)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the gateway's own error message when it sends one.
		var gw smsSendResponse
		if err := json.Unmarshal(bodyBytes, &gw); err == nil && gw.Error != "" {
			return fmt.Errorf("sms gateway rejected message: %s", gw.Error)
		}
		return fmt.Errorf("sms gateway returned non-2xx status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	s.logger.Info("sms sent",
		zap.String("msisdn", number),
		zap.Int("status_code", resp.StatusCode),
	)

	return nil
}

// NormalizePhone converts a local phone number to international format:
// non-digits are stripped, a leading "0" is replaced with the country
// calling code, and numbers without the code get it prepended.
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	case strings.HasPrefix(digits, countryCode):
		return digits
	default:
		return countryCode + digits
	}
}
