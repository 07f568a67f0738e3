package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TemplateAPIConfig holds credentials for the hosted template-email API,
// the fallback provider behind the SMTP relay.
type TemplateAPIConfig struct {
	BaseURL    string
	Key        string
	Secret     string
	TemplateID string
	FromAddr   string
	FromName   string
	Timeout    time.Duration
}

// TemplateAPIProvider delivers email through the hosted send_template
// endpoint using Basic auth.
type TemplateAPIProvider struct {
	cfg    TemplateAPIConfig
	client *http.Client
	logger *zap.Logger
}

type mailParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type templateSendRequest struct {
	TemplateUUID string      `json:"template_uuid"`
	Subject      string      `json:"subject"`
	MailFrom     mailParty   `json:"mail_from"`
	MailTo       []mailParty `json:"mail_to"`
	Payload      struct {
		Message string `json:"message"`
		Title   string `json:"title"`
	} `json:"payload"`
}

func NewTemplateAPIProvider(cfg TemplateAPIConfig, logger *zap.Logger) *TemplateAPIProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &TemplateAPIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *TemplateAPIProvider) Name() string { return "template-api" }

func (p *TemplateAPIProvider) Configured() bool {
	return p.cfg.BaseURL != "" && p.cfg.Key != ""
}

func (p *TemplateAPIProvider) Send(ctx context.Context, msg Message) error {
	if !p.Configured() {
		return ErrNotConfigured
	}
	if msg.RecipientEmail == "" {
		return fmt.Errorf("message has no recipient email")
	}

	reqBody := templateSendRequest{
		TemplateUUID: p.cfg.TemplateID,
		Subject:      msg.Subject,
		MailFrom:     mailParty{Name: p.cfg.FromName, Email: p.cfg.FromAddr},
		MailTo:       []mailParty{{Email: msg.RecipientEmail}},
	}
	reqBody.Payload.Message = msg.Text
	reqBody.Payload.Title = msg.Subject

	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal template request: %w", err)
	}

	url := p.cfg.BaseURL + "/email/v1/send_template"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create template request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(p.cfg.Key, p.cfg.Secret)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("template api request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("template api returned non-2xx status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	p.logger.Info("email sent via template api",
		zap.String("to", msg.RecipientEmail),
		zap.Int("status_code", resp.StatusCode),
	)

	return nil
}
