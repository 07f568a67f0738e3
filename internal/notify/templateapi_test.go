package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestTemplateAPIProvider_SendsExpectedRequest(t *testing.T) {
	var got templateSendRequest
	var gotUser, gotPass, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewTemplateAPIProvider(TemplateAPIConfig{
		BaseURL:    server.URL,
		Key:        "api-key",
		Secret:     "api-secret",
		TemplateID: "tmpl-123",
		FromAddr:   "noreply@carelink.local",
		FromName:   "CareLink",
	}, zap.NewNop())

	err := provider.Send(context.Background(), Message{
		RecipientEmail: "guardian@example.com",
		Subject:        "Appointment reminder",
		Text:           "Khun Somchai has an appointment in 2 days",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/email/v1/send_template" {
		t.Errorf("expected send_template path, got %s", gotPath)
	}
	if gotUser != "api-key" || gotPass != "api-secret" {
		t.Errorf("expected basic auth credentials, got %s:%s", gotUser, gotPass)
	}
	if got.TemplateUUID != "tmpl-123" {
		t.Errorf("expected template_uuid tmpl-123, got %s", got.TemplateUUID)
	}
	if got.MailFrom.Email != "noreply@carelink.local" || got.MailFrom.Name != "CareLink" {
		t.Errorf("unexpected mail_from: %+v", got.MailFrom)
	}
	if len(got.MailTo) != 1 || got.MailTo[0].Email != "guardian@example.com" {
		t.Errorf("unexpected mail_to: %+v", got.MailTo)
	}
	if got.Payload.Message == "" || got.Payload.Title != "Appointment reminder" {
		t.Errorf("unexpected payload: %+v", got.Payload)
	}
}

func TestTemplateAPIProvider_Non2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewTemplateAPIProvider(TemplateAPIConfig{
		BaseURL: server.URL,
		Key:     "api-key",
	}, zap.NewNop())

	err := provider.Send(context.Background(), Message{RecipientEmail: "guardian@example.com"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestTemplateAPIProvider_Unconfigured(t *testing.T) {
	provider := NewTemplateAPIProvider(TemplateAPIConfig{}, zap.NewNop())

	if provider.Configured() {
		t.Error("provider without base URL must report unconfigured")
	}

	err := provider.Send(context.Background(), Message{RecipientEmail: "guardian@example.com"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got: %v", err)
	}
}
