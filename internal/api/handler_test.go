package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/nattapongw/carelink/internal/db"
	"github.com/nattapongw/carelink/internal/redis"
	"github.com/nattapongw/carelink/internal/sweep"
)

// mockRunner scripts the sweep outcome.
type mockRunner struct {
	result *sweep.Result
	err    error
	calls  int
}

func (m *mockRunner) Run(ctx context.Context) (*sweep.Result, error) {
	m.calls++
	return m.result, m.err
}

// mockLogReader returns canned alert-log entries.
type mockLogReader struct {
	entries []*db.AlertLog
	err     error
}

func (m *mockLogReader) ListAlertLogs(ctx context.Context, limit, offset int) ([]*db.AlertLog, error) {
	return m.entries, m.err
}

func newTestHandler(runner *mockRunner, secret string) *Handler {
	return NewHandler(zap.NewNop(), runner, &mockLogReader{}, Channels{Email: true, SMS: false}, secret)
}

func TestDailyCheck_Success(t *testing.T) {
	runner := &mockRunner{
		result: &sweep.Result{
			Processed:  3,
			Successful: 2,
			Failed:     1,
			Alerts: []sweep.AlertOutcome{
				{Type: "birthday", SubjectName: "Somchai", EmailSent: true},
			},
		},
	}
	handler := newTestHandler(runner, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/cron/daily-check?secret=s3cret", nil)
	w := httptest.NewRecorder()
	handler.DailyCheck(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			EventsProcessed     int `json:"eventsProcessed"`
			NotificationsSent   int `json:"notificationsSent"`
			NotificationsFailed int `json:"notificationsFailed"`
			Channels            struct {
				Email bool `json:"email"`
				SMS   bool `json:"sms"`
			} `json:"channels"`
			Alerts []sweep.AlertOutcome `json:"alerts"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Data.EventsProcessed != 3 || resp.Data.NotificationsSent != 2 || resp.Data.NotificationsFailed != 1 {
		t.Errorf("unexpected counts: %+v", resp.Data)
	}
	if !resp.Data.Channels.Email || resp.Data.Channels.SMS {
		t.Errorf("unexpected channels: %+v", resp.Data.Channels)
	}
	if len(resp.Data.Alerts) != 1 || resp.Data.Alerts[0].SubjectName != "Somchai" {
		t.Errorf("unexpected alerts: %+v", resp.Data.Alerts)
	}
}

func TestDailyCheck_PostIsAccepted(t *testing.T) {
	runner := &mockRunner{result: &sweep.Result{}}
	handler := newTestHandler(runner, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/cron/daily-check?secret=s3cret", nil)
	w := httptest.NewRecorder()
	handler.DailyCheck(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for POST, got %d", w.Code)
	}
	if runner.calls != 1 {
		t.Errorf("expected one sweep, got %d", runner.calls)
	}
}

func TestDailyCheck_WrongSecret(t *testing.T) {
	runner := &mockRunner{result: &sweep.Result{}}
	handler := newTestHandler(runner, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/cron/daily-check?secret=wrong", nil)
	w := httptest.NewRecorder()
	handler.DailyCheck(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if runner.calls != 0 {
		t.Error("sweep must not run on auth failure")
	}
}

func TestDailyCheck_MissingSecretConfig(t *testing.T) {
	runner := &mockRunner{result: &sweep.Result{}}
	handler := newTestHandler(runner, "")

	req := httptest.NewRequest(http.MethodGet, "/cron/daily-check?secret=anything", nil)
	w := httptest.NewRecorder()
	handler.DailyCheck(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unset secret, got %d", w.Code)
	}
	if runner.calls != 0 {
		t.Error("sweep must not run without a configured secret")
	}
}

func TestDailyCheck_SweepErrorIs500(t *testing.T) {
	runner := &mockRunner{err: errors.New("query profiles: connection refused")}
	handler := newTestHandler(runner, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/cron/daily-check?secret=s3cret", nil)
	w := httptest.NewRecorder()
	handler.DailyCheck(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	var resp cronResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message == "" {
		t.Error("error message must be surfaced to the caller")
	}
}

func TestDailyCheck_OverlappingSweepIs409(t *testing.T) {
	runner := &mockRunner{err: redis.ErrSweepInProgress}
	handler := newTestHandler(runner, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/cron/daily-check?secret=s3cret", nil)
	w := httptest.NewRecorder()
	handler.DailyCheck(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestListAlertLogs(t *testing.T) {
	errText := "smtp: connection refused"
	logs := &mockLogReader{
		entries: []*db.AlertLog{
			{EventType: "birthday", SubjectName: "Somchai", Channel: "email", Status: db.AlertStatusSent},
			{EventType: "missing_log_warning", SubjectName: "Malee", Channel: "sms", Status: db.AlertStatusFailed, Error: &errText},
		},
	}
	handler := NewHandler(zap.NewNop(), &mockRunner{}, logs, Channels{}, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/cron/alert-logs?secret=s3cret&limit=10", nil)
	w := httptest.NewRecorder()
	handler.ListAlertLogs(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Success bool          `json:"success"`
		Count   int           `json:"count"`
		Data    []*db.AlertLog `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Errorf("expected 2 entries, got %+v", resp)
	}
}

func TestListAlertLogs_RequiresSecret(t *testing.T) {
	handler := NewHandler(zap.NewNop(), &mockRunner{}, &mockLogReader{}, Channels{}, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/cron/alert-logs", nil)
	w := httptest.NewRecorder()
	handler.ListAlertLogs(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
