package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nattapongw/carelink/internal/db"
	"github.com/nattapongw/carelink/internal/redis"
	"github.com/nattapongw/carelink/internal/sweep"
)

// SweepRunner runs one notification sweep.
type SweepRunner interface {
	Run(ctx context.Context) (*sweep.Result, error)
}

// AlertLogReader lists audit-trail entries for the alert-log endpoint.
type AlertLogReader interface {
	ListAlertLogs(ctx context.Context, limit, offset int) ([]*db.AlertLog, error)
}

// Channels reports which delivery channels carry usable credentials.
type Channels struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Handler holds dependencies for the cron API handlers.
type Handler struct {
	logger     *zap.Logger
	runner     SweepRunner
	logs       AlertLogReader
	channels   Channels
	cronSecret string
}

// NewHandler creates the cron API handler. cronSecret may be empty, in
// which case every trigger is rejected with a configuration error.
func NewHandler(logger *zap.Logger, runner SweepRunner, logs AlertLogReader, channels Channels, cronSecret string) *Handler {
	return &Handler{
		logger:     logger,
		runner:     runner,
		logs:       logs,
		channels:   channels,
		cronSecret: cronSecret,
	}
}

type cronData struct {
	EventsProcessed     int                  `json:"eventsProcessed"`
	NotificationsSent   int                  `json:"notificationsSent"`
	NotificationsFailed int                  `json:"notificationsFailed"`
	Channels            Channels             `json:"channels"`
	Alerts              []sweep.AlertOutcome `json:"alerts"`
}

type cronResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *cronData `json:"data,omitempty"`
}

// DailyCheck handles GET|POST /cron/daily-check. The caller always gets
// a JSON body; only failure to start the sweep yields a non-200 status.
func (h *Handler) DailyCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if status, msg := h.authorize(r); status != 0 {
		h.writeJSON(w, status, cronResponse{Success: false, Message: msg})
		return
	}

	result, err := h.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, redis.ErrSweepInProgress) {
			h.writeJSON(w, http.StatusConflict, cronResponse{
				Success: false,
				Message: "a sweep is already in progress",
			})
			return
		}

		h.logger.Error("sweep failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, cronResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	h.logger.Info("daily check completed",
		zap.Int("processed", result.Processed),
		zap.Int("sent", result.Successful),
		zap.Int("failed", result.Failed),
	)

	h.writeJSON(w, http.StatusOK, cronResponse{
		Success: true,
		Message: "daily check completed",
		Data: &cronData{
			EventsProcessed:     result.Processed,
			NotificationsSent:   result.Successful,
			NotificationsFailed: result.Failed,
			Channels:            h.channels,
			Alerts:              result.Alerts,
		},
	})
}

// ListAlertLogs handles GET /cron/alert-logs, newest entries first.
func (h *Handler) ListAlertLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if status, msg := h.authorize(r); status != 0 {
		h.writeJSON(w, status, cronResponse{Success: false, Message: msg})
		return
	}

	limit := 50
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	entries, err := h.logs.ListAlertLogs(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list alert logs", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, cronResponse{
			Success: false,
			Message: "failed to list alert logs",
		})
		return
	}

	if entries == nil {
		entries = []*db.AlertLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    entries,
		"limit":   limit,
		"offset":  offset,
		"count":   len(entries),
	})
}

// authorize validates the shared cron secret. An unset secret is a
// server misconfiguration (500), a wrong one an authorization failure (401).
func (h *Handler) authorize(r *http.Request) (int, string) {
	if h.cronSecret == "" {
		return http.StatusInternalServerError, "cron secret not configured"
	}

	secret := r.URL.Query().Get("secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) != 1 {
		return http.StatusUnauthorized, "invalid cron secret"
	}

	return 0, ""
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body cronResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
