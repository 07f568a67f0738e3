package sweep

import (
	"context"
	"html"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nattapongw/carelink/internal/db"
	"github.com/nattapongw/carelink/internal/metrics"
	"github.com/nattapongw/carelink/internal/notify"
)

// AlertStore is the write side of the alert log plus the same-day dedup
// lookup. Insert failures are audit losses, never sweep failures.
type AlertStore interface {
	InsertAlertLog(ctx context.Context, entry *db.AlertLog) error
	HasSentAlert(ctx context.Context, eventType string, subjectID uuid.UUID, day time.Time) (bool, error)
}

// EmailSender is the email delivery chain seen by the dispatcher.
type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, msg notify.Message) (string, error)
}

// SMSSender is the SMS gateway seen by the dispatcher.
type SMSSender interface {
	Configured() bool
	Send(ctx context.Context, msg notify.Message) error
}

// AlertOutcome is the per-event detail reported back to the cron caller.
type AlertOutcome struct {
	Type        string `json:"type"`
	SubjectName string `json:"subjectName"`
	Message     string `json:"message"`
	EmailSent   bool   `json:"emailSent"`
	SMSSent     bool   `json:"smsSent"`
	EmailError  string `json:"emailError,omitempty"`
	SMSError    string `json:"smsError,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
}

// Result aggregates one sweep. An event counts successful when at least
// one channel delivered; failed when it had reachable contacts and no
// channel delivered; dedup-skipped events count as processed only.
type Result struct {
	Processed  int            `json:"eventsProcessed"`
	Successful int            `json:"notificationsSent"`
	Failed     int            `json:"notificationsFailed"`
	Alerts     []AlertOutcome `json:"alerts"`
}

// Dispatcher attempts delivery of each event on every channel for which
// it carries a contact, records one alert-log row per (event, channel)
// attempt, and accumulates the sweep result in collector order.
type Dispatcher struct {
	store  AlertStore
	email  EmailSender
	sms    SMSSender
	dedupe bool
	logger *zap.Logger
}

func NewDispatcher(store AlertStore, email EmailSender, sms SMSSender, dedupe bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		email:  email,
		sms:    sms,
		dedupe: dedupe,
		logger: logger,
	}
}

// Dispatch processes the events sequentially. Channel attempts are
// independent: an email failure never blocks the SMS attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, events []*Event, today time.Time) *Result {
	result := &Result{Alerts: make([]AlertOutcome, 0, len(events))}

	for _, ev := range events {
		outcome := d.dispatchEvent(ctx, ev, today)
		result.Alerts = append(result.Alerts, outcome)
		result.Processed++

		switch {
		case outcome.EmailSent || outcome.SMSSent:
			result.Successful++
		case outcome.Skipped:
			// already notified today; neither success nor failure
		case outcome.EmailError != "" || outcome.SMSError != "":
			result.Failed++
		}
	}

	return result
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, ev *Event, today time.Time) AlertOutcome {
	outcome := AlertOutcome{
		Type:        ev.Type,
		SubjectName: ev.SubjectName,
		Message:     ev.Message,
	}

	emailRecipients := ev.EmailRecipients()
	smsRecipients := ev.SMSRecipients()

	if d.dedupe {
		sent, err := d.store.HasSentAlert(ctx, ev.Type, ev.SubjectID, today)
		if err != nil {
			d.logger.Warn("dedup lookup failed, dispatching anyway",
				zap.String("event_type", ev.Type),
				zap.String("subject_id", ev.SubjectID.String()),
				zap.Error(err),
			)
		} else if sent {
			outcome.Skipped = true
			if len(emailRecipients) > 0 {
				d.record(ctx, ev, db.ChannelEmail, db.AlertStatusSkipped, strPtr("already notified today"))
			}
			if len(smsRecipients) > 0 {
				d.record(ctx, ev, db.ChannelSMS, db.AlertStatusSkipped, strPtr("already notified today"))
			}
			return outcome
		}
	}

	if len(emailRecipients) > 0 {
		outcome.EmailSent, outcome.EmailError = d.dispatchEmail(ctx, ev, emailRecipients)
	}

	if len(smsRecipients) > 0 {
		outcome.SMSSent, outcome.SMSError = d.dispatchSMS(ctx, ev, smsRecipients)
	}

	return outcome
}

// dispatchEmail tries every email contact on the event. The channel is
// sent when at least one recipient accepted; a partial failure is noted
// on the audit row but not reported as a channel error.
func (d *Dispatcher) dispatchEmail(ctx context.Context, ev *Event, recipients []db.Contact) (bool, string) {
	if !d.email.Configured() {
		d.record(ctx, ev, db.ChannelEmail, db.AlertStatusSkipped, strPtr(notify.ErrNotConfigured.Error()))
		metrics.RecordNotification(db.ChannelEmail, db.AlertStatusSkipped)
		return false, notify.ErrNotConfigured.Error()
	}

	sent := false
	var lastErr string

	for _, rcpt := range recipients {
		provider, err := d.email.Send(ctx, notify.Message{
			RecipientName:  rcpt.Name,
			RecipientEmail: rcpt.Email,
			Subject:        subjectFor(ev),
			Text:           ev.Message,
			HTML:           "<p>" + html.EscapeString(ev.Message) + "</p>",
		})
		if err != nil {
			lastErr = err.Error()
			d.logger.Warn("email delivery failed",
				zap.String("event_type", ev.Type),
				zap.String("to", rcpt.Email),
				zap.Error(err),
			)
			continue
		}

		sent = true
		d.logger.Info("email delivered",
			zap.String("event_type", ev.Type),
			zap.String("to", rcpt.Email),
			zap.String("provider", provider),
		)
	}

	if sent {
		d.record(ctx, ev, db.ChannelEmail, db.AlertStatusSent, strPtr(lastErr))
		metrics.RecordNotification(db.ChannelEmail, db.AlertStatusSent)
		return true, ""
	}

	d.record(ctx, ev, db.ChannelEmail, db.AlertStatusFailed, strPtr(lastErr))
	metrics.RecordNotification(db.ChannelEmail, db.AlertStatusFailed)
	return false, lastErr
}

func (d *Dispatcher) dispatchSMS(ctx context.Context, ev *Event, recipients []db.Contact) (bool, string) {
	if !d.sms.Configured() {
		d.record(ctx, ev, db.ChannelSMS, db.AlertStatusSkipped, strPtr(notify.ErrNotConfigured.Error()))
		metrics.RecordNotification(db.ChannelSMS, db.AlertStatusSkipped)
		return false, notify.ErrNotConfigured.Error()
	}

	sent := false
	var lastErr string

	for _, rcpt := range recipients {
		err := d.sms.Send(ctx, notify.Message{
			RecipientName:  rcpt.Name,
			RecipientPhone: rcpt.Phone,
			Text:           ev.Message,
		})
		if err != nil {
			lastErr = err.Error()
			d.logger.Warn("sms delivery failed",
				zap.String("event_type", ev.Type),
				zap.String("to", rcpt.Phone),
				zap.Error(err),
			)
			continue
		}

		sent = true
		d.logger.Info("sms delivered",
			zap.String("event_type", ev.Type),
			zap.String("to", rcpt.Phone),
		)
	}

	if sent {
		d.record(ctx, ev, db.ChannelSMS, db.AlertStatusSent, strPtr(lastErr))
		metrics.RecordNotification(db.ChannelSMS, db.AlertStatusSent)
		return true, ""
	}

	d.record(ctx, ev, db.ChannelSMS, db.AlertStatusFailed, strPtr(lastErr))
	metrics.RecordNotification(db.ChannelSMS, db.AlertStatusFailed)
	return false, lastErr
}

// record appends one audit row. The alert log is best-effort: a failed
// insert is logged and swallowed so it can never abort the sweep.
func (d *Dispatcher) record(ctx context.Context, ev *Event, channel, status string, errText *string) {
	entry := &db.AlertLog{
		EventType:   ev.Type,
		SubjectID:   ev.SubjectID,
		SubjectName: ev.SubjectName,
		Message:     ev.Message,
		Channel:     channel,
		Status:      status,
		Error:       errText,
	}

	if err := d.store.InsertAlertLog(ctx, entry); err != nil {
		d.logger.Error("failed to write alert log",
			zap.String("event_type", ev.Type),
			zap.String("channel", channel),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

func subjectFor(ev *Event) string {
	switch ev.Type {
	case EventBirthday:
		return "Birthday today: " + ev.SubjectName
	case EventAnniversary:
		return "Care anniversary: " + ev.SubjectName
	case EventAppointmentReminder:
		return "Appointment reminder: " + ev.SubjectName
	case EventActivityReminder:
		return "Activity reminder: " + ev.SubjectName
	case EventMissingLogWarning:
		return "Missing daily log: " + ev.SubjectName
	default:
		return "Care notification: " + ev.SubjectName
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
