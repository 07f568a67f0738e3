// Package sweep implements the daily notification sweep: collect due
// events from the care store, dispatch them over email and SMS, and
// record every attempt in the alert log.
package sweep

import (
	"github.com/google/uuid"

	"github.com/nattapongw/carelink/internal/db"
)

// Event type constants
const (
	EventBirthday            = "birthday"
	EventAnniversary         = "anniversary"
	EventAppointmentReminder = "appointment_reminder"
	EventActivityReminder    = "activity_reminder"
	EventMissingLogWarning   = "missing_log_warning"
)

// Event is one notification-worthy occurrence detected during a sweep.
// Events live in memory for the duration of a single sweep and are never
// persisted; the alert log records their delivery outcomes instead.
type Event struct {
	Type        string
	SubjectID   uuid.UUID
	SubjectName string
	Message     string
	// Value carries the per-type numeric payload: age for birthdays,
	// years for anniversaries, reminder window for appointments and
	// days overdue for missing-log warnings.
	Value    int
	Contacts []db.Contact
}

// EmailRecipients returns the contacts reachable by email.
func (e *Event) EmailRecipients() []db.Contact {
	var out []db.Contact
	for _, c := range e.Contacts {
		if c.Email != "" {
			out = append(out, c)
		}
	}
	return out
}

// SMSRecipients returns the contacts reachable by phone.
func (e *Event) SMSRecipients() []db.Contact {
	var out []db.Contact
	for _, c := range e.Contacts {
		if c.Phone != "" {
			out = append(out, c)
		}
	}
	return out
}
