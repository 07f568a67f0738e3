package db

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a notification recipient attached to a profile.
// Email and phone are both optional; a contact with neither is unreachable.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Reachable reports whether the contact can be notified on any channel.
func (c Contact) Reachable() bool {
	return c.Email != "" || c.Phone != ""
}

// Profile is the read model of an elder-care profile, reduced to the
// fields the sweep needs. The CRUD application owns the full schema.
type Profile struct {
	ID           uuid.UUID  `json:"id"`
	DisplayName  string     `json:"display_name"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	Coordinator  Contact    `json:"coordinator"`
	Guardian     Contact    `json:"guardian"`
	Active       bool       `json:"active"`
}

// Appointment is an upcoming appointment with its reminder window.
type Appointment struct {
	ID               uuid.UUID `json:"id"`
	ProfileID        uuid.UUID `json:"profile_id"`
	ProfileName      string    `json:"profile_name"`
	Title            string    `json:"title"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	RemindDaysBefore int       `json:"remind_days_before"`
	Completed        bool      `json:"completed"`
	Coordinator      Contact   `json:"coordinator"`
	Guardian         Contact   `json:"guardian"`
}

// Activity is a recurring care activity; NextOccurrence is maintained
// by the scheduling side of the application.
type Activity struct {
	ID             uuid.UUID `json:"id"`
	ProfileID      uuid.UUID `json:"profile_id"`
	ProfileName    string    `json:"profile_name"`
	Title          string    `json:"title"`
	NextOccurrence time.Time `json:"next_occurrence"`
	Active         bool      `json:"active"`
	Coordinator    Contact   `json:"coordinator"`
	Guardian       Contact   `json:"guardian"`
}

// Alert log status constants
const (
	AlertStatusSent    = "sent"
	AlertStatusFailed  = "failed"
	AlertStatusSkipped = "skipped"
)

// Channel constants
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// AlertLog is one row of the durable audit trail: exactly one delivery
// attempt outcome per (event, channel). Never mutated after insert.
type AlertLog struct {
	ID          uuid.UUID `json:"id"`
	EventType   string    `json:"event_type"`
	SubjectID   uuid.UUID `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	Message     string    `json:"message"`
	Channel     string    `json:"channel"`
	Status      string    `json:"status"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
