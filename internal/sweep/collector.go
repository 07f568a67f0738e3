package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nattapongw/carelink/internal/db"
)

// CareStore is the read side of the care database the collector scans.
type CareStore interface {
	ListActiveProfiles(ctx context.Context) ([]*db.Profile, error)
	ListOpenAppointments(ctx context.Context) ([]*db.Appointment, error)
	ListActiveActivities(ctx context.Context) ([]*db.Activity, error)
	LatestLogDates(ctx context.Context) (map[uuid.UUID]time.Time, error)
}

// Collector produces the list of due events for one calendar day.
// Any store error aborts the whole collect; there is no partial result.
type Collector struct {
	store        CareStore
	logStaleDays int
	logger       *zap.Logger
}

func NewCollector(store CareStore, logStaleDays int, logger *zap.Logger) *Collector {
	if logStaleDays <= 0 {
		logStaleDays = 2
	}
	return &Collector{
		store:        store,
		logStaleDays: logStaleDays,
		logger:       logger,
	}
}

// Collect gathers every due event for the given day, grouped by type:
// birthdays, anniversaries, appointment reminders, activity reminders,
// then missing-log warnings.
func (c *Collector) Collect(ctx context.Context, today time.Time) ([]*Event, error) {
	profiles, err := c.store.ListActiveProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	appointments, err := c.store.ListOpenAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	activities, err := c.store.ListActiveActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	latestLogs, err := c.store.LatestLogDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}

	var events []*Event

	for _, p := range profiles {
		if ev := c.birthdayEvent(p, today); ev != nil {
			events = append(events, ev)
		}
	}

	for _, p := range profiles {
		if ev := c.anniversaryEvent(p, today); ev != nil {
			events = append(events, ev)
		}
	}

	for _, a := range appointments {
		if ev := c.appointmentEvent(a, today); ev != nil {
			events = append(events, ev)
		}
	}

	for _, a := range activities {
		if ev := c.activityEvent(a, today); ev != nil {
			events = append(events, ev)
		}
	}

	for _, p := range profiles {
		if ev := c.missingLogEvent(p, latestLogs, today); ev != nil {
			events = append(events, ev)
		}
	}

	c.logger.Info("events collected",
		zap.Int("count", len(events)),
		zap.String("day", today.Format("2006-01-02")),
	)

	return events, nil
}

func (c *Collector) birthdayEvent(p *db.Profile, today time.Time) *Event {
	if p.DateOfBirth == nil || !sameMonthDay(*p.DateOfBirth, today) {
		return nil
	}

	age := yearsElapsed(*p.DateOfBirth, today)

	return &Event{
		Type:        EventBirthday,
		SubjectID:   p.ID,
		SubjectName: p.DisplayName,
		Message:     fmt.Sprintf("Today is %s's birthday (%d years old)", p.DisplayName, age),
		Value:       age,
		Contacts:    reachableContacts(p.Coordinator, p.Guardian),
	}
}

func (c *Collector) anniversaryEvent(p *db.Profile, today time.Time) *Event {
	if !sameMonthDay(p.RegisteredAt, today) {
		return nil
	}

	years := yearsElapsed(p.RegisteredAt, today)
	if years < 1 {
		return nil
	}

	return &Event{
		Type:        EventAnniversary,
		SubjectID:   p.ID,
		SubjectName: p.DisplayName,
		Message:     fmt.Sprintf("%s has been in our care for %d year(s) today", p.DisplayName, years),
		Value:       years,
		Contacts:    reachableContacts(p.Coordinator, p.Guardian),
	}
}

func (c *Collector) appointmentEvent(a *db.Appointment, today time.Time) *Event {
	if a.Completed {
		return nil
	}

	// Reminder fires when today + window lands exactly on the
	// appointment day; time of day is ignored.
	due := dateOnly(today).AddDate(0, 0, a.RemindDaysBefore)
	if !due.Equal(dateOnly(a.ScheduledAt)) {
		return nil
	}

	return &Event{
		Type:        EventAppointmentReminder,
		SubjectID:   a.ID,
		SubjectName: a.ProfileName,
		Message: fmt.Sprintf("%s has appointment %q on %s (in %d day(s))",
			a.ProfileName, a.Title, a.ScheduledAt.Format("2006-01-02"), a.RemindDaysBefore),
		Value:    a.RemindDaysBefore,
		Contacts: reachableContacts(a.Coordinator, a.Guardian),
	}
}

func (c *Collector) activityEvent(a *db.Activity, today time.Time) *Event {
	if !a.Active || !dateOnly(a.NextOccurrence).Equal(dateOnly(today)) {
		return nil
	}

	return &Event{
		Type:        EventActivityReminder,
		SubjectID:   a.ID,
		SubjectName: a.ProfileName,
		Message:     fmt.Sprintf("%s has activity %q scheduled today", a.ProfileName, a.Title),
		Contacts:    reachableContacts(a.Coordinator, a.Guardian),
	}
}

func (c *Collector) missingLogEvent(p *db.Profile, latest map[uuid.UUID]time.Time, today time.Time) *Event {
	// Profiles that never logged are measured from registration.
	last, ok := latest[p.ID]
	if !ok {
		last = p.RegisteredAt
	}

	overdue := daysBetween(dateOnly(last), dateOnly(today))
	if overdue < c.logStaleDays {
		return nil
	}

	return &Event{
		Type:        EventMissingLogWarning,
		SubjectID:   p.ID,
		SubjectName: p.DisplayName,
		Message:     fmt.Sprintf("No daily log recorded for %s in %d day(s)", p.DisplayName, overdue),
		Value:       overdue,
		Contacts:    reachableContacts(p.Coordinator, p.Guardian),
	}
}

func reachableContacts(contacts ...db.Contact) []db.Contact {
	var out []db.Contact
	for _, c := range contacts {
		if c.Reachable() {
			out = append(out, c)
		}
	}
	return out
}

func sameMonthDay(a, b time.Time) bool {
	return a.Month() == b.Month() && a.Day() == b.Day()
}

// yearsElapsed is calendar-aware: the year difference is reduced by one
// when the anniversary has not yet occurred this year. Never negative.
func yearsElapsed(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
