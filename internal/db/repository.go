package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository handles database operations for the care store and alert log.
// The care store tables are read-only from this service; only alert_logs
// is written.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new care store repository
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListActiveProfiles returns every active profile with its recipient contacts.
func (r *Repository) ListActiveProfiles(ctx context.Context) ([]*Profile, error) {
	query := `
		SELECT
			id, display_name, date_of_birth, registered_at,
			coordinator_name, coordinator_email, coordinator_phone,
			guardian_name, guardian_email, guardian_phone
		FROM profiles
		WHERE active = TRUE
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{Active: true}
		var coordEmail, coordPhone, guardEmail, guardPhone *string
		if err := rows.Scan(
			&p.ID,
			&p.DisplayName,
			&p.DateOfBirth,
			&p.RegisteredAt,
			&p.Coordinator.Name,
			&coordEmail,
			&coordPhone,
			&p.Guardian.Name,
			&guardEmail,
			&guardPhone,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Coordinator.Email = deref(coordEmail)
		p.Coordinator.Phone = deref(coordPhone)
		p.Guardian.Email = deref(guardEmail)
		p.Guardian.Phone = deref(guardPhone)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}

// ListOpenAppointments returns appointments that are not yet completed,
// joined with the owning profile's contacts.
func (r *Repository) ListOpenAppointments(ctx context.Context) ([]*Appointment, error) {
	query := `
		SELECT
			a.id, a.profile_id, p.display_name, a.title,
			a.scheduled_at, a.remind_days_before,
			p.coordinator_name, p.coordinator_email, p.coordinator_phone,
			p.guardian_name, p.guardian_email, p.guardian_phone
		FROM appointments a
		JOIN profiles p ON p.id = a.profile_id
		WHERE a.completed = FALSE AND p.active = TRUE
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a := &Appointment{}
		var coordEmail, coordPhone, guardEmail, guardPhone *string
		if err := rows.Scan(
			&a.ID,
			&a.ProfileID,
			&a.ProfileName,
			&a.Title,
			&a.ScheduledAt,
			&a.RemindDaysBefore,
			&a.Coordinator.Name,
			&coordEmail,
			&coordPhone,
			&a.Guardian.Name,
			&guardEmail,
			&guardPhone,
		); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		a.Coordinator.Email = deref(coordEmail)
		a.Coordinator.Phone = deref(coordPhone)
		a.Guardian.Email = deref(guardEmail)
		a.Guardian.Phone = deref(guardPhone)
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return appts, nil
}

// ListActiveActivities returns active recurring activities with contacts.
func (r *Repository) ListActiveActivities(ctx context.Context) ([]*Activity, error) {
	query := `
		SELECT
			a.id, a.profile_id, p.display_name, a.title, a.next_occurrence,
			p.coordinator_name, p.coordinator_email, p.coordinator_phone,
			p.guardian_name, p.guardian_email, p.guardian_phone
		FROM activities a
		JOIN profiles p ON p.id = a.profile_id
		WHERE a.active = TRUE AND p.active = TRUE
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		a := &Activity{Active: true}
		var coordEmail, coordPhone, guardEmail, guardPhone *string
		if err := rows.Scan(
			&a.ID,
			&a.ProfileID,
			&a.ProfileName,
			&a.Title,
			&a.NextOccurrence,
			&a.Coordinator.Name,
			&coordEmail,
			&coordPhone,
			&a.Guardian.Name,
			&guardEmail,
			&guardPhone,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Coordinator.Email = deref(coordEmail)
		a.Coordinator.Phone = deref(coordPhone)
		a.Guardian.Email = deref(guardEmail)
		a.Guardian.Phone = deref(guardPhone)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}

	return activities, nil
}

// LatestLogDates returns, per profile, the date of its most recent daily log.
// Profiles with no logs at all are absent from the map.
func (r *Repository) LatestLogDates(ctx context.Context) (map[uuid.UUID]time.Time, error) {
	query := `
		SELECT profile_id, MAX(logged_at)
		FROM daily_logs
		GROUP BY profile_id
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query daily logs: %w", err)
	}
	defer rows.Close()

	latest := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		latest[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily logs: %w", err)
	}

	return latest, nil
}

// InsertAlertLog appends one attempt outcome to the audit trail.
func (r *Repository) InsertAlertLog(ctx context.Context, entry *AlertLog) error {
	query := `
		INSERT INTO alert_logs (
			id, event_type, subject_id, subject_name, message,
			channel, status, error
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		entry.ID,
		entry.EventType,
		entry.SubjectID,
		entry.SubjectName,
		entry.Message,
		entry.Channel,
		entry.Status,
		entry.Error,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert alert log: %w", err)
	}

	return nil
}

// HasSentAlert reports whether a SENT entry already exists for the given
// event and subject on the given calendar day.
func (r *Repository) HasSentAlert(ctx context.Context, eventType string, subjectID uuid.UUID, day time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alert_logs
			WHERE event_type = $1
			  AND subject_id = $2
			  AND status = $3
			  AND created_at >= $4
			  AND created_at < $5
		)
	`

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var exists bool
	err := r.db.Pool().QueryRow(ctx, query, eventType, subjectID, AlertStatusSent, dayStart, dayEnd).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query alert log: %w", err)
	}

	return exists, nil
}

// ListAlertLogs returns the newest audit entries first.
func (r *Repository) ListAlertLogs(ctx context.Context, limit, offset int) ([]*AlertLog, error) {
	query := `
		SELECT id, event_type, subject_id, subject_name, message,
		       channel, status, error, created_at
		FROM alert_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query alert logs: %w", err)
	}
	defer rows.Close()

	var entries []*AlertLog
	for rows.Next() {
		e := &AlertLog{}
		if err := rows.Scan(
			&e.ID,
			&e.EventType,
			&e.SubjectID,
			&e.SubjectName,
			&e.Message,
			&e.Channel,
			&e.Status,
			&e.Error,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert logs: %w", err)
	}

	return entries, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
