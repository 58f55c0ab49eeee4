package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recuerdamed/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const appointmentColumns = `id, patient_profile_id, title, location, specialist, scheduled_at, notes, created_at, updated_at`

type CreateAppointmentParams struct {
	PatientProfileID uuid.UUID
	Title            string
	Location         util.Optional[string]
	Specialist       util.Optional[string]
	ScheduledAt      time.Time
	Notes            util.Optional[string]
}

func (db *Database) CreateAppointment(ctx context.Context, params CreateAppointmentParams) (Appointment, error) {
	appointment := Appointment{
		ID:               uuid.New(),
		PatientProfileID: params.PatientProfileID,
		Title:            params.Title,
		Location:         params.Location,
		Specialist:       params.Specialist,
		ScheduledAt:      params.ScheduledAt,
		Notes:            params.Notes,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_appointment (`+appointmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		appointment.ID, appointment.PatientProfileID, appointment.Title, appointment.Location, appointment.Specialist, appointment.ScheduledAt, appointment.Notes, appointment.CreatedAt, appointment.UpdatedAt); err != nil {
		return appointment, fmt.Errorf("database: failed to insert appointment (profile_id=%s): %w", appointment.PatientProfileID, err)
	}
	return appointment, nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var appointment Appointment
	err := row.Scan(&appointment.ID, &appointment.PatientProfileID, &appointment.Title, &appointment.Location, &appointment.Specialist, &appointment.ScheduledAt, &appointment.Notes, &appointment.CreatedAt, &appointment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appointment, ErrAppointmentNotFound
		}
		return appointment, fmt.Errorf("database: failed to scan appointment: %w", err)
	}
	return appointment, nil
}

func (db *Database) GetAppointment(ctx context.Context, profileID, id uuid.UUID) (Appointment, error) {
	return scanAppointment(db.Pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM tbl_appointment WHERE id = $1 AND patient_profile_id = $2`, id, profileID))
}

func (db *Database) ListAppointmentsByProfileID(ctx context.Context, profileID uuid.UUID) ([]Appointment, error) {
	var appointments []Appointment

	rows, err := db.Pool.Query(ctx, `SELECT `+appointmentColumns+` FROM tbl_appointment WHERE patient_profile_id = $1 ORDER BY scheduled_at`, profileID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list appointments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate appointments: %w", err)
	}

	return appointments, nil
}

// ListAppointmentsBetween returns the profile's appointments scheduled inside
// [from, to), ordered by time. Used by the schedule view.
func (db *Database) ListAppointmentsBetween(ctx context.Context, profileID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	var appointments []Appointment

	rows, err := db.Pool.Query(ctx, `SELECT `+appointmentColumns+` FROM tbl_appointment WHERE patient_profile_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 ORDER BY scheduled_at`, profileID, from, to)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list appointments in range: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate appointments: %w", err)
	}

	return appointments, nil
}

type UpdateAppointmentParams struct {
	Title       string
	Location    util.Optional[string]
	Specialist  util.Optional[string]
	ScheduledAt time.Time
	Notes       util.Optional[string]
}

func (db *Database) UpdateAppointment(ctx context.Context, profileID, id uuid.UUID, params UpdateAppointmentParams) (Appointment, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_appointment SET title = $3, location = $4, specialist = $5, scheduled_at = $6, notes = $7, updated_at = $8 WHERE id = $1 AND patient_profile_id = $2 RETURNING `+appointmentColumns,
		id, profileID, params.Title, params.Location, params.Specialist, params.ScheduledAt, params.Notes, time.Now().UTC())
	return scanAppointment(row)
}

func (db *Database) DeleteAppointment(ctx context.Context, profileID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_appointment WHERE id = $1 AND patient_profile_id = $2`, id, profileID)
	if err != nil {
		return fmt.Errorf("database: failed to delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
