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

const medicationColumns = `id, patient_profile_id, name, dosage, frequency, schedule_times, start_date, end_date, notes, active, created_at, updated_at`

type CreateMedicationParams struct {
	PatientProfileID uuid.UUID
	Name             string
	Dosage           string
	Frequency        string
	ScheduleTimes    []string
	StartDate        time.Time
	EndDate          util.Optional[time.Time]
	Notes            util.Optional[string]
	Active           bool
}

func (db *Database) CreateMedication(ctx context.Context, params CreateMedicationParams) (Medication, error) {
	medication := Medication{
		ID:               uuid.New(),
		PatientProfileID: params.PatientProfileID,
		Name:             params.Name,
		Dosage:           params.Dosage,
		Frequency:        params.Frequency,
		ScheduleTimes:    params.ScheduleTimes,
		StartDate:        params.StartDate,
		EndDate:          params.EndDate,
		Notes:            params.Notes,
		Active:           params.Active,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_medication (`+medicationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		medication.ID, medication.PatientProfileID, medication.Name, medication.Dosage, medication.Frequency, medication.ScheduleTimes, medication.StartDate, medication.EndDate, medication.Notes, medication.Active, medication.CreatedAt, medication.UpdatedAt); err != nil {
		return medication, fmt.Errorf("database: failed to insert medication (profile_id=%s): %w", medication.PatientProfileID, err)
	}
	return medication, nil
}

func scanMedication(row pgx.Row) (Medication, error) {
	var medication Medication
	err := row.Scan(&medication.ID, &medication.PatientProfileID, &medication.Name, &medication.Dosage, &medication.Frequency, &medication.ScheduleTimes, &medication.StartDate, &medication.EndDate, &medication.Notes, &medication.Active, &medication.CreatedAt, &medication.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return medication, ErrMedicationNotFound
		}
		return medication, fmt.Errorf("database: failed to scan medication: %w", err)
	}
	return medication, nil
}

func (db *Database) GetMedication(ctx context.Context, profileID, id uuid.UUID) (Medication, error) {
	return scanMedication(db.Pool.QueryRow(ctx, `SELECT `+medicationColumns+` FROM tbl_medication WHERE id = $1 AND patient_profile_id = $2`, id, profileID))
}

func (db *Database) ListMedicationsByProfileID(ctx context.Context, profileID uuid.UUID) ([]Medication, error) {
	var medications []Medication

	rows, err := db.Pool.Query(ctx, `SELECT `+medicationColumns+` FROM tbl_medication WHERE patient_profile_id = $1 ORDER BY created_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list medications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		medication, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		medications = append(medications, medication)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate medications: %w", err)
	}

	return medications, nil
}

type UpdateMedicationParams struct {
	Name          string
	Dosage        string
	Frequency     string
	ScheduleTimes []string
	StartDate     time.Time
	EndDate       util.Optional[time.Time]
	Notes         util.Optional[string]
	Active        bool
}

func (db *Database) UpdateMedication(ctx context.Context, profileID, id uuid.UUID, params UpdateMedicationParams) (Medication, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_medication SET name = $3, dosage = $4, frequency = $5, schedule_times = $6, start_date = $7, end_date = $8, notes = $9, active = $10, updated_at = $11 WHERE id = $1 AND patient_profile_id = $2 RETURNING `+medicationColumns,
		id, profileID, params.Name, params.Dosage, params.Frequency, params.ScheduleTimes, params.StartDate, params.EndDate, params.Notes, params.Active, time.Now().UTC())
	return scanMedication(row)
}

func (db *Database) DeleteMedication(ctx context.Context, profileID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_medication WHERE id = $1 AND patient_profile_id = $2`, id, profileID)
	if err != nil {
		return fmt.Errorf("database: failed to delete medication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMedicationNotFound
	}
	return nil
}
