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

const treatmentColumns = `id, patient_profile_id, name, description, start_date, end_date, status, created_at, updated_at`

type CreateTreatmentParams struct {
	PatientProfileID uuid.UUID
	Name             string
	Description      util.Optional[string]
	StartDate        time.Time
	EndDate          util.Optional[time.Time]
	Status           TreatmentStatus
}

func (db *Database) CreateTreatment(ctx context.Context, params CreateTreatmentParams) (Treatment, error) {
	treatment := Treatment{
		ID:               uuid.New(),
		PatientProfileID: params.PatientProfileID,
		Name:             params.Name,
		Description:      params.Description,
		StartDate:        params.StartDate,
		EndDate:          params.EndDate,
		Status:           params.Status,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_treatment (`+treatmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		treatment.ID, treatment.PatientProfileID, treatment.Name, treatment.Description, treatment.StartDate, treatment.EndDate, treatment.Status, treatment.CreatedAt, treatment.UpdatedAt); err != nil {
		return treatment, fmt.Errorf("database: failed to insert treatment (profile_id=%s): %w", treatment.PatientProfileID, err)
	}
	return treatment, nil
}

func scanTreatment(row pgx.Row) (Treatment, error) {
	var treatment Treatment
	err := row.Scan(&treatment.ID, &treatment.PatientProfileID, &treatment.Name, &treatment.Description, &treatment.StartDate, &treatment.EndDate, &treatment.Status, &treatment.CreatedAt, &treatment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return treatment, ErrTreatmentNotFound
		}
		return treatment, fmt.Errorf("database: failed to scan treatment: %w", err)
	}
	return treatment, nil
}

func (db *Database) GetTreatment(ctx context.Context, profileID, id uuid.UUID) (Treatment, error) {
	return scanTreatment(db.Pool.QueryRow(ctx, `SELECT `+treatmentColumns+` FROM tbl_treatment WHERE id = $1 AND patient_profile_id = $2`, id, profileID))
}

func (db *Database) ListTreatmentsByProfileID(ctx context.Context, profileID uuid.UUID) ([]Treatment, error) {
	var treatments []Treatment

	rows, err := db.Pool.Query(ctx, `SELECT `+treatmentColumns+` FROM tbl_treatment WHERE patient_profile_id = $1 ORDER BY created_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list treatments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		treatment, err := scanTreatment(rows)
		if err != nil {
			return nil, err
		}
		treatments = append(treatments, treatment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate treatments: %w", err)
	}

	return treatments, nil
}

type UpdateTreatmentParams struct {
	Name        string
	Description util.Optional[string]
	StartDate   time.Time
	EndDate     util.Optional[time.Time]
	Status      TreatmentStatus
}

func (db *Database) UpdateTreatment(ctx context.Context, profileID, id uuid.UUID, params UpdateTreatmentParams) (Treatment, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_treatment SET name = $3, description = $4, start_date = $5, end_date = $6, status = $7, updated_at = $8 WHERE id = $1 AND patient_profile_id = $2 RETURNING `+treatmentColumns,
		id, profileID, params.Name, params.Description, params.StartDate, params.EndDate, params.Status, time.Now().UTC())
	return scanTreatment(row)
}

func (db *Database) DeleteTreatment(ctx context.Context, profileID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_treatment WHERE id = $1 AND patient_profile_id = $2`, id, profileID)
	if err != nil {
		return fmt.Errorf("database: failed to delete treatment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTreatmentNotFound
	}
	return nil
}
