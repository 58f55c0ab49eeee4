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

type CreateProfileParams struct {
	UserID           uuid.UUID
	FullName         string
	BirthDate        util.Optional[time.Time]
	BloodType        util.Optional[string]
	Allergies        util.Optional[string]
	EmergencyContact util.Optional[string]
}

func (db *Database) CreateProfile(ctx context.Context, params CreateProfileParams) (PatientProfile, error) {
	profile := PatientProfile{
		ID:               uuid.New(),
		UserID:           params.UserID,
		FullName:         params.FullName,
		BirthDate:        params.BirthDate,
		BloodType:        params.BloodType,
		Allergies:        params.Allergies,
		EmergencyContact: params.EmergencyContact,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_patient_profile (id, user_id, full_name, birth_date, blood_type, allergies, emergency_contact, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		profile.ID, profile.UserID, profile.FullName, profile.BirthDate, profile.BloodType, profile.Allergies, profile.EmergencyContact, profile.CreatedAt, profile.UpdatedAt); err != nil {
		return profile, fmt.Errorf("database: failed to insert patient profile (user_id=%s): %w", profile.UserID, err)
	}
	return profile, nil
}

const profileColumns = `id, user_id, full_name, birth_date, blood_type, allergies, emergency_contact, created_at, updated_at`

func scanProfile(row pgx.Row) (PatientProfile, error) {
	var profile PatientProfile
	err := row.Scan(&profile.ID, &profile.UserID, &profile.FullName, &profile.BirthDate, &profile.BloodType, &profile.Allergies, &profile.EmergencyContact, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrProfileNotFound
		}
		return profile, fmt.Errorf("database: failed to scan patient profile: %w", err)
	}
	return profile, nil
}

func (db *Database) GetProfileByID(ctx context.Context, id uuid.UUID) (PatientProfile, error) {
	return scanProfile(db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM tbl_patient_profile WHERE id = $1`, id))
}

func (db *Database) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (PatientProfile, error) {
	return scanProfile(db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM tbl_patient_profile WHERE user_id = $1`, userID))
}

type UpdateProfileParams struct {
	FullName         string
	BirthDate        util.Optional[time.Time]
	BloodType        util.Optional[string]
	Allergies        util.Optional[string]
	EmergencyContact util.Optional[string]
}

func (db *Database) UpdateProfile(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (PatientProfile, error) {
	row := db.Pool.QueryRow(ctx, `UPDATE tbl_patient_profile SET full_name = $2, birth_date = $3, blood_type = $4, allergies = $5, emergency_contact = $6, updated_at = $7 WHERE id = $1 RETURNING `+profileColumns,
		id, params.FullName, params.BirthDate, params.BloodType, params.Allergies, params.EmergencyContact, time.Now().UTC())
	return scanProfile(row)
}
