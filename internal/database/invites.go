package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CreateInviteParams struct {
	Code             string
	PatientProfileID uuid.UUID
	ExpiresAt        time.Time
}

func (db *Database) CreateInvite(ctx context.Context, params CreateInviteParams) (CaregiverInvite, error) {
	invite := CaregiverInvite{
		ID:               uuid.New(),
		Code:             params.Code,
		PatientProfileID: params.PatientProfileID,
		ExpiresAt:        params.ExpiresAt,
		Used:             false,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_caregiver_invite (id, code, patient_profile_id, expires_at, used, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		invite.ID, invite.Code, invite.PatientProfileID, invite.ExpiresAt, invite.Used, invite.CreatedAt, invite.UpdatedAt); err != nil {
		return invite, fmt.Errorf("database: failed to insert caregiver invite (profile_id=%s): %w", invite.PatientProfileID, err)
	}
	return invite, nil
}

func (db *Database) ListInvitesByProfileID(ctx context.Context, profileID uuid.UUID) ([]CaregiverInvite, error) {
	var invites []CaregiverInvite

	rows, err := db.Pool.Query(ctx, `SELECT id, code, patient_profile_id, expires_at, used, created_at, updated_at FROM tbl_caregiver_invite WHERE patient_profile_id = $1 ORDER BY created_at DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list caregiver invites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var invite CaregiverInvite
		if err := rows.Scan(&invite.ID, &invite.Code, &invite.PatientProfileID, &invite.ExpiresAt, &invite.Used, &invite.CreatedAt, &invite.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan caregiver invite: %w", err)
		}
		invites = append(invites, invite)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate caregiver invites: %w", err)
	}

	return invites, nil
}

type RedeemInviteParams struct {
	Code        string
	CaregiverID uuid.UUID
	Level       PermissionLevel
	Now         time.Time
}

// RedeemInvite marks the invite used and grants the caregiver a permission on
// the invite's profile, all inside one transaction. The conditional update on
// the used flag makes concurrent redemptions of the same code resolve to a
// single winner; every other caller gets ErrInviteNotRedeemable.
func (db *Database) RedeemInvite(ctx context.Context, params RedeemInviteParams) (Permission, error) {
	var permission Permission

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return permission, fmt.Errorf("database: failed to begin redeem transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var invite CaregiverInvite
	err = tx.QueryRow(ctx, `SELECT id, patient_profile_id FROM tbl_caregiver_invite WHERE code = $1`, params.Code).Scan(&invite.ID, &invite.PatientProfileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return permission, ErrInviteNotFound
		}
		return permission, fmt.Errorf("database: failed to scan caregiver invite: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE tbl_caregiver_invite SET used = TRUE, updated_at = $3 WHERE id = $1 AND NOT used AND expires_at > $2`,
		invite.ID, params.Now, params.Now)
	if err != nil {
		return permission, fmt.Errorf("database: failed to mark caregiver invite used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return permission, ErrInviteNotRedeemable
	}

	permission = Permission{
		ID:               uuid.New(),
		PatientProfileID: invite.PatientProfileID,
		CaregiverID:      params.CaregiverID,
		Level:            params.Level,
		CreatedAt:        params.Now,
		UpdatedAt:        params.Now,
	}

	// A caregiver redeeming a second invite for the same profile keeps the
	// level they already hold.
	err = tx.QueryRow(ctx, `INSERT INTO tbl_permission (id, patient_profile_id, caregiver_id, level, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (patient_profile_id, caregiver_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING id, level, created_at`,
		permission.ID, permission.PatientProfileID, permission.CaregiverID, permission.Level, permission.CreatedAt, permission.UpdatedAt).
		Scan(&permission.ID, &permission.Level, &permission.CreatedAt)
	if err != nil {
		return permission, fmt.Errorf("database: failed to upsert permission: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return permission, fmt.Errorf("database: failed to commit redeem transaction: %w", err)
	}
	return permission, nil
}
