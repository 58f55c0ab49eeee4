package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (db *Database) GetPermission(ctx context.Context, profileID, caregiverID uuid.UUID) (Permission, error) {
	var permission Permission
	err := db.Pool.QueryRow(ctx, `SELECT id, patient_profile_id, caregiver_id, level, created_at, updated_at FROM tbl_permission WHERE patient_profile_id = $1 AND caregiver_id = $2`,
		profileID, caregiverID).Scan(&permission.ID, &permission.PatientProfileID, &permission.CaregiverID, &permission.Level, &permission.CreatedAt, &permission.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return permission, ErrPermissionNotFound
		}
		return permission, fmt.Errorf("database: failed to scan permission: %w", err)
	}
	return permission, nil
}

func (db *Database) ListPermissionsByProfileID(ctx context.Context, profileID uuid.UUID) ([]Permission, error) {
	return db.listPermissions(ctx, `SELECT id, patient_profile_id, caregiver_id, level, created_at, updated_at FROM tbl_permission WHERE patient_profile_id = $1 ORDER BY created_at`, profileID)
}

func (db *Database) ListPermissionsByCaregiverID(ctx context.Context, caregiverID uuid.UUID) ([]Permission, error) {
	return db.listPermissions(ctx, `SELECT id, patient_profile_id, caregiver_id, level, created_at, updated_at FROM tbl_permission WHERE caregiver_id = $1 ORDER BY created_at`, caregiverID)
}

func (db *Database) listPermissions(ctx context.Context, query string, arg any) ([]Permission, error) {
	var permissions []Permission

	rows, err := db.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var permission Permission
		if err := rows.Scan(&permission.ID, &permission.PatientProfileID, &permission.CaregiverID, &permission.Level, &permission.CreatedAt, &permission.UpdatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan permission: %w", err)
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate permissions: %w", err)
	}

	return permissions, nil
}

func (db *Database) UpdatePermissionLevel(ctx context.Context, profileID, caregiverID uuid.UUID, level PermissionLevel) (Permission, error) {
	var permission Permission
	err := db.Pool.QueryRow(ctx, `UPDATE tbl_permission SET level = $3, updated_at = $4 WHERE patient_profile_id = $1 AND caregiver_id = $2 RETURNING id, patient_profile_id, caregiver_id, level, created_at, updated_at`,
		profileID, caregiverID, level, time.Now().UTC()).Scan(&permission.ID, &permission.PatientProfileID, &permission.CaregiverID, &permission.Level, &permission.CreatedAt, &permission.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return permission, ErrPermissionNotFound
		}
		return permission, fmt.Errorf("database: failed to update permission level: %w", err)
	}
	return permission, nil
}

func (db *Database) DeletePermission(ctx context.Context, profileID, caregiverID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_permission WHERE patient_profile_id = $1 AND caregiver_id = $2`, profileID, caregiverID)
	if err != nil {
		return fmt.Errorf("database: failed to delete permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}
