// Package access implements the delegation model between patients and
// caregivers: invite issuance, redemption, and every authorization decision.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recuerdamed/internal/database"
	"recuerdamed/internal/util"

	"github.com/google/uuid"
)

const (
	InviteCodeLength = 8
	InviteLifetime   = 48 * time.Hour
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrRoleMismatch     = errors.New("operation not allowed for this role")
	ErrProfileNotFound  = errors.New("patient profile not found")
	ErrInviteNotFound   = errors.New("invite not found")
	ErrInviteExpired    = errors.New("invite already used or expired")
	ErrInvalidLevel     = errors.New("invalid permission level")
)

// Identity is the authenticated caller, passed explicitly into every
// operation.
type Identity struct {
	UserID uuid.UUID
	Role   database.UserRole
}

func (i Identity) IsPatient() bool   { return i.Role == database.UserRolePatient }
func (i Identity) IsCaregiver() bool { return i.Role == database.UserRoleCaregiver }

// Store is the persistence surface the manager needs. *database.Database
// satisfies it; tests use an in-memory implementation.
type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (database.PatientProfile, error)
	CreateInvite(ctx context.Context, params database.CreateInviteParams) (database.CaregiverInvite, error)
	ListInvitesByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.CaregiverInvite, error)
	RedeemInvite(ctx context.Context, params database.RedeemInviteParams) (database.Permission, error)
	GetPermission(ctx context.Context, profileID, caregiverID uuid.UUID) (database.Permission, error)
	ListPermissionsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Permission, error)
	ListPermissionsByCaregiverID(ctx context.Context, caregiverID uuid.UUID) ([]database.Permission, error)
	UpdatePermissionLevel(ctx context.Context, profileID, caregiverID uuid.UUID, level database.PermissionLevel) (database.Permission, error)
	DeletePermission(ctx context.Context, profileID, caregiverID uuid.UUID) error
}

type Manager struct {
	logger *slog.Logger
	store  Store
}

func NewManager(logger *slog.Logger, store Store) Manager {
	return Manager{logger: logger, store: store}
}

type Invite struct {
	ID        uuid.UUID
	Code      string
	ProfileID uuid.UUID
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// CreateInvite issues a single-use invite code for the given profile. Only
// the patient who owns the profile may issue one. The plaintext code is
// returned here and nowhere else.
func (m *Manager) CreateInvite(ctx context.Context, caller Identity, profileID uuid.UUID) (Invite, error) {
	var invite Invite

	profile, err := m.store.GetProfileByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, database.ErrProfileNotFound) {
			return invite, ErrProfileNotFound
		}
		return invite, fmt.Errorf("failed to get profile: %w", err)
	}

	if profile.UserID != caller.UserID {
		return invite, ErrPermissionDenied
	}

	code, err := util.RandomCode(InviteCodeLength)
	if err != nil {
		return invite, fmt.Errorf("failed to generate invite code: %w", err)
	}

	dbInvite, err := m.store.CreateInvite(ctx, database.CreateInviteParams{
		Code:             code,
		PatientProfileID: profileID,
		ExpiresAt:        time.Now().UTC().Add(InviteLifetime),
	})
	if err != nil {
		return invite, fmt.Errorf("failed to create invite: %w", err)
	}

	m.logger.InfoContext(ctx, "caregiver invite created",
		slog.String("profile_id", profileID.String()),
		slog.String("invite_id", dbInvite.ID.String()))

	return Invite{
		ID:        dbInvite.ID,
		Code:      dbInvite.Code,
		ProfileID: dbInvite.PatientProfileID,
		ExpiresAt: dbInvite.ExpiresAt,
		Used:      dbInvite.Used,
		CreatedAt: dbInvite.CreatedAt,
	}, nil
}

// ListInvites returns the profile's invites without plaintext codes, for the
// owning patient only.
func (m *Manager) ListInvites(ctx context.Context, caller Identity, profileID uuid.UUID) ([]Invite, error) {
	profile, err := m.store.GetProfileByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, database.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if profile.UserID != caller.UserID {
		return nil, ErrPermissionDenied
	}

	dbInvites, err := m.store.ListInvitesByProfileID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	invites := make([]Invite, 0, len(dbInvites))
	for _, dbInvite := range dbInvites {
		invites = append(invites, Invite{
			ID:        dbInvite.ID,
			ProfileID: dbInvite.PatientProfileID,
			ExpiresAt: dbInvite.ExpiresAt,
			Used:      dbInvite.Used,
			CreatedAt: dbInvite.CreatedAt,
		})
	}
	return invites, nil
}

type Grant struct {
	ProfileID   uuid.UUID
	CaregiverID uuid.UUID
	Level       Level
	CreatedAt   time.Time
}

// RedeemInvite exchanges a valid code for a read-level grant on the invite's
// profile. The redemption is atomic: of any number of concurrent attempts on
// the same code, exactly one succeeds.
func (m *Manager) RedeemInvite(ctx context.Context, caller Identity, code string) (Grant, error) {
	var grant Grant

	if !caller.IsCaregiver() {
		return grant, ErrRoleMismatch
	}

	permission, err := m.store.RedeemInvite(ctx, database.RedeemInviteParams{
		Code:        code,
		CaregiverID: caller.UserID,
		Level:       database.PermissionLevelRead,
		Now:         time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInviteNotFound):
			return grant, ErrInviteNotFound
		case errors.Is(err, database.ErrInviteNotRedeemable):
			return grant, ErrInviteExpired
		}
		return grant, fmt.Errorf("failed to redeem invite: %w", err)
	}

	m.logger.InfoContext(ctx, "caregiver invite redeemed",
		slog.String("profile_id", permission.PatientProfileID.String()),
		slog.String("caregiver_id", caller.UserID.String()))

	return Grant{
		ProfileID:   permission.PatientProfileID,
		CaregiverID: permission.CaregiverID,
		Level:       Level(permission.Level),
		CreatedAt:   permission.CreatedAt,
	}, nil
}

// Authorize checks that the caller may act on the profile at the required
// level. The owning patient is always allowed. A denial never discloses
// whether the profile exists.
func (m *Manager) Authorize(ctx context.Context, caller Identity, profileID uuid.UUID, required Level) error {
	profile, err := m.store.GetProfileByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, database.ErrProfileNotFound) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("failed to get profile: %w", err)
	}

	if profile.UserID == caller.UserID {
		return nil
	}

	permission, err := m.store.GetPermission(ctx, profileID, caller.UserID)
	if err != nil {
		if errors.Is(err, database.ErrPermissionNotFound) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("failed to get permission: %w", err)
	}

	if !Level(permission.Level).Covers(required) {
		return ErrPermissionDenied
	}
	return nil
}

type Caregiver struct {
	CaregiverID uuid.UUID
	Email       string
	Level       Level
	CreatedAt   time.Time
}

// ListCaregivers returns everyone holding a grant on the profile. Allowed
// for the owning patient and for admin-level caregivers.
func (m *Manager) ListCaregivers(ctx context.Context, caller Identity, profileID uuid.UUID) ([]Caregiver, error) {
	if err := m.authorizeManagement(ctx, caller, profileID); err != nil {
		return nil, err
	}

	permissions, err := m.store.ListPermissionsByProfileID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	caregivers := make([]Caregiver, 0, len(permissions))
	for _, permission := range permissions {
		caregiver := Caregiver{
			CaregiverID: permission.CaregiverID,
			Level:       Level(permission.Level),
			CreatedAt:   permission.CreatedAt,
		}
		if user, err := m.store.GetUserByID(ctx, permission.CaregiverID); err == nil {
			caregiver.Email = user.Email
		}
		caregivers = append(caregivers, caregiver)
	}
	return caregivers, nil
}

// UpdatePermissionLevel changes a caregiver's level on the profile.
func (m *Manager) UpdatePermissionLevel(ctx context.Context, caller Identity, profileID, caregiverID uuid.UUID, level Level) (Grant, error) {
	var grant Grant

	if !level.Valid() {
		return grant, ErrInvalidLevel
	}
	if err := m.authorizeManagement(ctx, caller, profileID); err != nil {
		return grant, err
	}

	permission, err := m.store.UpdatePermissionLevel(ctx, profileID, caregiverID, database.PermissionLevel(level))
	if err != nil {
		if errors.Is(err, database.ErrPermissionNotFound) {
			return grant, ErrPermissionDenied
		}
		return grant, fmt.Errorf("failed to update permission level: %w", err)
	}

	m.logger.InfoContext(ctx, "permission level updated",
		slog.String("profile_id", profileID.String()),
		slog.String("caregiver_id", caregiverID.String()),
		slog.String("level", string(level)))

	return Grant{
		ProfileID:   permission.PatientProfileID,
		CaregiverID: permission.CaregiverID,
		Level:       Level(permission.Level),
		CreatedAt:   permission.CreatedAt,
	}, nil
}

// RevokePermission removes a caregiver's grant. Takes effect immediately;
// the caregiver's next request is denied.
func (m *Manager) RevokePermission(ctx context.Context, caller Identity, profileID, caregiverID uuid.UUID) error {
	if err := m.authorizeManagement(ctx, caller, profileID); err != nil {
		return err
	}

	if err := m.store.DeletePermission(ctx, profileID, caregiverID); err != nil {
		if errors.Is(err, database.ErrPermissionNotFound) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	m.logger.InfoContext(ctx, "permission revoked",
		slog.String("profile_id", profileID.String()),
		slog.String("caregiver_id", caregiverID.String()))

	return nil
}

type PatientAccess struct {
	ProfileID uuid.UUID
	FullName  string
	Level     Level
	CreatedAt time.Time
}

// ListPatients returns the profiles the calling caregiver can access.
func (m *Manager) ListPatients(ctx context.Context, caller Identity) ([]PatientAccess, error) {
	if !caller.IsCaregiver() {
		return nil, ErrRoleMismatch
	}

	permissions, err := m.store.ListPermissionsByCaregiverID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	patients := make([]PatientAccess, 0, len(permissions))
	for _, permission := range permissions {
		patient := PatientAccess{
			ProfileID: permission.PatientProfileID,
			Level:     Level(permission.Level),
			CreatedAt: permission.CreatedAt,
		}
		if profile, err := m.store.GetProfileByID(ctx, permission.PatientProfileID); err == nil {
			patient.FullName = profile.FullName
		}
		patients = append(patients, patient)
	}
	return patients, nil
}

// authorizeManagement allows the owning patient and admin-level caregivers
// to manage the profile's grants.
func (m *Manager) authorizeManagement(ctx context.Context, caller Identity, profileID uuid.UUID) error {
	profile, err := m.store.GetProfileByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, database.ErrProfileNotFound) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("failed to get profile: %w", err)
	}

	if profile.UserID == caller.UserID {
		return nil
	}

	permission, err := m.store.GetPermission(ctx, profileID, caller.UserID)
	if err != nil {
		if errors.Is(err, database.ErrPermissionNotFound) {
			return ErrPermissionDenied
		}
		return fmt.Errorf("failed to get permission: %w", err)
	}
	if Level(permission.Level) != LevelAdmin {
		return ErrPermissionDenied
	}
	return nil
}
