package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recuerdamed/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Database struct {
	Pool *pgxpool.Pool
}

func NewDatabase() Database {
	return Database{
		Pool: nil,
	}
}

func (db *Database) Connect(ctx context.Context, connString string) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse database configuration: %w", err)
	}

	db.Pool, err = pgxpool.New(ctx, config.ConnString())
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}

	return nil
}

func (db *Database) Close() {
	db.Pool.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

type UserRole string

const (
	UserRolePatient   UserRole = "patient"
	UserRoleCaregiver UserRole = "caregiver"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type PatientProfile struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	FullName         string
	BirthDate        util.Optional[time.Time]
	BloodType        util.Optional[string]
	Allergies        util.Optional[string]
	EmergencyContact util.Optional[string]
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CaregiverInvite struct {
	ID               uuid.UUID
	Code             string
	PatientProfileID uuid.UUID
	ExpiresAt        time.Time
	Used             bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PermissionLevel string

const (
	PermissionLevelRead  PermissionLevel = "read"
	PermissionLevelWrite PermissionLevel = "write"
	PermissionLevelAdmin PermissionLevel = "admin"
)

type Permission struct {
	ID               uuid.UUID
	PatientProfileID uuid.UUID
	CaregiverID      uuid.UUID
	Level            PermissionLevel
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Medication struct {
	ID               uuid.UUID
	PatientProfileID uuid.UUID
	Name             string
	Dosage           string
	Frequency        string
	ScheduleTimes    []string
	StartDate        time.Time
	EndDate          util.Optional[time.Time]
	Notes            util.Optional[string]
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Appointment struct {
	ID               uuid.UUID
	PatientProfileID uuid.UUID
	Title            string
	Location         util.Optional[string]
	Specialist       util.Optional[string]
	ScheduledAt      time.Time
	Notes            util.Optional[string]
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type TreatmentStatus string

const (
	TreatmentStatusActive    TreatmentStatus = "active"
	TreatmentStatusCompleted TreatmentStatus = "completed"
	TreatmentStatusSuspended TreatmentStatus = "suspended"
)

type Treatment struct {
	ID               uuid.UUID
	PatientProfileID uuid.UUID
	Name             string
	Description      util.Optional[string]
	StartDate        time.Time
	EndDate          util.Optional[time.Time]
	Status           TreatmentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Note struct {
	ID               uuid.UUID
	PatientProfileID uuid.UUID
	Title            string
	Body             string
	Pinned           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type PushSubscription struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Endpoint  string
	P256DHKey string
	AuthKey   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrUserEmailTaken           = errors.New("user email already taken")
	ErrProfileNotFound          = errors.New("patient profile not found")
	ErrInviteNotFound           = errors.New("caregiver invite not found")
	ErrInviteNotRedeemable      = errors.New("caregiver invite already used or expired")
	ErrPermissionNotFound       = errors.New("permission not found")
	ErrMedicationNotFound       = errors.New("medication not found")
	ErrAppointmentNotFound      = errors.New("appointment not found")
	ErrTreatmentNotFound        = errors.New("treatment not found")
	ErrNoteNotFound             = errors.New("note not found")
	ErrPushSubscriptionNotFound = errors.New("push subscription not found")
)
