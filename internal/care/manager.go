// Package care manages patient profiles, clinical records, and the schedule
// view. Every operation on a profile's data authorizes through the access
// manager before touching the store.
package care

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recuerdamed/internal/access"
	"recuerdamed/internal/database"
	"recuerdamed/internal/util"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound = errors.New("patient profile not found")
	ErrRoleMismatch    = errors.New("operation not allowed for this role")
)

// Authorizer decides whether a caller may act on a profile at a level.
type Authorizer interface {
	Authorize(ctx context.Context, caller access.Identity, profileID uuid.UUID, required access.Level) error
}

type Store interface {
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (database.PatientProfile, error)
	CreateProfile(ctx context.Context, params database.CreateProfileParams) (database.PatientProfile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, params database.UpdateProfileParams) (database.PatientProfile, error)

	CreateMedication(ctx context.Context, params database.CreateMedicationParams) (database.Medication, error)
	GetMedication(ctx context.Context, profileID, id uuid.UUID) (database.Medication, error)
	ListMedicationsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Medication, error)
	UpdateMedication(ctx context.Context, profileID, id uuid.UUID, params database.UpdateMedicationParams) (database.Medication, error)
	DeleteMedication(ctx context.Context, profileID, id uuid.UUID) error

	CreateAppointment(ctx context.Context, params database.CreateAppointmentParams) (database.Appointment, error)
	GetAppointment(ctx context.Context, profileID, id uuid.UUID) (database.Appointment, error)
	ListAppointmentsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Appointment, error)
	ListAppointmentsBetween(ctx context.Context, profileID uuid.UUID, from, to time.Time) ([]database.Appointment, error)
	UpdateAppointment(ctx context.Context, profileID, id uuid.UUID, params database.UpdateAppointmentParams) (database.Appointment, error)
	DeleteAppointment(ctx context.Context, profileID, id uuid.UUID) error

	CreateTreatment(ctx context.Context, params database.CreateTreatmentParams) (database.Treatment, error)
	GetTreatment(ctx context.Context, profileID, id uuid.UUID) (database.Treatment, error)
	ListTreatmentsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Treatment, error)
	UpdateTreatment(ctx context.Context, profileID, id uuid.UUID, params database.UpdateTreatmentParams) (database.Treatment, error)
	DeleteTreatment(ctx context.Context, profileID, id uuid.UUID) error

	CreateNote(ctx context.Context, params database.CreateNoteParams) (database.Note, error)
	GetNote(ctx context.Context, profileID, id uuid.UUID) (database.Note, error)
	ListNotesByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Note, error)
	UpdateNote(ctx context.Context, profileID, id uuid.UUID, params database.UpdateNoteParams) (database.Note, error)
	DeleteNote(ctx context.Context, profileID, id uuid.UUID) error

	CreatePushSubscription(ctx context.Context, params database.CreatePushSubscriptionParams) (database.PushSubscription, error)
	ListPushSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]database.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, userID, id uuid.UUID) error
}

type Manager struct {
	logger     *slog.Logger
	store      Store
	authorizer Authorizer
}

func NewManager(logger *slog.Logger, store Store, authorizer Authorizer) Manager {
	return Manager{logger: logger, store: store, authorizer: authorizer}
}

// GetOwnProfile returns the calling patient's profile.
func (m *Manager) GetOwnProfile(ctx context.Context, caller access.Identity) (database.PatientProfile, error) {
	var profile database.PatientProfile

	if !caller.IsPatient() {
		return profile, ErrRoleMismatch
	}

	profile, err := m.store.GetProfileByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, database.ErrProfileNotFound) {
			return profile, ErrProfileNotFound
		}
		return profile, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

type SaveProfileParams struct {
	FullName         string
	BirthDate        util.Optional[time.Time]
	BloodType        util.Optional[string]
	Allergies        util.Optional[string]
	EmergencyContact util.Optional[string]
}

// SaveOwnProfile updates the calling patient's profile, creating it on first
// save.
func (m *Manager) SaveOwnProfile(ctx context.Context, caller access.Identity, params SaveProfileParams) (database.PatientProfile, error) {
	var profile database.PatientProfile

	if !caller.IsPatient() {
		return profile, ErrRoleMismatch
	}

	existing, err := m.store.GetProfileByUserID(ctx, caller.UserID)
	if err != nil {
		if !errors.Is(err, database.ErrProfileNotFound) {
			return profile, fmt.Errorf("failed to get profile: %w", err)
		}
		profile, err = m.store.CreateProfile(ctx, database.CreateProfileParams{
			UserID:           caller.UserID,
			FullName:         params.FullName,
			BirthDate:        params.BirthDate,
			BloodType:        params.BloodType,
			Allergies:        params.Allergies,
			EmergencyContact: params.EmergencyContact,
		})
		if err != nil {
			return profile, fmt.Errorf("failed to create profile: %w", err)
		}
		m.logger.InfoContext(ctx, "patient profile created", slog.String("profile_id", profile.ID.String()))
		return profile, nil
	}

	profile, err = m.store.UpdateProfile(ctx, existing.ID, database.UpdateProfileParams{
		FullName:         params.FullName,
		BirthDate:        params.BirthDate,
		BloodType:        params.BloodType,
		Allergies:        params.Allergies,
		EmergencyContact: params.EmergencyContact,
	})
	if err != nil {
		return profile, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// Medications

type MedicationParams struct {
	Name          string
	Dosage        string
	Frequency     string
	ScheduleTimes []string
	StartDate     time.Time
	EndDate       util.Optional[time.Time]
	Notes         util.Optional[string]
	Active        bool
}

func (m *Manager) ListMedications(ctx context.Context, caller access.Identity, profileID uuid.UUID) ([]database.Medication, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return nil, err
	}
	return m.store.ListMedicationsByProfileID(ctx, profileID)
}

func (m *Manager) GetMedication(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) (database.Medication, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return database.Medication{}, err
	}
	return m.store.GetMedication(ctx, profileID, id)
}

func (m *Manager) CreateMedication(ctx context.Context, caller access.Identity, profileID uuid.UUID, params MedicationParams) (database.Medication, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Medication{}, err
	}
	return m.store.CreateMedication(ctx, database.CreateMedicationParams{
		PatientProfileID: profileID,
		Name:             params.Name,
		Dosage:           params.Dosage,
		Frequency:        params.Frequency,
		ScheduleTimes:    params.ScheduleTimes,
		StartDate:        params.StartDate,
		EndDate:          params.EndDate,
		Notes:            params.Notes,
		Active:           params.Active,
	})
}

func (m *Manager) UpdateMedication(ctx context.Context, caller access.Identity, profileID, id uuid.UUID, params MedicationParams) (database.Medication, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Medication{}, err
	}
	return m.store.UpdateMedication(ctx, profileID, id, database.UpdateMedicationParams{
		Name:          params.Name,
		Dosage:        params.Dosage,
		Frequency:     params.Frequency,
		ScheduleTimes: params.ScheduleTimes,
		StartDate:     params.StartDate,
		EndDate:       params.EndDate,
		Notes:         params.Notes,
		Active:        params.Active,
	})
}

func (m *Manager) DeleteMedication(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) error {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return err
	}
	return m.store.DeleteMedication(ctx, profileID, id)
}

// Appointments

type AppointmentParams struct {
	Title       string
	Location    util.Optional[string]
	Specialist  util.Optional[string]
	ScheduledAt time.Time
	Notes       util.Optional[string]
}

func (m *Manager) ListAppointments(ctx context.Context, caller access.Identity, profileID uuid.UUID) ([]database.Appointment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return nil, err
	}
	return m.store.ListAppointmentsByProfileID(ctx, profileID)
}

func (m *Manager) GetAppointment(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) (database.Appointment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return database.Appointment{}, err
	}
	return m.store.GetAppointment(ctx, profileID, id)
}

func (m *Manager) CreateAppointment(ctx context.Context, caller access.Identity, profileID uuid.UUID, params AppointmentParams) (database.Appointment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Appointment{}, err
	}
	return m.store.CreateAppointment(ctx, database.CreateAppointmentParams{
		PatientProfileID: profileID,
		Title:            params.Title,
		Location:         params.Location,
		Specialist:       params.Specialist,
		ScheduledAt:      params.ScheduledAt,
		Notes:            params.Notes,
	})
}

func (m *Manager) UpdateAppointment(ctx context.Context, caller access.Identity, profileID, id uuid.UUID, params AppointmentParams) (database.Appointment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Appointment{}, err
	}
	return m.store.UpdateAppointment(ctx, profileID, id, database.UpdateAppointmentParams{
		Title:       params.Title,
		Location:    params.Location,
		Specialist:  params.Specialist,
		ScheduledAt: params.ScheduledAt,
		Notes:       params.Notes,
	})
}

func (m *Manager) DeleteAppointment(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) error {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return err
	}
	return m.store.DeleteAppointment(ctx, profileID, id)
}

// Treatments

type TreatmentParams struct {
	Name        string
	Description util.Optional[string]
	StartDate   time.Time
	EndDate     util.Optional[time.Time]
	Status      database.TreatmentStatus
}

func (m *Manager) ListTreatments(ctx context.Context, caller access.Identity, profileID uuid.UUID) ([]database.Treatment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return nil, err
	}
	return m.store.ListTreatmentsByProfileID(ctx, profileID)
}

func (m *Manager) GetTreatment(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) (database.Treatment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return database.Treatment{}, err
	}
	return m.store.GetTreatment(ctx, profileID, id)
}

func (m *Manager) CreateTreatment(ctx context.Context, caller access.Identity, profileID uuid.UUID, params TreatmentParams) (database.Treatment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Treatment{}, err
	}
	return m.store.CreateTreatment(ctx, database.CreateTreatmentParams{
		PatientProfileID: profileID,
		Name:             params.Name,
		Description:      params.Description,
		StartDate:        params.StartDate,
		EndDate:          params.EndDate,
		Status:           params.Status,
	})
}

func (m *Manager) UpdateTreatment(ctx context.Context, caller access.Identity, profileID, id uuid.UUID, params TreatmentParams) (database.Treatment, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Treatment{}, err
	}
	return m.store.UpdateTreatment(ctx, profileID, id, database.UpdateTreatmentParams{
		Name:        params.Name,
		Description: params.Description,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		Status:      params.Status,
	})
}

func (m *Manager) DeleteTreatment(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) error {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return err
	}
	return m.store.DeleteTreatment(ctx, profileID, id)
}

// Notes

type NoteParams struct {
	Title  string
	Body   string
	Pinned bool
}

func (m *Manager) ListNotes(ctx context.Context, caller access.Identity, profileID uuid.UUID) ([]database.Note, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return nil, err
	}
	return m.store.ListNotesByProfileID(ctx, profileID)
}

func (m *Manager) GetNote(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) (database.Note, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return database.Note{}, err
	}
	return m.store.GetNote(ctx, profileID, id)
}

func (m *Manager) CreateNote(ctx context.Context, caller access.Identity, profileID uuid.UUID, params NoteParams) (database.Note, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Note{}, err
	}
	return m.store.CreateNote(ctx, database.CreateNoteParams{
		PatientProfileID: profileID,
		Title:            params.Title,
		Body:             params.Body,
		Pinned:           params.Pinned,
	})
}

func (m *Manager) UpdateNote(ctx context.Context, caller access.Identity, profileID, id uuid.UUID, params NoteParams) (database.Note, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return database.Note{}, err
	}
	return m.store.UpdateNote(ctx, profileID, id, database.UpdateNoteParams{
		Title:  params.Title,
		Body:   params.Body,
		Pinned: params.Pinned,
	})
}

func (m *Manager) DeleteNote(ctx context.Context, caller access.Identity, profileID, id uuid.UUID) error {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelWrite); err != nil {
		return err
	}
	return m.store.DeleteNote(ctx, profileID, id)
}

// Push subscriptions

type PushSubscriptionParams struct {
	Endpoint  string
	P256DHKey string
	AuthKey   string
}

func (m *Manager) CreatePushSubscription(ctx context.Context, caller access.Identity, params PushSubscriptionParams) (database.PushSubscription, error) {
	return m.store.CreatePushSubscription(ctx, database.CreatePushSubscriptionParams{
		UserID:    caller.UserID,
		Endpoint:  params.Endpoint,
		P256DHKey: params.P256DHKey,
		AuthKey:   params.AuthKey,
	})
}

func (m *Manager) ListPushSubscriptions(ctx context.Context, caller access.Identity) ([]database.PushSubscription, error) {
	return m.store.ListPushSubscriptionsByUserID(ctx, caller.UserID)
}

func (m *Manager) DeletePushSubscription(ctx context.Context, caller access.Identity, id uuid.UUID) error {
	return m.store.DeletePushSubscription(ctx, caller.UserID, id)
}
