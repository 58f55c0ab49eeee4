// Package memstore provides an in-memory implementation of the persistence
// interfaces the managers depend on. It exists for tests; semantics mirror
// the SQL store, including atomic invite redemption.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"recuerdamed/internal/database"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	users             map[uuid.UUID]database.User
	profiles          map[uuid.UUID]database.PatientProfile
	invites           map[uuid.UUID]database.CaregiverInvite
	permissions       map[uuid.UUID]database.Permission
	medications       map[uuid.UUID]database.Medication
	appointments      map[uuid.UUID]database.Appointment
	treatments        map[uuid.UUID]database.Treatment
	notes             map[uuid.UUID]database.Note
	pushSubscriptions map[uuid.UUID]database.PushSubscription
}

func New() *Store {
	return &Store{
		users:             make(map[uuid.UUID]database.User),
		profiles:          make(map[uuid.UUID]database.PatientProfile),
		invites:           make(map[uuid.UUID]database.CaregiverInvite),
		permissions:       make(map[uuid.UUID]database.Permission),
		medications:       make(map[uuid.UUID]database.Medication),
		appointments:      make(map[uuid.UUID]database.Appointment),
		treatments:        make(map[uuid.UUID]database.Treatment),
		notes:             make(map[uuid.UUID]database.Note),
		pushSubscriptions: make(map[uuid.UUID]database.PushSubscription),
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// Users

func (s *Store) CreateUser(ctx context.Context, params database.CreateUserParams) (database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == params.Email {
			return database.User{}, database.ErrUserEmailTaken
		}
	}

	user := database.User{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return database.User{}, database.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return database.User{}, database.ErrUserNotFound
}

// Profiles

func (s *Store) CreateProfile(ctx context.Context, params database.CreateProfileParams) (database.PatientProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := database.PatientProfile{
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
	s.profiles[profile.ID] = profile
	return profile, nil
}

func (s *Store) GetProfileByID(ctx context.Context, id uuid.UUID) (database.PatientProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[id]
	if !ok {
		return database.PatientProfile{}, database.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Store) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (database.PatientProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, profile := range s.profiles {
		if profile.UserID == userID {
			return profile, nil
		}
	}
	return database.PatientProfile{}, database.ErrProfileNotFound
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, params database.UpdateProfileParams) (database.PatientProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[id]
	if !ok {
		return database.PatientProfile{}, database.ErrProfileNotFound
	}
	profile.FullName = params.FullName
	profile.BirthDate = params.BirthDate
	profile.BloodType = params.BloodType
	profile.Allergies = params.Allergies
	profile.EmergencyContact = params.EmergencyContact
	profile.UpdatedAt = time.Now().UTC()
	s.profiles[id] = profile
	return profile, nil
}

// Invites

func (s *Store) CreateInvite(ctx context.Context, params database.CreateInviteParams) (database.CaregiverInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite := database.CaregiverInvite{
		ID:               uuid.New(),
		Code:             params.Code,
		PatientProfileID: params.PatientProfileID,
		ExpiresAt:        params.ExpiresAt,
		Used:             false,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	s.invites[invite.ID] = invite
	return invite, nil
}

func (s *Store) ListInvitesByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.CaregiverInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var invites []database.CaregiverInvite
	for _, invite := range s.invites {
		if invite.PatientProfileID == profileID {
			invites = append(invites, invite)
		}
	}
	sort.Slice(invites, func(i, j int) bool {
		return invites[i].CreatedAt.After(invites[j].CreatedAt)
	})
	return invites, nil
}

// RedeemInvite mirrors the SQL store's single-transaction semantics: the
// check and the used flip happen under one lock, so exactly one concurrent
// caller wins.
func (s *Store) RedeemInvite(ctx context.Context, params database.RedeemInviteParams) (database.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *database.CaregiverInvite
	for id := range s.invites {
		invite := s.invites[id]
		if invite.Code == params.Code {
			found = &invite
			break
		}
	}
	if found == nil {
		return database.Permission{}, database.ErrInviteNotFound
	}

	if found.Used || !found.ExpiresAt.After(params.Now) {
		return database.Permission{}, database.ErrInviteNotRedeemable
	}

	found.Used = true
	found.UpdatedAt = params.Now
	s.invites[found.ID] = *found

	for id, permission := range s.permissions {
		if permission.PatientProfileID == found.PatientProfileID && permission.CaregiverID == params.CaregiverID {
			permission.UpdatedAt = params.Now
			s.permissions[id] = permission
			return permission, nil
		}
	}

	permission := database.Permission{
		ID:               uuid.New(),
		PatientProfileID: found.PatientProfileID,
		CaregiverID:      params.CaregiverID,
		Level:            params.Level,
		CreatedAt:        params.Now,
		UpdatedAt:        params.Now,
	}
	s.permissions[permission.ID] = permission
	return permission, nil
}

// SetInviteExpiresAt overrides an invite's expiry so tests can move the
// clock without waiting.
func (s *Store) SetInviteExpiresAt(id uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if invite, ok := s.invites[id]; ok {
		invite.ExpiresAt = at
		s.invites[id] = invite
	}
}

// Permissions

func (s *Store) GetPermission(ctx context.Context, profileID, caregiverID uuid.UUID) (database.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, permission := range s.permissions {
		if permission.PatientProfileID == profileID && permission.CaregiverID == caregiverID {
			return permission, nil
		}
	}
	return database.Permission{}, database.ErrPermissionNotFound
}

func (s *Store) ListPermissionsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var permissions []database.Permission
	for _, permission := range s.permissions {
		if permission.PatientProfileID == profileID {
			permissions = append(permissions, permission)
		}
	}
	sort.Slice(permissions, func(i, j int) bool {
		return permissions[i].CreatedAt.Before(permissions[j].CreatedAt)
	})
	return permissions, nil
}

func (s *Store) ListPermissionsByCaregiverID(ctx context.Context, caregiverID uuid.UUID) ([]database.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var permissions []database.Permission
	for _, permission := range s.permissions {
		if permission.CaregiverID == caregiverID {
			permissions = append(permissions, permission)
		}
	}
	sort.Slice(permissions, func(i, j int) bool {
		return permissions[i].CreatedAt.Before(permissions[j].CreatedAt)
	})
	return permissions, nil
}

func (s *Store) UpdatePermissionLevel(ctx context.Context, profileID, caregiverID uuid.UUID, level database.PermissionLevel) (database.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, permission := range s.permissions {
		if permission.PatientProfileID == profileID && permission.CaregiverID == caregiverID {
			permission.Level = level
			permission.UpdatedAt = time.Now().UTC()
			s.permissions[id] = permission
			return permission, nil
		}
	}
	return database.Permission{}, database.ErrPermissionNotFound
}

func (s *Store) DeletePermission(ctx context.Context, profileID, caregiverID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, permission := range s.permissions {
		if permission.PatientProfileID == profileID && permission.CaregiverID == caregiverID {
			delete(s.permissions, id)
			return nil
		}
	}
	return database.ErrPermissionNotFound
}

// Medications

func (s *Store) CreateMedication(ctx context.Context, params database.CreateMedicationParams) (database.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	medication := database.Medication{
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
	s.medications[medication.ID] = medication
	return medication, nil
}

func (s *Store) GetMedication(ctx context.Context, profileID, id uuid.UUID) (database.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	medication, ok := s.medications[id]
	if !ok || medication.PatientProfileID != profileID {
		return database.Medication{}, database.ErrMedicationNotFound
	}
	return medication, nil
}

func (s *Store) ListMedicationsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var medications []database.Medication
	for _, medication := range s.medications {
		if medication.PatientProfileID == profileID {
			medications = append(medications, medication)
		}
	}
	sort.Slice(medications, func(i, j int) bool {
		return medications[i].CreatedAt.After(medications[j].CreatedAt)
	})
	return medications, nil
}

func (s *Store) UpdateMedication(ctx context.Context, profileID, id uuid.UUID, params database.UpdateMedicationParams) (database.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	medication, ok := s.medications[id]
	if !ok || medication.PatientProfileID != profileID {
		return database.Medication{}, database.ErrMedicationNotFound
	}
	medication.Name = params.Name
	medication.Dosage = params.Dosage
	medication.Frequency = params.Frequency
	medication.ScheduleTimes = params.ScheduleTimes
	medication.StartDate = params.StartDate
	medication.EndDate = params.EndDate
	medication.Notes = params.Notes
	medication.Active = params.Active
	medication.UpdatedAt = time.Now().UTC()
	s.medications[id] = medication
	return medication, nil
}

func (s *Store) DeleteMedication(ctx context.Context, profileID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	medication, ok := s.medications[id]
	if !ok || medication.PatientProfileID != profileID {
		return database.ErrMedicationNotFound
	}
	delete(s.medications, id)
	return nil
}

// Appointments

func (s *Store) CreateAppointment(ctx context.Context, params database.CreateAppointmentParams) (database.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appointment := database.Appointment{
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
	s.appointments[appointment.ID] = appointment
	return appointment, nil
}

func (s *Store) GetAppointment(ctx context.Context, profileID, id uuid.UUID) (database.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appointment, ok := s.appointments[id]
	if !ok || appointment.PatientProfileID != profileID {
		return database.Appointment{}, database.ErrAppointmentNotFound
	}
	return appointment, nil
}

func (s *Store) ListAppointmentsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var appointments []database.Appointment
	for _, appointment := range s.appointments {
		if appointment.PatientProfileID == profileID {
			appointments = append(appointments, appointment)
		}
	}
	sort.Slice(appointments, func(i, j int) bool {
		return appointments[i].ScheduledAt.Before(appointments[j].ScheduledAt)
	})
	return appointments, nil
}

func (s *Store) ListAppointmentsBetween(ctx context.Context, profileID uuid.UUID, from, to time.Time) ([]database.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var appointments []database.Appointment
	for _, appointment := range s.appointments {
		if appointment.PatientProfileID != profileID {
			continue
		}
		if appointment.ScheduledAt.Before(from) || !appointment.ScheduledAt.Before(to) {
			continue
		}
		appointments = append(appointments, appointment)
	}
	sort.Slice(appointments, func(i, j int) bool {
		return appointments[i].ScheduledAt.Before(appointments[j].ScheduledAt)
	})
	return appointments, nil
}

func (s *Store) UpdateAppointment(ctx context.Context, profileID, id uuid.UUID, params database.UpdateAppointmentParams) (database.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appointment, ok := s.appointments[id]
	if !ok || appointment.PatientProfileID != profileID {
		return database.Appointment{}, database.ErrAppointmentNotFound
	}
	appointment.Title = params.Title
	appointment.Location = params.Location
	appointment.Specialist = params.Specialist
	appointment.ScheduledAt = params.ScheduledAt
	appointment.Notes = params.Notes
	appointment.UpdatedAt = time.Now().UTC()
	s.appointments[id] = appointment
	return appointment, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, profileID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appointment, ok := s.appointments[id]
	if !ok || appointment.PatientProfileID != profileID {
		return database.ErrAppointmentNotFound
	}
	delete(s.appointments, id)
	return nil
}

// Treatments

func (s *Store) CreateTreatment(ctx context.Context, params database.CreateTreatmentParams) (database.Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	treatment := database.Treatment{
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
	s.treatments[treatment.ID] = treatment
	return treatment, nil
}

func (s *Store) GetTreatment(ctx context.Context, profileID, id uuid.UUID) (database.Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	treatment, ok := s.treatments[id]
	if !ok || treatment.PatientProfileID != profileID {
		return database.Treatment{}, database.ErrTreatmentNotFound
	}
	return treatment, nil
}

func (s *Store) ListTreatmentsByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var treatments []database.Treatment
	for _, treatment := range s.treatments {
		if treatment.PatientProfileID == profileID {
			treatments = append(treatments, treatment)
		}
	}
	sort.Slice(treatments, func(i, j int) bool {
		return treatments[i].CreatedAt.After(treatments[j].CreatedAt)
	})
	return treatments, nil
}

func (s *Store) UpdateTreatment(ctx context.Context, profileID, id uuid.UUID, params database.UpdateTreatmentParams) (database.Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	treatment, ok := s.treatments[id]
	if !ok || treatment.PatientProfileID != profileID {
		return database.Treatment{}, database.ErrTreatmentNotFound
	}
	treatment.Name = params.Name
	treatment.Description = params.Description
	treatment.StartDate = params.StartDate
	treatment.EndDate = params.EndDate
	treatment.Status = params.Status
	treatment.UpdatedAt = time.Now().UTC()
	s.treatments[id] = treatment
	return treatment, nil
}

func (s *Store) DeleteTreatment(ctx context.Context, profileID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	treatment, ok := s.treatments[id]
	if !ok || treatment.PatientProfileID != profileID {
		return database.ErrTreatmentNotFound
	}
	delete(s.treatments, id)
	return nil
}

// Notes

func (s *Store) CreateNote(ctx context.Context, params database.CreateNoteParams) (database.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note := database.Note{
		ID:               uuid.New(),
		PatientProfileID: params.PatientProfileID,
		Title:            params.Title,
		Body:             params.Body,
		Pinned:           params.Pinned,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}
	s.notes[note.ID] = note
	return note, nil
}

func (s *Store) GetNote(ctx context.Context, profileID, id uuid.UUID) (database.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.notes[id]
	if !ok || note.PatientProfileID != profileID {
		return database.Note{}, database.ErrNoteNotFound
	}
	return note, nil
}

func (s *Store) ListNotesByProfileID(ctx context.Context, profileID uuid.UUID) ([]database.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notes []database.Note
	for _, note := range s.notes {
		if note.PatientProfileID == profileID {
			notes = append(notes, note)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].Pinned != notes[j].Pinned {
			return notes[i].Pinned
		}
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	return notes, nil
}

func (s *Store) UpdateNote(ctx context.Context, profileID, id uuid.UUID, params database.UpdateNoteParams) (database.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.notes[id]
	if !ok || note.PatientProfileID != profileID {
		return database.Note{}, database.ErrNoteNotFound
	}
	note.Title = params.Title
	note.Body = params.Body
	note.Pinned = params.Pinned
	note.UpdatedAt = time.Now().UTC()
	s.notes[id] = note
	return note, nil
}

func (s *Store) DeleteNote(ctx context.Context, profileID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.notes[id]
	if !ok || note.PatientProfileID != profileID {
		return database.ErrNoteNotFound
	}
	delete(s.notes, id)
	return nil
}

// Push subscriptions

func (s *Store) CreatePushSubscription(ctx context.Context, params database.CreatePushSubscriptionParams) (database.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, subscription := range s.pushSubscriptions {
		if subscription.Endpoint == params.Endpoint {
			subscription.UserID = params.UserID
			subscription.P256DHKey = params.P256DHKey
			subscription.AuthKey = params.AuthKey
			subscription.UpdatedAt = time.Now().UTC()
			s.pushSubscriptions[id] = subscription
			return subscription, nil
		}
	}

	subscription := database.PushSubscription{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Endpoint:  params.Endpoint,
		P256DHKey: params.P256DHKey,
		AuthKey:   params.AuthKey,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.pushSubscriptions[subscription.ID] = subscription
	return subscription, nil
}

func (s *Store) ListPushSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]database.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var subscriptions []database.PushSubscription
	for _, subscription := range s.pushSubscriptions {
		if subscription.UserID == userID {
			subscriptions = append(subscriptions, subscription)
		}
	}
	sort.Slice(subscriptions, func(i, j int) bool {
		return subscriptions[i].CreatedAt.Before(subscriptions[j].CreatedAt)
	})
	return subscriptions, nil
}

func (s *Store) DeletePushSubscription(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subscription, ok := s.pushSubscriptions[id]
	if !ok || subscription.UserID != userID {
		return database.ErrPushSubscriptionNotFound
	}
	delete(s.pushSubscriptions, id)
	return nil
}
