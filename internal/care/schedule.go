package care

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recuerdamed/internal/access"
	"recuerdamed/internal/database"
	"recuerdamed/internal/util"

	"github.com/google/uuid"
)

var ErrInvalidDateRange = errors.New("invalid schedule date range")

// MaxScheduleDays bounds the size of a single schedule query.
const MaxScheduleDays = 92

type ScheduleDay struct {
	Date         string
	Doses        []MedicationDose
	Appointments []ScheduledAppointment
}

type MedicationDose struct {
	MedicationID uuid.UUID
	Name         string
	Dosage       string
	Time         string
}

type ScheduledAppointment struct {
	AppointmentID uuid.UUID
	Title         string
	Location      util.Optional[string]
	Specialist    util.Optional[string]
	ScheduledAt   time.Time
}

// Schedule builds the day-by-day calendar for [from, to]: each appointment
// in range plus a dose entry per schedule time of every medication active
// that day.
func (m *Manager) Schedule(ctx context.Context, caller access.Identity, profileID uuid.UUID, from, to time.Time) ([]ScheduleDay, error) {
	if err := m.authorizer.Authorize(ctx, caller, profileID, access.LevelRead); err != nil {
		return nil, err
	}

	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if to.Before(from) || to.Sub(from) > MaxScheduleDays*24*time.Hour {
		return nil, ErrInvalidDateRange
	}

	appointments, err := m.store.ListAppointmentsBetween(ctx, profileID, from, to.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	medications, err := m.store.ListMedicationsByProfileID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	appointmentsByDay := make(map[string][]ScheduledAppointment)
	for _, appointment := range appointments {
		day := appointment.ScheduledAt.UTC().Format("2006-01-02")
		appointmentsByDay[day] = append(appointmentsByDay[day], ScheduledAppointment{
			AppointmentID: appointment.ID,
			Title:         appointment.Title,
			Location:      appointment.Location,
			Specialist:    appointment.Specialist,
			ScheduledAt:   appointment.ScheduledAt,
		})
	}

	var days []ScheduleDay
	for day := from; !day.After(to); day = day.Add(24 * time.Hour) {
		entry := ScheduleDay{Date: day.Format("2006-01-02")}

		for _, medication := range medications {
			if !medicationActiveOn(medication, day) {
				continue
			}
			for _, doseTime := range medication.ScheduleTimes {
				entry.Doses = append(entry.Doses, MedicationDose{
					MedicationID: medication.ID,
					Name:         medication.Name,
					Dosage:       medication.Dosage,
					Time:         doseTime,
				})
			}
		}

		entry.Appointments = appointmentsByDay[entry.Date]
		days = append(days, entry)
	}

	return days, nil
}

func medicationActiveOn(medication database.Medication, day time.Time) bool {
	if !medication.Active {
		return false
	}
	if medication.StartDate.UTC().Truncate(24 * time.Hour).After(day) {
		return false
	}
	if medication.EndDate.IsSet && medication.EndDate.Val.UTC().Truncate(24*time.Hour).Before(day) {
		return false
	}
	return true
}
