package web

import (
	"time"

	"recuerdamed/internal/care"
	"recuerdamed/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func pathUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// Medications

type medicationRequest struct {
	Name          string     `json:"name" validate:"required,max=200"`
	Dosage        string     `json:"dosage" validate:"required,max=100"`
	Frequency     string     `json:"frequency" validate:"required,max=100"`
	ScheduleTimes []string   `json:"schedule_times" validate:"dive,len=5"`
	StartDate     time.Time  `json:"start_date" validate:"required"`
	EndDate       *time.Time `json:"end_date"`
	Notes         *string    `json:"notes" validate:"omitempty,max=2000"`
	Active        *bool      `json:"active"`
}

func (r medicationRequest) params() care.MedicationParams {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return care.MedicationParams{
		Name:          r.Name,
		Dosage:        r.Dosage,
		Frequency:     r.Frequency,
		ScheduleTimes: r.ScheduleTimes,
		StartDate:     r.StartDate,
		EndDate:       optionalFrom(r.EndDate),
		Notes:         optionalFrom(r.Notes),
		Active:        active,
	}
}

func medicationResponse(medication database.Medication) fiber.Map {
	return fiber.Map{
		"id":             medication.ID,
		"name":           medication.Name,
		"dosage":         medication.Dosage,
		"frequency":      medication.Frequency,
		"schedule_times": medication.ScheduleTimes,
		"start_date":     medication.StartDate,
		"end_date":       medication.EndDate,
		"notes":          medication.Notes,
		"active":         medication.Active,
		"created_at":     medication.CreatedAt,
		"updated_at":     medication.UpdatedAt,
	}
}

func (h *Handler) ListMedications(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	medications, err := h.careManager.ListMedications(c.Context(), callerIdentity(c), profileID)
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(medications))
	for _, medication := range medications {
		items = append(items, medicationResponse(medication))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"medications": items})
}

func (h *Handler) GetMedication(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "medicationID")
	if err != nil {
		return h.respondError(c, err)
	}

	medication, err := h.careManager.GetMedication(c.Context(), callerIdentity(c), profileID, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(medicationResponse(medication))
}

func (h *Handler) CreateMedication(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req medicationRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	medication, err := h.careManager.CreateMedication(c.Context(), callerIdentity(c), profileID, req.params())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(medicationResponse(medication))
}

func (h *Handler) UpdateMedication(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "medicationID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req medicationRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	medication, err := h.careManager.UpdateMedication(c.Context(), callerIdentity(c), profileID, id, req.params())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(medicationResponse(medication))
}

func (h *Handler) DeleteMedication(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "medicationID")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.careManager.DeleteMedication(c.Context(), callerIdentity(c), profileID, id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Appointments

type appointmentRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Location    *string   `json:"location" validate:"omitempty,max=300"`
	Specialist  *string   `json:"specialist" validate:"omitempty,max=200"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       *string   `json:"notes" validate:"omitempty,max=2000"`
}

func (r appointmentRequest) params() care.AppointmentParams {
	return care.AppointmentParams{
		Title:       r.Title,
		Location:    optionalFrom(r.Location),
		Specialist:  optionalFrom(r.Specialist),
		ScheduledAt: r.ScheduledAt,
		Notes:       optionalFrom(r.Notes),
	}
}

func appointmentResponse(appointment database.Appointment) fiber.Map {
	return fiber.Map{
		"id":           appointment.ID,
		"title":        appointment.Title,
		"location":     appointment.Location,
		"specialist":   appointment.Specialist,
		"scheduled_at": appointment.ScheduledAt,
		"notes":        appointment.Notes,
		"created_at":   appointment.CreatedAt,
		"updated_at":   appointment.UpdatedAt,
	}
}

func (h *Handler) ListAppointments(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	appointments, err := h.careManager.ListAppointments(c.Context(), callerIdentity(c), profileID)
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(appointments))
	for _, appointment := range appointments {
		items = append(items, appointmentResponse(appointment))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"appointments": items})
}

func (h *Handler) GetAppointment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "appointmentID")
	if err != nil {
		return h.respondError(c, err)
	}

	appointment, err := h.careManager.GetAppointment(c.Context(), callerIdentity(c), profileID, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(appointmentResponse(appointment))
}

func (h *Handler) CreateAppointment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req appointmentRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	appointment, err := h.careManager.CreateAppointment(c.Context(), callerIdentity(c), profileID, req.params())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(appointmentResponse(appointment))
}

func (h *Handler) UpdateAppointment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "appointmentID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req appointmentRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	appointment, err := h.careManager.UpdateAppointment(c.Context(), callerIdentity(c), profileID, id, req.params())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(appointmentResponse(appointment))
}

func (h *Handler) DeleteAppointment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "appointmentID")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.careManager.DeleteAppointment(c.Context(), callerIdentity(c), profileID, id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Treatments

type treatmentRequest struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartDate   time.Time  `json:"start_date" validate:"required"`
	EndDate     *time.Time `json:"end_date"`
	Status      string     `json:"status" validate:"required,oneof=active completed suspended"`
}

func (r treatmentRequest) params() care.TreatmentParams {
	return care.TreatmentParams{
		Name:        r.Name,
		Description: optionalFrom(r.Description),
		StartDate:   r.StartDate,
		EndDate:     optionalFrom(r.EndDate),
		Status:      database.TreatmentStatus(r.Status),
	}
}

func treatmentResponse(treatment database.Treatment) fiber.Map {
	return fiber.Map{
		"id":          treatment.ID,
		"name":        treatment.Name,
		"description": treatment.Description,
		"start_date":  treatment.StartDate,
		"end_date":    treatment.EndDate,
		"status":      treatment.Status,
		"created_at":  treatment.CreatedAt,
		"updated_at":  treatment.UpdatedAt,
	}
}

func (h *Handler) ListTreatments(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	treatments, err := h.careManager.ListTreatments(c.Context(), callerIdentity(c), profileID)
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(treatments))
	for _, treatment := range treatments {
		items = append(items, treatmentResponse(treatment))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"treatments": items})
}

func (h *Handler) GetTreatment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "treatmentID")
	if err != nil {
		return h.respondError(c, err)
	}

	treatment, err := h.careManager.GetTreatment(c.Context(), callerIdentity(c), profileID, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(treatmentResponse(treatment))
}

func (h *Handler) CreateTreatment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req treatmentRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	treatment, err := h.careManager.CreateTreatment(c.Context(), callerIdentity(c), profileID, req.params())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(treatmentResponse(treatment))
}

func (h *Handler) UpdateTreatment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "treatmentID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req treatmentRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	treatment, err := h.careManager.UpdateTreatment(c.Context(), callerIdentity(c), profileID, id, req.params())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(treatmentResponse(treatment))
}

func (h *Handler) DeleteTreatment(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "treatmentID")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.careManager.DeleteTreatment(c.Context(), callerIdentity(c), profileID, id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Notes

type noteRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Body   string `json:"body" validate:"required,max=10000"`
	Pinned bool   `json:"pinned"`
}

func noteResponse(note database.Note) fiber.Map {
	return fiber.Map{
		"id":         note.ID,
		"title":      note.Title,
		"body":       note.Body,
		"pinned":     note.Pinned,
		"created_at": note.CreatedAt,
		"updated_at": note.UpdatedAt,
	}
}

func (h *Handler) ListNotes(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	notes, err := h.careManager.ListNotes(c.Context(), callerIdentity(c), profileID)
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(notes))
	for _, note := range notes {
		items = append(items, noteResponse(note))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"notes": items})
}

func (h *Handler) GetNote(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "noteID")
	if err != nil {
		return h.respondError(c, err)
	}

	note, err := h.careManager.GetNote(c.Context(), callerIdentity(c), profileID, id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(noteResponse(note))
}

func (h *Handler) CreateNote(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req noteRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	note, err := h.careManager.CreateNote(c.Context(), callerIdentity(c), profileID, care.NoteParams{
		Title:  req.Title,
		Body:   req.Body,
		Pinned: req.Pinned,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(noteResponse(note))
}

func (h *Handler) UpdateNote(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "noteID")
	if err != nil {
		return h.respondError(c, err)
	}

	var req noteRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	note, err := h.careManager.UpdateNote(c.Context(), callerIdentity(c), profileID, id, care.NoteParams{
		Title:  req.Title,
		Body:   req.Body,
		Pinned: req.Pinned,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(noteResponse(note))
}

func (h *Handler) DeleteNote(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathUUID(c, "noteID")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.careManager.DeleteNote(c.Context(), callerIdentity(c), profileID, id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Schedule

func (h *Handler) GetSchedule(c *fiber.Ctx) error {
	profileID, err := pathUUID(c, "profileID")
	if err != nil {
		return h.respondError(c, err)
	}

	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return h.respondError(c, care.ErrInvalidDateRange)
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return h.respondError(c, care.ErrInvalidDateRange)
	}

	days, err := h.careManager.Schedule(c.Context(), callerIdentity(c), profileID, from, to)
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(days))
	for _, day := range days {
		doses := make([]fiber.Map, 0, len(day.Doses))
		for _, dose := range day.Doses {
			doses = append(doses, fiber.Map{
				"medication_id": dose.MedicationID,
				"name":          dose.Name,
				"dosage":        dose.Dosage,
				"time":          dose.Time,
			})
		}
		appointments := make([]fiber.Map, 0, len(day.Appointments))
		for _, appointment := range day.Appointments {
			appointments = append(appointments, fiber.Map{
				"appointment_id": appointment.AppointmentID,
				"title":          appointment.Title,
				"location":       appointment.Location,
				"specialist":     appointment.Specialist,
				"scheduled_at":   appointment.ScheduledAt,
			})
		}
		items = append(items, fiber.Map{
			"date":         day.Date,
			"doses":        doses,
			"appointments": appointments,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"days": items})
}
