package web

import (
	"time"

	"recuerdamed/internal/care"
	"recuerdamed/internal/database"
	"recuerdamed/internal/util"

	"github.com/gofiber/fiber/v2"
)

type saveProfileRequest struct {
	FullName         string     `json:"full_name" validate:"required,max=200"`
	BirthDate        *time.Time `json:"birth_date"`
	BloodType        *string    `json:"blood_type" validate:"omitempty,max=10"`
	Allergies        *string    `json:"allergies" validate:"omitempty,max=2000"`
	EmergencyContact *string    `json:"emergency_contact" validate:"omitempty,max=500"`
}

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	profile, err := h.careManager.GetOwnProfile(c.Context(), callerIdentity(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profileResponse(profile))
}

func (h *Handler) SaveProfile(c *fiber.Ctx) error {
	var req saveProfileRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	profile, err := h.careManager.SaveOwnProfile(c.Context(), callerIdentity(c), care.SaveProfileParams{
		FullName:         req.FullName,
		BirthDate:        optionalFrom(req.BirthDate),
		BloodType:        optionalFrom(req.BloodType),
		Allergies:        optionalFrom(req.Allergies),
		EmergencyContact: optionalFrom(req.EmergencyContact),
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profileResponse(profile))
}

func profileResponse(profile database.PatientProfile) fiber.Map {
	return fiber.Map{
		"id":                profile.ID,
		"full_name":         profile.FullName,
		"birth_date":        profile.BirthDate,
		"blood_type":        profile.BloodType,
		"allergies":         profile.Allergies,
		"emergency_contact": profile.EmergencyContact,
		"created_at":        profile.CreatedAt,
		"updated_at":        profile.UpdatedAt,
	}
}

func optionalFrom[T any](v *T) util.Optional[T] {
	if v == nil {
		return util.None[T]()
	}
	return util.Some(*v)
}
