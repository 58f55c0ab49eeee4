package web

import (
	"recuerdamed/internal/access"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createInviteRequest struct {
	ProfileID uuid.UUID `json:"profile_id" validate:"required"`
}

// CreateInvite issues a single-use caregiver invite. The plaintext code
// appears in this response and nowhere else.
func (h *Handler) CreateInvite(c *fiber.Ctx) error {
	var req createInviteRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	invite, err := h.accessManager.CreateInvite(c.Context(), callerIdentity(c), req.ProfileID)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         invite.ID,
		"code":       invite.Code,
		"profile_id": invite.ProfileID,
		"expires_at": invite.ExpiresAt,
		"created_at": invite.CreatedAt,
	})
}

func (h *Handler) ListInvites(c *fiber.Ctx) error {
	profileID, err := uuid.Parse(c.Query("profile_id"))
	if err != nil {
		return h.respondError(c, errInvalidID)
	}

	invites, err := h.accessManager.ListInvites(c.Context(), callerIdentity(c), profileID)
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(invites))
	for _, invite := range invites {
		items = append(items, fiber.Map{
			"id":         invite.ID,
			"profile_id": invite.ProfileID,
			"expires_at": invite.ExpiresAt,
			"used":       invite.Used,
			"created_at": invite.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"invites": items})
}

type redeemInviteRequest struct {
	Code string `json:"code" validate:"required,len=8"`
}

func (h *Handler) RedeemInvite(c *fiber.Ctx) error {
	var req redeemInviteRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	grant, err := h.accessManager.RedeemInvite(c.Context(), callerIdentity(c), req.Code)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"profile_id":   grant.ProfileID,
		"caregiver_id": grant.CaregiverID,
		"level":        grant.Level,
		"created_at":   grant.CreatedAt,
	})
}

func (h *Handler) ListPatients(c *fiber.Ctx) error {
	patients, err := h.accessManager.ListPatients(c.Context(), callerIdentity(c))
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(patients))
	for _, patient := range patients {
		items = append(items, fiber.Map{
			"profile_id": patient.ProfileID,
			"full_name":  patient.FullName,
			"level":      patient.Level,
			"created_at": patient.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"patients": items})
}

func (h *Handler) ListCaregivers(c *fiber.Ctx) error {
	profileID, err := uuid.Parse(c.Query("profile_id"))
	if err != nil {
		return h.respondError(c, errInvalidID)
	}

	caregivers, err := h.accessManager.ListCaregivers(c.Context(), callerIdentity(c), profileID)
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(caregivers))
	for _, caregiver := range caregivers {
		items = append(items, fiber.Map{
			"caregiver_id": caregiver.CaregiverID,
			"email":        caregiver.Email,
			"level":        caregiver.Level,
			"created_at":   caregiver.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"caregivers": items})
}

type updatePermissionRequest struct {
	ProfileID uuid.UUID `json:"profile_id" validate:"required"`
	Level     string    `json:"level" validate:"required,oneof=read write admin"`
}

func (h *Handler) UpdateCaregiverLevel(c *fiber.Ctx) error {
	caregiverID, err := uuid.Parse(c.Params("caregiverID"))
	if err != nil {
		return h.respondError(c, errInvalidID)
	}

	var req updatePermissionRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	grant, err := h.accessManager.UpdatePermissionLevel(c.Context(), callerIdentity(c), req.ProfileID, caregiverID, access.Level(req.Level))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"profile_id":   grant.ProfileID,
		"caregiver_id": grant.CaregiverID,
		"level":        grant.Level,
	})
}

type revokePermissionRequest struct {
	ProfileID uuid.UUID `json:"profile_id" validate:"required"`
}

func (h *Handler) RevokeCaregiver(c *fiber.Ctx) error {
	caregiverID, err := uuid.Parse(c.Params("caregiverID"))
	if err != nil {
		return h.respondError(c, errInvalidID)
	}

	var req revokePermissionRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	if err := h.accessManager.RevokePermission(c.Context(), callerIdentity(c), req.ProfileID, caregiverID); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
