package web

import (
	"errors"
	"fmt"
	"log/slog"

	"recuerdamed/internal/access"
	"recuerdamed/internal/account"
	"recuerdamed/internal/care"
	"recuerdamed/internal/database"
	"recuerdamed/internal/token"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var (
	errInvalidBody = errors.New("invalid request body")
	errInvalidID   = errors.New("invalid identifier")
)

// respondError maps domain errors to HTTP responses in one place. Anything
// unrecognized becomes an opaque 500 with the detail logged server-side only.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": validationErrs.Error(),
		})
	}

	switch {
	case errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidID),
		errors.Is(err, account.ErrInvalidRole),
		errors.Is(err, access.ErrInvalidLevel),
		errors.Is(err, care.ErrInvalidDateRange):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})

	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, token.ErrInvalidToken):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})

	case errors.Is(err, access.ErrPermissionDenied),
		errors.Is(err, access.ErrRoleMismatch),
		errors.Is(err, care.ErrRoleMismatch):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Permission denied",
		})

	case errors.Is(err, access.ErrProfileNotFound),
		errors.Is(err, care.ErrProfileNotFound),
		errors.Is(err, access.ErrInviteNotFound),
		errors.Is(err, database.ErrMedicationNotFound),
		errors.Is(err, database.ErrAppointmentNotFound),
		errors.Is(err, database.ErrTreatmentNotFound),
		errors.Is(err, database.ErrNoteNotFound),
		errors.Is(err, database.ErrPushSubscriptionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})

	case errors.Is(err, account.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already in use",
		})

	case errors.Is(err, access.ErrInviteExpired):
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Invite already used or expired",
		})
	}

	h.logger.ErrorContext(c.Context(), "request failed",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Any("error", err))

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

// parseBody decodes and validates a JSON request body. The returned error is
// meant to be handed straight to respondError.
func (h *Handler) parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return errInvalidBody
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("request validation: %w", err)
	}
	return nil
}
