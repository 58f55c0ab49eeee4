package web

import (
	"recuerdamed/internal/account"
	"recuerdamed/internal/database"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=patient caregiver"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	user, signed, err := h.authenticator.Register(c.Context(), account.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Role:     database.UserRole(req.Role),
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":  userResponse(user),
		"token": signed,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	user, signed, err := h.authenticator.Login(c.Context(), account.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user":  userResponse(user),
		"token": signed,
	})
}

func userResponse(user account.User) fiber.Map {
	return fiber.Map{
		"id":         user.ID,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	}
}
