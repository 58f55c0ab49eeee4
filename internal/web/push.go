package web

import (
	"recuerdamed/internal/care"

	"github.com/gofiber/fiber/v2"
)

type pushSubscriptionRequest struct {
	Endpoint  string `json:"endpoint" validate:"required,url"`
	P256DHKey string `json:"p256dh_key" validate:"required"`
	AuthKey   string `json:"auth_key" validate:"required"`
}

func (h *Handler) CreatePushSubscription(c *fiber.Ctx) error {
	var req pushSubscriptionRequest
	if err := h.parseBody(c, &req); err != nil {
		return h.respondError(c, err)
	}

	subscription, err := h.careManager.CreatePushSubscription(c.Context(), callerIdentity(c), care.PushSubscriptionParams{
		Endpoint:  req.Endpoint,
		P256DHKey: req.P256DHKey,
		AuthKey:   req.AuthKey,
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         subscription.ID,
		"endpoint":   subscription.Endpoint,
		"created_at": subscription.CreatedAt,
	})
}

func (h *Handler) ListPushSubscriptions(c *fiber.Ctx) error {
	subscriptions, err := h.careManager.ListPushSubscriptions(c.Context(), callerIdentity(c))
	if err != nil {
		return h.respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		items = append(items, fiber.Map{
			"id":         subscription.ID,
			"endpoint":   subscription.Endpoint,
			"created_at": subscription.CreatedAt,
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"subscriptions": items})
}

func (h *Handler) DeletePushSubscription(c *fiber.Ctx) error {
	id, err := pathUUID(c, "subscriptionID")
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.careManager.DeletePushSubscription(c.Context(), callerIdentity(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
