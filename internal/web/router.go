package web

import (
	"context"
	"log/slog"
	"time"

	"recuerdamed/internal/access"
	"recuerdamed/internal/account"
	"recuerdamed/internal/care"
	"recuerdamed/internal/token"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Pinger reports storage health for the healthz endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	logger        *slog.Logger
	validate      *validator.Validate
	authenticator *account.Authenticator
	accessManager *access.Manager
	careManager   *care.Manager
	issuer        *token.Issuer
	pinger        Pinger
}

func NewHandler(logger *slog.Logger, authenticator *account.Authenticator, accessManager *access.Manager, careManager *care.Manager, issuer *token.Issuer, pinger Pinger) *Handler {
	return &Handler{
		logger:        logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		authenticator: authenticator,
		accessManager: accessManager,
		careManager:   careManager,
		issuer:        issuer,
		pinger:        pinger,
	}
}

// Router builds the fiber app with all routes registered. Extra middlewares
// (telemetry spans, request logging) run before routing.
func (h *Handler) Router(middlewares ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "recuerdamed",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	for _, middleware := range middlewares {
		app.Use(middleware)
	}
	app.Use(h.requestLogger())

	app.Get("/healthz", h.Healthz)

	api := app.Group("/api/v1")

	// Credential endpoints are brute-force targets.
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 15 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many attempts. Please try again later.",
			})
		},
	})

	api.Post("/auth/register", authLimiter, h.Register)
	api.Post("/auth/login", authLimiter, h.Login)

	authed := api.Group("", h.RequireAuth())

	authed.Get("/profile", h.GetProfile)
	authed.Put("/profile", h.SaveProfile)

	// Redemption is rate limited so invite codes cannot be guessed.
	redeemLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Hour,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many attempts. Please try again later.",
			})
		},
	})

	authed.Post("/invites", h.CreateInvite)
	authed.Get("/invites", h.ListInvites)
	authed.Post("/invites/redeem", redeemLimiter, h.RedeemInvite)

	authed.Get("/patients", h.ListPatients)
	authed.Get("/caregivers", h.ListCaregivers)
	authed.Patch("/caregivers/:caregiverID", h.UpdateCaregiverLevel)
	authed.Delete("/caregivers/:caregiverID", h.RevokeCaregiver)

	patients := authed.Group("/patients/:profileID")

	patients.Get("/medications", h.ListMedications)
	patients.Post("/medications", h.CreateMedication)
	patients.Get("/medications/:medicationID", h.GetMedication)
	patients.Put("/medications/:medicationID", h.UpdateMedication)
	patients.Delete("/medications/:medicationID", h.DeleteMedication)

	patients.Get("/appointments", h.ListAppointments)
	patients.Post("/appointments", h.CreateAppointment)
	patients.Get("/appointments/:appointmentID", h.GetAppointment)
	patients.Put("/appointments/:appointmentID", h.UpdateAppointment)
	patients.Delete("/appointments/:appointmentID", h.DeleteAppointment)

	patients.Get("/treatments", h.ListTreatments)
	patients.Post("/treatments", h.CreateTreatment)
	patients.Get("/treatments/:treatmentID", h.GetTreatment)
	patients.Put("/treatments/:treatmentID", h.UpdateTreatment)
	patients.Delete("/treatments/:treatmentID", h.DeleteTreatment)

	patients.Get("/notes", h.ListNotes)
	patients.Post("/notes", h.CreateNote)
	patients.Get("/notes/:noteID", h.GetNote)
	patients.Put("/notes/:noteID", h.UpdateNote)
	patients.Delete("/notes/:noteID", h.DeleteNote)

	patients.Get("/schedule", h.GetSchedule)

	authed.Post("/push/subscriptions", h.CreatePushSubscription)
	authed.Get("/push/subscriptions", h.ListPushSubscriptions)
	authed.Delete("/push/subscriptions/:subscriptionID", h.DeletePushSubscription)

	return app
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	if err := h.pinger.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}

func (h *Handler) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		h.logger.InfoContext(c.Context(), "request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)))

		return err
	}
}
