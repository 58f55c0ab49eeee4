package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recuerdamed/internal/access"
	"recuerdamed/internal/account"
	"recuerdamed/internal/care"
	"recuerdamed/internal/config"
	"recuerdamed/internal/memstore"
	"recuerdamed/internal/token"
	"recuerdamed/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	app   *fiber.App
	store *memstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memstore.New()
	issuer := token.NewIssuer(config.TokenConfig{
		Secret:   "test-secret",
		Issuer:   "recuerdamed-test",
		Lifetime: time.Hour,
	})
	authenticator := account.NewAuthenticator(logger, store, issuer)
	accessManager := access.NewManager(logger, store)
	careManager := care.NewManager(logger, store, &accessManager)

	handler := web.NewHandler(logger, &authenticator, &accessManager, &careManager, issuer, store)
	return &testEnv{app: handler.Router(), store: store}
}

func (e *testEnv) request(t *testing.T, method, url, bearer string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(jsonBody)
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// register creates an account through the API and returns its bearer token.
func (e *testEnv) register(t *testing.T, email, role string) string {
	t.Helper()

	resp := e.request(t, "POST", "/api/v1/auth/register", "", fiber.Map{
		"email":    email,
		"password": "a long password",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	bearer, ok := body["token"].(string)
	require.True(t, ok)
	return bearer
}

// saveProfile creates the patient's profile and returns its ID.
func (e *testEnv) saveProfile(t *testing.T, bearer, fullName string) string {
	t.Helper()

	resp := e.request(t, "PUT", "/api/v1/profile", bearer, fiber.Map{
		"full_name": fullName,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	id, ok := body["id"].(string)
	require.True(t, ok)
	return id
}

// inviteAndRedeem runs the full grant flow and returns the profile ID.
func (e *testEnv) inviteAndRedeem(t *testing.T, patientBearer, caregiverBearer string) string {
	t.Helper()

	profileID := e.saveProfile(t, patientBearer, "Ana Martinez")

	resp := e.request(t, "POST", "/api/v1/invites", patientBearer, fiber.Map{
		"profile_id": profileID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	code := decodeBody(t, resp)["code"].(string)

	resp = e.request(t, "POST", "/api/v1/invites/redeem", caregiverBearer, fiber.Map{
		"code": code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "read", decodeBody(t, resp)["level"])

	return profileID
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("register_then_login", func(t *testing.T) {
		env := newTestEnv(t)

		bearer := env.register(t, "ana@example.com", "patient")
		require.NotEmpty(t, bearer)

		resp := env.request(t, "POST", "/api/v1/auth/login", "", fiber.Map{
			"email":    "ana@example.com",
			"password": "a long password",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		user := body["user"].(map[string]any)
		assert.Equal(t, "ana@example.com", user["email"])
		assert.Equal(t, "patient", user["role"])
	})

	t.Run("duplicate_email_conflicts", func(t *testing.T) {
		env := newTestEnv(t)
		env.register(t, "ana@example.com", "patient")

		resp := env.request(t, "POST", "/api/v1/auth/register", "", fiber.Map{
			"email":    "ana@example.com",
			"password": "a long password",
			"role":     "caregiver",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("validation_failures_are_bad_requests", func(t *testing.T) {
		env := newTestEnv(t)

		for name, body := range map[string]fiber.Map{
			"missing_email":  {"password": "a long password", "role": "patient"},
			"short_password": {"email": "ana@example.com", "password": "short", "role": "patient"},
			"unknown_role":   {"email": "ana@example.com", "password": "a long password", "role": "admin"},
		} {
			resp := env.request(t, "POST", "/api/v1/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, name)
		}
	})

	t.Run("wrong_password_is_unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		env.register(t, "ana@example.com", "patient")

		resp := env.request(t, "POST", "/api/v1/auth/login", "", fiber.Map{
			"email":    "ana@example.com",
			"password": "not the password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("login_is_rate_limited", func(t *testing.T) {
		env := newTestEnv(t)

		var last int
		for i := 0; i < 11; i++ {
			resp := env.request(t, "POST", "/api/v1/auth/login", "", fiber.Map{
				"email":    "nobody@example.com",
				"password": "a long password",
			})
			last = resp.StatusCode
		}
		assert.Equal(t, http.StatusTooManyRequests, last)
	})
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing_header", func(t *testing.T) {
		resp := env.request(t, "GET", "/api/v1/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage_token", func(t *testing.T) {
		resp := env.request(t, "GET", "/api/v1/profile", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestProfileEndpoints(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.register(t, "ana@example.com", "patient")

	resp := env.request(t, "GET", "/api/v1/profile", bearer, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, "PUT", "/api/v1/profile", bearer, fiber.Map{
		"full_name":  "Ana Martinez",
		"blood_type": "O+",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, "GET", "/api/v1/profile", bearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Ana Martinez", body["full_name"])
	assert.Equal(t, "O+", body["blood_type"])
}

func TestInviteFlow(t *testing.T) {
	t.Run("grant_opens_read_access", func(t *testing.T) {
		env := newTestEnv(t)
		patient := env.register(t, "ana@example.com", "patient")
		caregiver := env.register(t, "carlos@example.com", "caregiver")

		profileID := env.inviteAndRedeem(t, patient, caregiver)

		resp := env.request(t, "GET", "/api/v1/patients/"+profileID+"/medications", caregiver, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = env.request(t, "GET", "/api/v1/patients", caregiver, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		patients := decodeBody(t, resp)["patients"].([]any)
		require.Len(t, patients, 1)
		assert.Equal(t, "Ana Martinez", patients[0].(map[string]any)["full_name"])
	})

	t.Run("read_level_cannot_mutate", func(t *testing.T) {
		env := newTestEnv(t)
		patient := env.register(t, "ana@example.com", "patient")
		caregiver := env.register(t, "carlos@example.com", "caregiver")

		profileID := env.inviteAndRedeem(t, patient, caregiver)

		resp := env.request(t, "POST", "/api/v1/patients/"+profileID+"/medications", caregiver, fiber.Map{
			"name":       "Metformin",
			"dosage":     "500mg",
			"frequency":  "daily",
			"start_date": "2026-09-01T00:00:00Z",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("used_code_is_gone", func(t *testing.T) {
		env := newTestEnv(t)
		patient := env.register(t, "ana@example.com", "patient")
		caregiver := env.register(t, "carlos@example.com", "caregiver")
		profileID := env.saveProfile(t, patient, "Ana Martinez")

		resp := env.request(t, "POST", "/api/v1/invites", patient, fiber.Map{"profile_id": profileID})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		code := decodeBody(t, resp)["code"].(string)

		resp = env.request(t, "POST", "/api/v1/invites/redeem", caregiver, fiber.Map{"code": code})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = env.request(t, "POST", "/api/v1/invites/redeem", caregiver, fiber.Map{"code": code})
		assert.Equal(t, http.StatusGone, resp.StatusCode)
	})

	t.Run("unknown_code_is_not_found", func(t *testing.T) {
		env := newTestEnv(t)
		caregiver := env.register(t, "carlos@example.com", "caregiver")

		resp := env.request(t, "POST", "/api/v1/invites/redeem", caregiver, fiber.Map{"code": "AAAA2222"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("patient_cannot_redeem", func(t *testing.T) {
		env := newTestEnv(t)
		patient := env.register(t, "ana@example.com", "patient")
		profileID := env.saveProfile(t, patient, "Ana Martinez")

		resp := env.request(t, "POST", "/api/v1/invites", patient, fiber.Map{"profile_id": profileID})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		code := decodeBody(t, resp)["code"].(string)

		resp = env.request(t, "POST", "/api/v1/invites/redeem", patient, fiber.Map{"code": code})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("listing_omits_codes", func(t *testing.T) {
		env := newTestEnv(t)
		patient := env.register(t, "ana@example.com", "patient")
		profileID := env.saveProfile(t, patient, "Ana Martinez")

		resp := env.request(t, "POST", "/api/v1/invites", patient, fiber.Map{"profile_id": profileID})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = env.request(t, "GET", "/api/v1/invites?profile_id="+profileID, patient, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		invites := decodeBody(t, resp)["invites"].([]any)
		require.Len(t, invites, 1)
		assert.NotContains(t, invites[0].(map[string]any), "code")
	})
}

func TestPermissionManagementEndpoints(t *testing.T) {
	env := newTestEnv(t)
	patient := env.register(t, "ana@example.com", "patient")
	caregiver := env.register(t, "carlos@example.com", "caregiver")
	profileID := env.inviteAndRedeem(t, patient, caregiver)

	resp := env.request(t, "GET", "/api/v1/caregivers?profile_id="+profileID, patient, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	caregivers := decodeBody(t, resp)["caregivers"].([]any)
	require.Len(t, caregivers, 1)
	caregiverID := caregivers[0].(map[string]any)["caregiver_id"].(string)

	// Raise to write: mutations start succeeding.
	resp = env.request(t, "PATCH", "/api/v1/caregivers/"+caregiverID, patient, fiber.Map{
		"profile_id": profileID,
		"level":      "write",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, "POST", "/api/v1/patients/"+profileID+"/medications", caregiver, fiber.Map{
		"name":       "Metformin",
		"dosage":     "500mg",
		"frequency":  "daily",
		"start_date": "2026-09-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Revoke: the very next request is denied.
	resp = env.request(t, "DELETE", "/api/v1/caregivers/"+caregiverID, patient, fiber.Map{
		"profile_id": profileID,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.request(t, "GET", "/api/v1/patients/"+profileID+"/medications", caregiver, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDenialDoesNotLeakExistence(t *testing.T) {
	env := newTestEnv(t)
	patient := env.register(t, "ana@example.com", "patient")
	caregiver := env.register(t, "carlos@example.com", "caregiver")
	profileID := env.saveProfile(t, patient, "Ana Martinez")

	real := env.request(t, "GET", "/api/v1/patients/"+profileID+"/medications", caregiver, nil)
	fake := env.request(t, "GET", "/api/v1/patients/01234567-89ab-cdef-0123-456789abcdef/medications", caregiver, nil)

	assert.Equal(t, http.StatusForbidden, real.StatusCode)
	assert.Equal(t, http.StatusForbidden, fake.StatusCode)
	assert.Equal(t, decodeBody(t, real), decodeBody(t, fake))
}

func TestClinicalEndpoints(t *testing.T) {
	env := newTestEnv(t)
	patient := env.register(t, "ana@example.com", "patient")
	profileID := env.saveProfile(t, patient, "Ana Martinez")
	base := "/api/v1/patients/" + profileID

	t.Run("medication_crud", func(t *testing.T) {
		resp := env.request(t, "POST", base+"/medications", patient, fiber.Map{
			"name":           "Metformin",
			"dosage":         "500mg",
			"frequency":      "twice daily",
			"schedule_times": []string{"08:00", "20:00"},
			"start_date":     "2026-09-01T00:00:00Z",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		medicationID := decodeBody(t, resp)["id"].(string)

		resp = env.request(t, "PUT", base+"/medications/"+medicationID, patient, fiber.Map{
			"name":       "Metformin",
			"dosage":     "850mg",
			"frequency":  "twice daily",
			"start_date": "2026-09-01T00:00:00Z",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "850mg", decodeBody(t, resp)["dosage"])

		resp = env.request(t, "DELETE", base+"/medications/"+medicationID, patient, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = env.request(t, "GET", base+"/medications/"+medicationID, patient, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("medication_created_inactive", func(t *testing.T) {
		resp := env.request(t, "POST", base+"/medications", patient, fiber.Map{
			"name":       "Insulin",
			"dosage":     "10 units",
			"frequency":  "daily",
			"start_date": "2026-10-01T00:00:00Z",
			"active":     false,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, false, decodeBody(t, resp)["active"])
	})

	t.Run("treatment_status_validated", func(t *testing.T) {
		resp := env.request(t, "POST", base+"/treatments", patient, fiber.Map{
			"name":       "Physiotherapy",
			"start_date": "2026-09-01T00:00:00Z",
			"status":     "paused",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = env.request(t, "POST", base+"/treatments", patient, fiber.Map{
			"name":       "Physiotherapy",
			"start_date": "2026-09-01T00:00:00Z",
			"status":     "active",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("note_crud", func(t *testing.T) {
		resp := env.request(t, "POST", base+"/notes", patient, fiber.Map{
			"title":  "Allergy flare",
			"body":   "Started after dinner.",
			"pinned": true,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		noteID := decodeBody(t, resp)["id"].(string)

		resp = env.request(t, "GET", base+"/notes/"+noteID, patient, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, decodeBody(t, resp)["pinned"])
	})

	t.Run("malformed_ids_are_bad_requests", func(t *testing.T) {
		resp := env.request(t, "GET", base+"/medications/not-a-uuid", patient, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestScheduleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	patient := env.register(t, "ana@example.com", "patient")
	profileID := env.saveProfile(t, patient, "Ana Martinez")
	base := "/api/v1/patients/" + profileID

	resp := env.request(t, "POST", base+"/medications", patient, fiber.Map{
		"name":           "Metformin",
		"dosage":         "500mg",
		"frequency":      "twice daily",
		"schedule_times": []string{"08:00", "20:00"},
		"start_date":     "2026-09-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, "POST", base+"/appointments", patient, fiber.Map{
		"title":        "Cardiology checkup",
		"scheduled_at": "2026-09-02T15:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, "GET", base+"/schedule?from=2026-09-01&to=2026-09-02", patient, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	days := decodeBody(t, resp)["days"].([]any)
	require.Len(t, days, 2)

	first := days[0].(map[string]any)
	assert.Equal(t, "2026-09-01", first["date"])
	assert.Len(t, first["doses"].([]any), 2)
	assert.Empty(t, first["appointments"].([]any))

	second := days[1].(map[string]any)
	assert.Len(t, second["appointments"].([]any), 1)

	resp = env.request(t, "GET", base+"/schedule?from=2026-09-02&to=2026-09-01", patient, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, "GET", base+"/schedule?from=bogus&to=2026-09-01", patient, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPushSubscriptionEndpoints(t *testing.T) {
	env := newTestEnv(t)
	patient := env.register(t, "ana@example.com", "patient")

	resp := env.request(t, "POST", "/api/v1/push/subscriptions", patient, fiber.Map{
		"endpoint":   "https://push.example.com/sub/abc",
		"p256dh_key": "p256dh",
		"auth_key":   "auth",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	subscriptionID := decodeBody(t, resp)["id"].(string)

	resp = env.request(t, "GET", "/api/v1/push/subscriptions", patient, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["subscriptions"].([]any), 1)

	resp = env.request(t, "DELETE", "/api/v1/push/subscriptions/"+subscriptionID, patient, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
