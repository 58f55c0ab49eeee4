package account_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"recuerdamed/internal/account"
	"recuerdamed/internal/config"
	"recuerdamed/internal/database"
	"recuerdamed/internal/memstore"
	"recuerdamed/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthenticator() (account.Authenticator, *token.Issuer) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := token.NewIssuer(config.TokenConfig{
		Secret:   "test-secret",
		Issuer:   "recuerdamed-test",
		Lifetime: time.Hour,
	})
	return account.NewAuthenticator(logger, memstore.New(), issuer), issuer
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_user_and_valid_token", func(t *testing.T) {
		authenticator, issuer := newAuthenticator()

		user, signed, err := authenticator.Register(ctx, account.RegisterParams{
			Email:    "ana@example.com",
			Password: "correct horse",
			Role:     database.UserRolePatient,
		})
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, database.UserRolePatient, user.Role)

		identity, err := issuer.Verify(signed)
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.UserID)
		assert.Equal(t, "patient", identity.Role)
	})

	t.Run("duplicate_email_is_rejected", func(t *testing.T) {
		authenticator, _ := newAuthenticator()

		_, _, err := authenticator.Register(ctx, account.RegisterParams{
			Email: "ana@example.com", Password: "correct horse", Role: database.UserRolePatient,
		})
		require.NoError(t, err)

		_, _, err = authenticator.Register(ctx, account.RegisterParams{
			Email: "ana@example.com", Password: "different", Role: database.UserRoleCaregiver,
		})
		assert.ErrorIs(t, err, account.ErrEmailTaken)
	})

	t.Run("unknown_role_is_rejected", func(t *testing.T) {
		authenticator, _ := newAuthenticator()

		_, _, err := authenticator.Register(ctx, account.RegisterParams{
			Email: "ana@example.com", Password: "correct horse", Role: database.UserRole("admin"),
		})
		assert.ErrorIs(t, err, account.ErrInvalidRole)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrip", func(t *testing.T) {
		authenticator, issuer := newAuthenticator()

		registered, _, err := authenticator.Register(ctx, account.RegisterParams{
			Email: "ana@example.com", Password: "correct horse", Role: database.UserRoleCaregiver,
		})
		require.NoError(t, err)

		user, signed, err := authenticator.Login(ctx, account.LoginParams{
			Email: "ana@example.com", Password: "correct horse",
		})
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)

		identity, err := issuer.Verify(signed)
		require.NoError(t, err)
		assert.Equal(t, "caregiver", identity.Role)
	})

	t.Run("wrong_password_and_unknown_email_look_alike", func(t *testing.T) {
		authenticator, _ := newAuthenticator()

		_, _, err := authenticator.Register(ctx, account.RegisterParams{
			Email: "ana@example.com", Password: "correct horse", Role: database.UserRolePatient,
		})
		require.NoError(t, err)

		_, _, wrongPassword := authenticator.Login(ctx, account.LoginParams{
			Email: "ana@example.com", Password: "wrong",
		})
		_, _, unknownEmail := authenticator.Login(ctx, account.LoginParams{
			Email: "nobody@example.com", Password: "correct horse",
		})

		assert.ErrorIs(t, wrongPassword, account.ErrInvalidCredentials)
		assert.ErrorIs(t, unknownEmail, account.ErrInvalidCredentials)
		assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	})
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	authenticator, _ := newAuthenticator()

	registered, _, err := authenticator.Register(ctx, account.RegisterParams{
		Email: "ana@example.com", Password: "correct horse", Role: database.UserRolePatient,
	})
	require.NoError(t, err)

	user, err := authenticator.GetUser(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, registered.Email, user.Email)

	_, err = authenticator.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}
