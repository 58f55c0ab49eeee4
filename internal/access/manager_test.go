package access_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"recuerdamed/internal/access"
	"recuerdamed/internal/database"
	"recuerdamed/internal/memstore"
	"recuerdamed/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store   *memstore.Store
	manager access.Manager

	patient   access.Identity
	caregiver access.Identity
	profileID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	manager := access.NewManager(testLogger(), store)

	patientUser, err := store.CreateUser(ctx, database.CreateUserParams{
		Email: "patient@example.com", PasswordHash: "x", Role: database.UserRolePatient,
	})
	require.NoError(t, err)

	caregiverUser, err := store.CreateUser(ctx, database.CreateUserParams{
		Email: "caregiver@example.com", PasswordHash: "x", Role: database.UserRoleCaregiver,
	})
	require.NoError(t, err)

	profile, err := store.CreateProfile(ctx, database.CreateProfileParams{
		UserID:    patientUser.ID,
		FullName:  "Ana Martinez",
		BirthDate: util.Some(time.Date(1950, 3, 14, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	return &fixture{
		store:     store,
		manager:   manager,
		patient:   access.Identity{UserID: patientUser.ID, Role: database.UserRolePatient},
		caregiver: access.Identity{UserID: caregiverUser.ID, Role: database.UserRoleCaregiver},
		profileID: profile.ID,
	}
}

func TestLevelOrdering(t *testing.T) {
	assert.True(t, access.LevelRead.Covers(access.LevelRead))
	assert.False(t, access.LevelRead.Covers(access.LevelWrite))
	assert.False(t, access.LevelRead.Covers(access.LevelAdmin))

	assert.True(t, access.LevelWrite.Covers(access.LevelRead))
	assert.True(t, access.LevelWrite.Covers(access.LevelWrite))
	assert.False(t, access.LevelWrite.Covers(access.LevelAdmin))

	assert.True(t, access.LevelAdmin.Covers(access.LevelRead))
	assert.True(t, access.LevelAdmin.Covers(access.LevelWrite))
	assert.True(t, access.LevelAdmin.Covers(access.LevelAdmin))

	assert.False(t, access.Level("owner").Valid())
	assert.True(t, access.LevelWrite.Valid())
}

func TestCreateInvite(t *testing.T) {
	ctx := context.Background()

	t.Run("owner_gets_plaintext_code", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		assert.Len(t, invite.Code, access.InviteCodeLength)
		assert.False(t, invite.Used)
		assert.WithinDuration(t, time.Now().Add(access.InviteLifetime), invite.ExpiresAt, time.Minute)
	})

	t.Run("unknown_profile_is_not_found", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.CreateInvite(ctx, f.patient, uuid.New())
		assert.ErrorIs(t, err, access.ErrProfileNotFound)
	})

	t.Run("non_owner_is_denied", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.CreateInvite(ctx, f.caregiver, f.profileID)
		assert.ErrorIs(t, err, access.ErrPermissionDenied)
	})

	t.Run("listing_never_exposes_codes", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)

		invites, err := f.manager.ListInvites(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		require.Len(t, invites, 1)
		assert.Empty(t, invites[0].Code)
	})
}

func TestRedeemInvite(t *testing.T) {
	ctx := context.Background()

	t.Run("grants_read_level_by_default", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)

		grant, err := f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)
		assert.Equal(t, access.LevelRead, grant.Level)
		assert.Equal(t, f.profileID, grant.ProfileID)
		assert.Equal(t, f.caregiver.UserID, grant.CaregiverID)
	})

	t.Run("patient_cannot_redeem", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)

		_, err = f.manager.RedeemInvite(ctx, f.patient, invite.Code)
		assert.ErrorIs(t, err, access.ErrRoleMismatch)
	})

	t.Run("unknown_code_is_not_found", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.RedeemInvite(ctx, f.caregiver, "NOSUCHCD")
		assert.ErrorIs(t, err, access.ErrInviteNotFound)
	})

	t.Run("second_redemption_fails_for_any_caller", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)

		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)

		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		assert.ErrorIs(t, err, access.ErrInviteExpired)

		otherUser, err := f.store.CreateUser(ctx, database.CreateUserParams{
			Email: "other@example.com", PasswordHash: "x", Role: database.UserRoleCaregiver,
		})
		require.NoError(t, err)
		other := access.Identity{UserID: otherUser.ID, Role: database.UserRoleCaregiver}

		_, err = f.manager.RedeemInvite(ctx, other, invite.Code)
		assert.ErrorIs(t, err, access.ErrInviteExpired)
	})

	t.Run("expired_invite_fails", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)

		f.store.SetInviteExpiresAt(invite.ID, time.Now().Add(-time.Hour))

		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		assert.ErrorIs(t, err, access.ErrInviteExpired)
	})

	t.Run("just_inside_lifetime_still_redeems", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)

		f.store.SetInviteExpiresAt(invite.ID, time.Now().Add(time.Minute))

		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		assert.NoError(t, err)
	})

	t.Run("concurrent_redemption_has_one_winner", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)

		const attempts = 16
		callers := make([]access.Identity, attempts)
		for i := range callers {
			user, err := f.store.CreateUser(ctx, database.CreateUserParams{
				Email: uuid.NewString() + "@example.com", PasswordHash: "x", Role: database.UserRoleCaregiver,
			})
			require.NoError(t, err)
			callers[i] = access.Identity{UserID: user.ID, Role: database.UserRoleCaregiver}
		}

		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(caller access.Identity) {
				defer wg.Done()
				_, err := f.manager.RedeemInvite(ctx, caller, invite.Code)
				results <- err
			}(callers[i])
		}
		wg.Wait()
		close(results)

		var wins int
		for err := range results {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, access.ErrInviteExpired)
			}
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("existing_grant_keeps_its_level", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		first, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		_, err = f.manager.RedeemInvite(ctx, f.caregiver, first.Code)
		require.NoError(t, err)

		_, err = f.manager.UpdatePermissionLevel(ctx, f.patient, f.profileID, f.caregiver.UserID, access.LevelWrite)
		require.NoError(t, err)

		second, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		grant, err := f.manager.RedeemInvite(ctx, f.caregiver, second.Code)
		require.NoError(t, err)
		assert.Equal(t, access.LevelWrite, grant.Level)
	})
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()

	t.Run("owner_always_allowed", func(t *testing.T) {
		f := newFixture(t)

		assert.NoError(t, f.manager.Authorize(ctx, f.patient, f.profileID, access.LevelAdmin))
	})

	t.Run("no_grant_is_denied", func(t *testing.T) {
		f := newFixture(t)

		err := f.manager.Authorize(ctx, f.caregiver, f.profileID, access.LevelRead)
		assert.ErrorIs(t, err, access.ErrPermissionDenied)
	})

	t.Run("missing_profile_looks_like_denial", func(t *testing.T) {
		f := newFixture(t)

		err := f.manager.Authorize(ctx, f.caregiver, uuid.New(), access.LevelRead)
		assert.ErrorIs(t, err, access.ErrPermissionDenied)
	})

	t.Run("read_grant_covers_read_only", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)

		assert.NoError(t, f.manager.Authorize(ctx, f.caregiver, f.profileID, access.LevelRead))
		assert.ErrorIs(t, f.manager.Authorize(ctx, f.caregiver, f.profileID, access.LevelWrite), access.ErrPermissionDenied)
	})

	t.Run("revocation_takes_effect_immediately", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)
		require.NoError(t, f.manager.Authorize(ctx, f.caregiver, f.profileID, access.LevelRead))

		require.NoError(t, f.manager.RevokePermission(ctx, f.patient, f.profileID, f.caregiver.UserID))

		err = f.manager.Authorize(ctx, f.caregiver, f.profileID, access.LevelRead)
		assert.ErrorIs(t, err, access.ErrPermissionDenied)
	})
}

func TestPermissionManagement(t *testing.T) {
	ctx := context.Background()

	t.Run("patient_updates_level", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)

		grant, err := f.manager.UpdatePermissionLevel(ctx, f.patient, f.profileID, f.caregiver.UserID, access.LevelWrite)
		require.NoError(t, err)
		assert.Equal(t, access.LevelWrite, grant.Level)

		assert.NoError(t, f.manager.Authorize(ctx, f.caregiver, f.profileID, access.LevelWrite))
	})

	t.Run("invalid_level_rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.UpdatePermissionLevel(ctx, f.patient, f.profileID, f.caregiver.UserID, access.Level("superuser"))
		assert.ErrorIs(t, err, access.ErrInvalidLevel)
	})

	t.Run("caregiver_without_admin_cannot_manage", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)

		_, err = f.manager.ListCaregivers(ctx, f.caregiver, f.profileID)
		assert.ErrorIs(t, err, access.ErrPermissionDenied)
	})

	t.Run("admin_caregiver_can_manage", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)
		_, err = f.manager.UpdatePermissionLevel(ctx, f.patient, f.profileID, f.caregiver.UserID, access.LevelAdmin)
		require.NoError(t, err)

		caregivers, err := f.manager.ListCaregivers(ctx, f.caregiver, f.profileID)
		require.NoError(t, err)
		require.Len(t, caregivers, 1)
		assert.Equal(t, "caregiver@example.com", caregivers[0].Email)
	})

	t.Run("caregiver_lists_accessible_patients", func(t *testing.T) {
		f := newFixture(t)

		invite, err := f.manager.CreateInvite(ctx, f.patient, f.profileID)
		require.NoError(t, err)
		_, err = f.manager.RedeemInvite(ctx, f.caregiver, invite.Code)
		require.NoError(t, err)

		patients, err := f.manager.ListPatients(ctx, f.caregiver)
		require.NoError(t, err)
		require.Len(t, patients, 1)
		assert.Equal(t, f.profileID, patients[0].ProfileID)
		assert.Equal(t, "Ana Martinez", patients[0].FullName)
		assert.Equal(t, access.LevelRead, patients[0].Level)
	})

	t.Run("patient_role_cannot_list_patients", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.ListPatients(ctx, f.patient)
		assert.ErrorIs(t, err, access.ErrRoleMismatch)
	})
}
