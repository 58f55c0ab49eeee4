package token

import (
	"testing"
	"time"

	"recuerdamed/internal/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(lifetime time.Duration) config.TokenConfig {
	return config.TokenConfig{
		Secret:   "test-secret",
		Issuer:   "recuerdamed-test",
		Lifetime: lifetime,
	}
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(testConfig(time.Hour))

	identity := Identity{UserID: uuid.New(), Role: "patient"}

	signed, err := issuer.Issue(identity)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	verified, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, identity.UserID, verified.UserID)
	assert.Equal(t, identity.Role, verified.Role)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer(testConfig(-time.Minute))

	signed, err := issuer.Issue(Identity{UserID: uuid.New(), Role: "caregiver"})
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewIssuer(testConfig(time.Hour))

	signed, err := issuer.Issue(Identity{UserID: uuid.New(), Role: "patient"})
	require.NoError(t, err)

	other := NewIssuer(config.TokenConfig{
		Secret:   "different-secret",
		Issuer:   "recuerdamed-test",
		Lifetime: time.Hour,
	})
	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	other := NewIssuer(config.TokenConfig{
		Secret:   "test-secret",
		Issuer:   "someone-else",
		Lifetime: time.Hour,
	})

	signed, err := other.Issue(Identity{UserID: uuid.New(), Role: "patient"})
	require.NoError(t, err)

	issuer := NewIssuer(testConfig(time.Hour))
	_, err = issuer.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewIssuer(testConfig(time.Hour))

	for _, raw := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := issuer.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
