package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booker/internal/testfixtures"
)

func newManager(t *testing.T, clock *testfixtures.Clock) *TokenManager {
	t.Helper()
	ids := testfixtures.NewIDGenerator("jti")
	m, err := NewTokenManager("test-secret", "room-booker", time.Hour,
		WithClock(clock.NowFunc()),
		WithIDGenerator(ids.NextFunc()),
	)
	require.NoError(t, err)
	return m
}

func TestTokenManager_GenerateAndValidate(t *testing.T) {
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	m := newManager(t, clock)

	identity := Identity{UserID: "1098765", Email: "alice@example.com", Domain: "example.com"}
	token, expiresAt, err := m.Generate(identity)
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(testfixtures.ReferenceTime().Add(time.Hour)))

	got, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	var claims Claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, "room-booker", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_RejectsExpiredTokens(t *testing.T) {
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	m := newManager(t, clock)

	token, _, err := m.Generate(Identity{UserID: "1"})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	m := newManager(t, clock)

	other, err := NewTokenManager("other-secret", "room-booker", time.Hour, WithClock(clock.NowFunc()))
	require.NoError(t, err)
	forged, _, err := other.Generate(Identity{UserID: "1"})
	require.NoError(t, err)

	wrongIssuer, err := NewTokenManager("test-secret", "someone-else", time.Hour, WithClock(clock.NowFunc()))
	require.NoError(t, err)
	foreign, _, err := wrongIssuer.Generate(Identity{UserID: "1"})
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "room-booker",
			ExpiresAt: jwt.NewNumericDate(testfixtures.ReferenceTime().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": forged,
		"wrong issuer": foreign,
		"alg none":     unsigned,
		"garbage":      "not.a.jwt",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenManager_ValidatesSettings(t *testing.T) {
	_, err := NewTokenManager("", "room-booker", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenManager("secret", "room-booker", 0)
	assert.Error(t, err)
}
