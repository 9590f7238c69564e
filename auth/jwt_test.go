package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndResolve(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.Issue("alice", "voter")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "voter", claims.Role)

	// Expiry is roughly one hour out
	require.NotNil(t, claims.ExpiresAt)
	remaining := time.Until(claims.ExpiresAt.Time)
	assert.Greater(t, remaining, 55*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour)
}

func TestResolve_WrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").Issue("bob", "admin")
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").Resolve(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve_Garbage(t *testing.T) {
	svc := NewTokenService("test-secret")

	_, err := svc.Resolve("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Resolve("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve_Expired(t *testing.T) {
	secret := "test-secret"
	claims := &Claims{
		Role: "voter",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "carol",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = NewTokenService(secret).Resolve(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolve_RejectsNonHMAC(t *testing.T) {
	// Token signed with "none" must never pass
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "mallory"}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService("test-secret").Resolve(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
