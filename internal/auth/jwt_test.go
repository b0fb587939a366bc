package auth_test

import (
	"testing"
	"time"

	"matchchat/backend/internal/auth"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := auth.NewJWTService("test-secret", "matchchat")

	token, err := svc.Issue("user-1", time.Hour)
	require.NoError(t, err)

	userID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerify_Expired(t *testing.T) {
	svc := auth.NewJWTService("test-secret", "matchchat")
	issued := time.Now().Add(-2 * time.Hour)
	svc.Now = func() time.Time { return issued }

	token, err := svc.Issue("user-1", time.Hour)
	require.NoError(t, err)

	svc.Now = time.Now
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_WrongSecretOrIssuer(t *testing.T) {
	token, err := auth.NewJWTService("secret-a", "matchchat").Issue("user-1", time.Hour)
	require.NoError(t, err)

	_, err = auth.NewJWTService("secret-b", "matchchat").Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = auth.NewJWTService("secret-a", "other").Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "matchchat",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewJWTService("test-secret", "matchchat").Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := auth.NewJWTService("s", "i").Verify("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestIssue_EmptyUser(t *testing.T) {
	_, err := auth.NewJWTService("s", "i").Issue("", time.Hour)
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	tok, ok := auth.BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = auth.BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = auth.BearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = auth.BearerToken("")
	assert.False(t, ok)
}
