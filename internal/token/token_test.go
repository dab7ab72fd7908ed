package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	signed, err := issuer.Issue("user@example.com", "signup")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "signup", claims.Purpose)
	assert.Equal(t, "user@example.com", claims.Subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signed, err := NewIssuer("secret-a", time.Hour).Issue("user@example.com", "signup")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	signed, err := NewIssuer("secret", -time.Minute).Issue("user@example.com", "signup")
	require.NoError(t, err)

	_, err = NewIssuer("secret", -time.Minute).Verify(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewIssuer("secret", time.Hour).Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
