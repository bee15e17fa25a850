package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	tok, exp, err := ti.Generate(7, "u@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ti.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
}

func TestTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	tok, _, err := ti.Generate(1, "a@b.c")
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", time.Hour).Parse(tok)
	assert.Error(t, err)

	later := NewTokenIssuer("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Parse(tok)
	assert.Error(t, err)
}
