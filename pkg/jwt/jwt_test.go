package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTripsCustomClaims(t *testing.T) {
	tok, err := Generate("secret", "user-1", 7, "commercial", "bc-sync-api", 5)
	require.NoError(t, err)

	claims, err := Parse("secret", tok)

	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, int64(7), claims.SalespersonID)
	assert.Equal(t, "commercial", claims.Role)
	assert.Equal(t, "bc-sync-api", claims.Issuer)
}

func TestParse_Rejects(t *testing.T) {
	valid, err := Generate("secret", "user-1", 0, "admin", "bc-sync-api", 5)
	require.NoError(t, err)
	expired, err := Generate("secret", "user-1", 0, "admin", "bc-sync-api", -5)
	require.NoError(t, err)

	_, err = Parse("otro-secret", valid)
	assert.Error(t, err, "firma incorrecta")
	_, err = Parse("secret", expired)
	assert.Error(t, err, "token expirado")
	_, err = Parse("", valid)
	assert.Error(t, err, "secret vacío")
	_, err = Parse("secret", "no.es.jwt")
	assert.Error(t, err)
}

func TestGenerate_RequiresSecret(t *testing.T) {
	_, err := Generate("", "user-1", 0, "admin", "bc-sync-api", 5)
	assert.Error(t, err)
}
