package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", time.Hour)

	token, expiresAt, err := svc.GenerateDeviceToken("ana@campus.ac.id", "staff")
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	email, role, err := svc.ValidateDeviceToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@campus.ac.id", email)
	assert.Equal(t, "staff", role)
}

func TestDeviceToken_WrongSecret(t *testing.T) {
	token, _, err := NewJWTService("secret-a", time.Hour).GenerateDeviceToken("ana@campus.ac.id", "staff")
	require.NoError(t, err)

	_, _, err = NewJWTService("secret-b", time.Hour).ValidateDeviceToken(token)
	assert.Error(t, err)
}

func TestDeviceToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", -time.Hour)

	token, _, err := svc.GenerateDeviceToken("ana@campus.ac.id", "staff")
	require.NoError(t, err)

	_, _, err = svc.ValidateDeviceToken(token)
	assert.Error(t, err)
}

func TestDeviceToken_WrongType(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", time.Hour)
	_, token, err := svc.JWTAuth().Encode(map[string]interface{}{
		"email": "ana@campus.ac.id",
		"role":  "staff",
		"type":  "access",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, _, err = svc.ValidateDeviceToken(token)
	assert.Error(t, err)
}

func TestDeviceToken_RequiresIdentity(t *testing.T) {
	svc := NewJWTService("test-secret-key-for-jwt", time.Hour)
	_, _, err := svc.GenerateDeviceToken("", "staff")
	assert.Error(t, err)
}
