package jwtutil

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUtil() *JWTUtil {
	return NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: 1, PortalExpirationHours: 1})
}

func TestGenerateTokenWithTenant(t *testing.T) {
	j := newTestUtil()
	tenantID := uint(7)

	token, err := j.GenerateTokenWithTenant("a@shop.test", 3, &tenantID, "Shop", "manager")
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, uint(7), *claims.TenantID)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, ScopeStaff, claims.Scope)
	assert.Nil(t, claims.ClientID)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	again, err := j.GenerateTokenWithTenant("a@shop.test", 3, &tenantID, "Shop", "manager")
	require.NoError(t, err)
	second, err := j.ValidateToken(again)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, second.ID)
}

func TestGeneratePortalToken(t *testing.T) {
	j := newTestUtil()

	token, err := j.GeneratePortalToken("client@mail.test", 11, 7)
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, ScopePortal, claims.Scope)
	assert.Equal(t, "client", claims.Role)
	require.NotNil(t, claims.ClientID)
	assert.Equal(t, uint(11), *claims.ClientID)
}

func TestValidateTokenRejects(t *testing.T) {
	j := newTestUtil()

	t.Run("wrong key", func(t *testing.T) {
		other := NewJWTUtil(&JWTConfig{SigningKey: "other", ExpirationHours: 1})
		token, err := other.GenerateTokenWithTenant("a@shop.test", 1, nil, "", "admin")
		require.NoError(t, err)

		_, err = j.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: -1})
		token, err := expired.GenerateTokenWithTenant("a@shop.test", 1, nil, "", "admin")
		require.NoError(t, err)

		_, err = j.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &UserClaims{Email: "x"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = j.ValidateToken(signed)
		assert.Error(t, err)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
			Email:            "x",
			Scope:            ScopeStaff,
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
		})
		signed, err := token.SignedString([]byte("test-key"))
		require.NoError(t, err)

		_, err = j.ValidateToken(signed)
		assert.Error(t, err)
	})

	t.Run("no config", func(t *testing.T) {
		_, err := NewJWTUtil(nil).ValidateToken("abc")
		assert.Error(t, err)
	})
}
