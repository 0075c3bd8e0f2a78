package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testSecret = "test-signing-secret"

func parseEmbedToken(t *testing.T, signed string) *EmbedClaims {
	t.Helper()

	claims := &EmbedClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		assert.Equal(t, jwt.SigningMethodHS256, token.Method)
		return []byte(testSecret), nil
	})
	assert.NoError(t, err)
	assert.True(t, token.Valid)

	return claims
}

func TestTokenService_IssueToken_Claims(t *testing.T) {
	service := NewTokenService(testSecret, time.Hour, nil, zap.NewNop())

	signed, expiresAt, err := service.IssueToken(7, Profile{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
	})

	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims := parseEmbedToken(t, signed)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "Jane", claims.FirstName)
	assert.Equal(t, "Doe", claims.LastName)
	assert.Equal(t, []string{"Tenant_7"}, claims.Groups)
	assert.Equal(t, int64(7), claims.ProjectID)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestTokenService_IssueToken_NameFallbacks(t *testing.T) {
	service := NewTokenService(testSecret, time.Hour, nil, zap.NewNop())

	signed, _, err := service.IssueToken(7, Profile{Email: "jane@example.com"})

	assert.NoError(t, err)

	claims := parseEmbedToken(t, signed)
	assert.Equal(t, "User", claims.FirstName)
	assert.Equal(t, "Soffront", claims.LastName)
}

func TestTokenService_IssueToken_DefaultTTL(t *testing.T) {
	service := NewTokenService(testSecret, 0, nil, zap.NewNop())

	_, expiresAt, err := service.IssueToken(7, Profile{Email: "jane@example.com"})

	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, 5*time.Second)
}

func TestTokenService_IssueToken_InvalidTenant(t *testing.T) {
	service := NewTokenService(testSecret, time.Hour, nil, zap.NewNop())

	_, _, err := service.IssueToken(0, Profile{Email: "jane@example.com"})

	assert.ErrorIs(t, err, ErrInvalidTenant)
}
