package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/soffront/metabase-provisioner/internal/metrics"
)

const (
	defaultFirstName = "User"
	defaultLastName  = "Soffront"
)

// Profile carries the optional user attributes embedded in a token.
type Profile struct {
	Email     string
	FirstName string
	LastName  string
}

// EmbedClaims is the JWT payload consumed by the embedded analytics frontend.
type EmbedClaims struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Groups    []string `json:"groups"`
	ProjectID int64    `json:"project_id"`
	jwt.RegisteredClaims
}

// TokenService issues signed embed tokens scoped to a tenant's group.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTokenService creates a new token service
func NewTokenService(secret string, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		metrics: m,
		logger:  logger,
	}
}

// IssueToken signs an HS256 embed token for the tenant. Missing profile
// names fall back to fixed defaults so the frontend always has something to
// display.
func (s *TokenService) IssueToken(tenantID int64, profile Profile) (string, time.Time, error) {
	if tenantID <= 0 {
		return "", time.Time{}, ErrInvalidTenant
	}

	firstName := profile.FirstName
	if firstName == "" {
		firstName = defaultFirstName
	}
	lastName := profile.LastName
	if lastName == "" {
		lastName = defaultLastName
	}

	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := EmbedClaims{
		Email:     profile.Email,
		FirstName: firstName,
		LastName:  lastName,
		Groups:    []string{GroupName(tenantID)},
		ProjectID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign embed token: %w", err)
	}

	s.metrics.RecordTokenIssued()
	s.logger.Debug("Issued embed token",
		zap.Int64("tenant_id", tenantID),
		zap.Time("expires_at", expiresAt))

	return signed, expiresAt, nil
}
