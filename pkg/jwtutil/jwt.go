package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Issuer is stamped on every token and checked on validation
const Issuer = "fleetshop"

// Token scopes
const (
	ScopeStaff  = "staff"
	ScopePortal = "portal"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey            string
	ExpirationHours       int
	PortalExpirationHours int
}

// UserClaims represents the JWT claims for staff and client-portal sessions
type UserClaims struct {
	Email      string `json:"email"`
	UserID     uint   `json:"user_id,omitempty"`
	ClientID   *uint  `json:"client_id,omitempty"` // set for portal tokens only
	TenantID   *uint  `json:"tenant_id,omitempty"` // nil for super admins
	TenantName string `json:"tenant_name,omitempty"`
	Role       string `json:"role,omitempty"`
	Scope      string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
	}
}

// GenerateTokenWithTenant creates a staff token with user and tenant information
func (j *JWTUtil) GenerateTokenWithTenant(email string, userID uint, tenantID *uint, tenantName string, role string) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := UserClaims{
		Email:      email,
		UserID:     userID,
		TenantID:   tenantID,
		TenantName: tenantName,
		Role:       role,
		Scope:      ScopeStaff,
	}
	return j.sign(claims, j.config.ExpirationHours)
}

// GeneratePortalToken creates a client-portal token bound to one client of one tenant
func (j *JWTUtil) GeneratePortalToken(email string, clientID uint, tenantID uint) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	hours := j.config.PortalExpirationHours
	if hours <= 0 {
		hours = j.config.ExpirationHours
	}

	claims := UserClaims{
		Email:    email,
		ClientID: &clientID,
		TenantID: &tenantID,
		Role:     "client",
		Scope:    ScopePortal,
	}
	return j.sign(claims, hours)
}

func (j *JWTUtil) sign(claims UserClaims, expirationHours int) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    Issuer,
		Subject:   claims.Scope,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expirationHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	signingKey := j.config.SigningKey

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(signingKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		if !claims.VerifyIssuer(Issuer, true) {
			return nil, errors.New("unexpected token issuer")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
