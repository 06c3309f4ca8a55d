package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/erp-timetable-api/internal/models"
	appErrors "github.com/noah-isme/erp-timetable-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(issuer string) models.JWTClaims {
	now := time.Now()
	return models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleHOD,
		Email:  "hod@college.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "erp-identity"})

	claims, err := svc.ValidateToken(signToken(t, "secret", validClaims("erp-identity")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleHOD, claims.Role)
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "erp-identity"})

	expired := validClaims("erp-identity")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noRole := validClaims("erp-identity")
	noRole.Role = ""

	cases := map[string]string{
		"wrong secret": signToken(t, "other", validClaims("erp-identity")),
		"wrong issuer": signToken(t, "secret", validClaims("someone-else")),
		"expired":      signToken(t, "secret", expired),
		"missing role": signToken(t, "secret", noRole),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestTokenServiceSkipsIssuerCheckWhenUnset(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})

	_, err := svc.ValidateToken(signToken(t, "secret", validClaims("anything")))
	require.NoError(t, err)
}
