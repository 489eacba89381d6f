package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "care-identity", Audience: []string{"care-api"}})
	now := time.Now()

	valid := signToken(t, jwt.SigningMethodHS256, "s3cret", models.JWTClaims{
		Email: "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "owner-1",
			Issuer:    "care-identity",
			Audience:  jwt.ClaimStrings{"care-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	claims, err := svc.ValidateToken(valid)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.UserID, "subject fills the user id")
	assert.Equal(t, "owner@example.com", claims.Email)

	cases := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, "other", models.JWTClaims{UserID: "owner-1",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "care-identity", Audience: jwt.ClaimStrings{"care-api"}}}),
		"expired": signToken(t, jwt.SigningMethodHS256, "s3cret", models.JWTClaims{UserID: "owner-1",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "care-identity", Audience: jwt.ClaimStrings{"care-api"}, ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}}),
		"wrong issuer": signToken(t, jwt.SigningMethodHS256, "s3cret", models.JWTClaims{UserID: "owner-1",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", Audience: jwt.ClaimStrings{"care-api"}}}),
		"no subject": signToken(t, jwt.SigningMethodHS256, "s3cret", models.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "care-identity", Audience: jwt.ClaimStrings{"care-api"}}}),
		"hs512": signToken(t, jwt.SigningMethodHS512, "s3cret", models.JWTClaims{UserID: "owner-1",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "care-identity", Audience: jwt.ClaimStrings{"care-api"}}}),
		"garbage": "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
		})
	}
}
