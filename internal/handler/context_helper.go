package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-reminder-api/internal/middleware"
	"github.com/noah-isme/care-reminder-api/internal/models"
	appErrors "github.com/noah-isme/care-reminder-api/pkg/errors"
	"github.com/noah-isme/care-reminder-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireOwner returns the authenticated owner id or writes 401 and returns "".
func requireOwner(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return ""
	}
	return claims.UserID
}

func optionalQuery(c *gin.Context, keys ...string) *string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return &v
		}
	}
	return nil
}
