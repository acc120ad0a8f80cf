package api

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/auth"
	"github.com/erazemk/storeroom/internal/logger"
	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/store"
)

// RequestIDHeader carries the client's request id, echoed on every response.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength is the longest client request id kept as is.
const maxRequestIDLength = 128

const claimsKey = "claims"

// RequestIDMiddleware reads X-Request-ID or generates one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(logger.RequestIDKey)
}

// AuthMiddleware validates the bearer token, rejects revoked tokens and
// deleted accounts, and stores the claims in the gin context. The role is
// refreshed from the database so role changes apply to live sessions.
func AuthMiddleware(tokens *auth.Manager, db *sql.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenStr == "" {
			abortWithError(c, log, fmt.Errorf("%w: missing bearer token", errUnauthorized))
			return
		}

		claims, err := tokens.Validate(tokenStr)
		if err != nil {
			abortWithError(c, log, fmt.Errorf("%w: invalid token", errUnauthorized))
			return
		}

		ctx := c.Request.Context()
		revoked, err := store.IsTokenRevoked(ctx, db, claims.ID)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		if revoked {
			abortWithError(c, log, fmt.Errorf("%w: token revoked", errUnauthorized))
			return
		}

		user, err := store.GetUser(ctx, db, claims.UserID)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		if user == nil || user.DeletedAt != nil {
			abortWithError(c, log, fmt.Errorf("%w: account disabled", errUnauthorized))
			return
		}
		claims.Role = user.Role

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the caller has at least the given role.
func RequireRole(minimum string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			abortWithError(c, log, fmt.Errorf("%w: not authenticated", errUnauthorized))
			return
		}
		if !model.RoleAtLeast(claims.Role, minimum) {
			abortWithError(c, log, fmt.Errorf("%w: requires %s", errForbidden, minimum))
			return
		}
		c.Next()
	}
}

// GetClaims returns the claims set by AuthMiddleware, or nil.
func GetClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// actorID returns the caller's user id for ledger attribution.
func actorID(c *gin.Context) *int64 {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	id := claims.UserID
	return &id
}
