package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/auth"
	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB      *sql.DB
	Tokens  *auth.Manager
	Limiter *loginLimiter
	Log     *zap.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.Limiter != nil && !h.Limiter.Allow(c.ClientIP()) {
		h.Log.Warn("login rate limited", zap.String("ip", c.ClientIP()))
		abortWithError(c, h.Log, errTooManyRequests)
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		abortWithError(c, h.Log, invalid("username and password required"))
		return
	}

	ctx := c.Request.Context()
	user, err := store.GetUserByUsername(ctx, h.DB, req.Username)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if user == nil || user.DeletedAt != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.Log.Warn("login failed", zap.String("username", req.Username), zap.String("ip", c.ClientIP()))
		abortWithError(c, h.Log, fmt.Errorf("%w: invalid credentials", errUnauthorized))
		return
	}

	token, claims, err := h.Tokens.Issue(user)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("user logged in", zap.String("user", user.Username), zap.String("role", user.Role))
	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := GetClaims(c)
	expires := time.Now().Add(h.Tokens.TTL())
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(c.Request.Context(), h.DB, claims.ID, expires); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("user logged out", zap.String("user", claims.Username))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := GetClaims(c)

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		abortWithError(c, h.Log, invalid("current and new password required"))
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		abortWithError(c, h.Log, invalid(err.Error()))
		return
	}

	ctx := c.Request.Context()
	user, err := store.GetUser(ctx, h.DB, claims.UserID)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		abortWithError(c, h.Log, fmt.Errorf("%w: current password is incorrect", errUnauthorized))
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if err := store.UpdateUserPassword(ctx, h.DB, claims.UserID, hash); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("user changed own password", zap.String("user", claims.Username))
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
