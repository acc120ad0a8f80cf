package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/auth"
	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/store"
)

// UsersHandler handles user management endpoints (admin only).
type UsersHandler struct {
	DB  *sql.DB
	TM  *store.TxManager
	Log *zap.Logger
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *gin.Context) {
	users, err := store.ListUsers(c.Request.Context(), h.DB)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" || req.Role == "" {
		abortWithError(c, h.Log, invalid("username, password and role required"))
		return
	}
	if !model.ValidRole(req.Role) {
		abortWithError(c, h.Log, invalid("invalid role"))
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		abortWithError(c, h.Log, invalid(err.Error()))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	user, err := store.CreateUser(c.Request.Context(), h.DB, req.Username, hash, req.Role)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("user created",
		zap.String("user", GetClaims(c).Username),
		zap.String("new_user", user.Username),
		zap.String("role", user.Role),
	)
	c.JSON(http.StatusCreated, user)
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	user, err := store.GetUser(c.Request.Context(), h.DB, id)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if user == nil || user.DeletedAt != nil {
		abortWithError(c, h.Log, store.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update handles PUT /api/users/:id. Demoting the last admin is refused.
func (h *UsersHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if !model.ValidRole(req.Role) {
		abortWithError(c, h.Log, invalid("invalid role"))
		return
	}

	var user *model.User
	err = h.TM.RunInTx(c.Request.Context(), func(ctx context.Context) error {
		if err := h.guardLastAdmin(ctx, id, req.Role); err != nil {
			return err
		}
		if err := store.UpdateUser(ctx, h.DB, id, req.Role); err != nil {
			return err
		}
		user, err = store.GetUser(ctx, h.DB, id)
		return err
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("user role updated",
		zap.String("user", GetClaims(c).Username),
		zap.String("target_user", user.Username),
		zap.String("new_role", req.Role),
	)
	c.JSON(http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/:id/password.
func (h *UsersHandler) ResetPassword(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		abortWithError(c, h.Log, invalid(err.Error()))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if err := store.UpdateUserPassword(c.Request.Context(), h.DB, id, hash); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("user password reset", zap.String("user", GetClaims(c).Username), zap.Int64("target_user_id", id))
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// Delete handles DELETE /api/users/:id. Admins cannot delete themselves or
// the last admin.
func (h *UsersHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	claims := GetClaims(c)
	if claims.UserID == id {
		abortWithError(c, h.Log, invalid("cannot delete yourself"))
		return
	}

	err = h.TM.RunInTx(c.Request.Context(), func(ctx context.Context) error {
		if err := h.guardLastAdmin(ctx, id, ""); err != nil {
			return err
		}
		return store.DeleteUser(ctx, h.DB, id)
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("user deleted", zap.String("user", claims.Username), zap.Int64("deleted_user_id", id))
	c.Status(http.StatusNoContent)
}

// guardLastAdmin refuses to move user id away from the admin role when it is
// the only active admin. newRole is empty for deletion.
func (h *UsersHandler) guardLastAdmin(ctx context.Context, id int64, newRole string) error {
	user, err := store.GetUser(ctx, h.DB, id)
	if err != nil {
		return err
	}
	if user == nil || user.DeletedAt != nil {
		return store.ErrNotFound
	}
	if user.Role != model.RoleAdmin || newRole == model.RoleAdmin {
		return nil
	}
	n, err := store.CountAdmins(ctx, h.DB)
	if err != nil {
		return err
	}
	if n <= 1 {
		return invalid("cannot remove the last admin")
	}
	return nil
}
