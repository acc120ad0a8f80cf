package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/store"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (r *categoryRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return invalid("name required")
	}
	if len([]rune(r.Name)) > 100 {
		return invalid("name too long")
	}
	return nil
}

// List handles GET /api/categories.
func (h *CategoriesHandler) List(c *gin.Context) {
	categories, err := store.ListCategories(c.Request.Context(), h.DB)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Create handles POST /api/categories.
func (h *CategoriesHandler) Create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	category, err := store.CreateCategory(c.Request.Context(), h.DB, req.Name)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("category created", zap.String("user", GetClaims(c).Username), zap.String("category", category.Name))
	c.JSON(http.StatusCreated, category)
}

// Rename handles PUT /api/categories/:id.
func (h *CategoriesHandler) Rename(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	ctx := c.Request.Context()
	if err := store.RenameCategory(ctx, h.DB, id, req.Name); err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	category, err := store.GetCategory(ctx, h.DB, id)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Delete handles DELETE /api/categories/:id. Items in the category become
// uncategorised.
func (h *CategoriesHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if err := store.DeleteCategory(c.Request.Context(), h.DB, id); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("category deleted", zap.String("user", GetClaims(c).Username), zap.Int64("category_id", id))
	c.Status(http.StatusNoContent)
}
