package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/imaging"
	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/stock"
	"github.com/erazemk/storeroom/internal/store"
)

// ItemsHandler handles item CRUD endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Engine *stock.Engine
	Log    *zap.Logger
}

type itemRequest struct {
	Name        string   `json:"name"`
	CategoryID  *int64   `json:"category_id"`
	MinQuantity int      `json:"min_quantity"`
	Unit        string   `json:"unit"`
	Borrowable  bool     `json:"borrowable"`
	Quantity    *float64 `json:"quantity"`
}

// params validates the metadata fields and returns them as store params.
func (r *itemRequest) params(ctx context.Context, db *sql.DB) (store.ItemParams, error) {
	p := store.ItemParams{
		Name:        strings.TrimSpace(r.Name),
		CategoryID:  r.CategoryID,
		MinQuantity: r.MinQuantity,
		Unit:        r.Unit,
		Borrowable:  r.Borrowable,
	}
	if p.Unit == "" {
		p.Unit = model.UnitPieces
	}
	switch {
	case p.Name == "":
		return p, invalid("name required")
	case len([]rune(p.Name)) > 200:
		return p, invalid("name too long")
	case p.MinQuantity < 0:
		return p, invalid("min_quantity must not be negative")
	case !model.ValidUnit(p.Unit):
		return p, invalid("unit must be one of " + strings.Join(model.Units, ", "))
	}
	if p.CategoryID != nil {
		category, err := store.GetCategory(ctx, db, *p.CategoryID)
		if err != nil {
			return p, err
		}
		if category == nil {
			return p, invalid("unknown category")
		}
	}
	return p, nil
}

// itemFilter reads the category_id, stock and q query parameters.
func itemFilter(c *gin.Context) (store.ItemFilter, error) {
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		return store.ItemFilter{}, err
	}
	f := store.ItemFilter{
		CategoryID: categoryID,
		Stock:      c.DefaultQuery("stock", store.StockAll),
		Query:      strings.TrimSpace(c.Query("q")),
	}
	switch f.Stock {
	case store.StockAll, store.StockLow, store.StockNormal:
	default:
		return f, invalid("stock must be all, low or normal")
	}
	return f, nil
}

func views(items []model.Item) []model.ItemView {
	out := make([]model.ItemView, len(items))
	for i := range items {
		out[i] = items[i].View()
	}
	return out
}

// liveItem loads a non-deleted item or fails with NotFound.
func (h *ItemsHandler) liveItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, h.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.Deleted() {
		return nil, store.ErrNotFound
	}
	return item, nil
}

// List handles GET /api/items.
func (h *ItemsHandler) List(c *gin.Context) {
	f, err := itemFilter(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	items, err := store.ListItems(c.Request.Context(), h.DB, f)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, views(items))
}

// Create handles POST /api/items. A positive quantity is received through
// the stock engine together with the insert, so it appears in the ledger.
func (h *ItemsHandler) Create(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	initial := 0
	if req.Quantity != nil && *req.Quantity != 0 {
		q, err := quantity(req.Quantity)
		if err != nil {
			abortWithError(c, h.Log, err)
			return
		}
		initial = q
	}

	m, err := h.Engine.CreateItem(c.Request.Context(), stock.NewItemRequest{
		Create: func(ctx context.Context) (*model.Item, error) {
			p, err := req.params(ctx, h.DB)
			if err != nil {
				return nil, err
			}
			return store.CreateItem(ctx, h.DB, p)
		},
		Quantity: initial,
		ActorID:  actorID(c),
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	item := m.Item

	h.Log.Info("item created",
		zap.String("user", GetClaims(c).Username),
		zap.Int64("item_id", item.ID),
		zap.String("item", item.Name),
		zap.Int("quantity", item.Quantity),
	)
	c.JSON(http.StatusCreated, item.View())
}

// Get handles GET /api/items/:id.
func (h *ItemsHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	item, err := h.liveItem(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, item.View())
}

// Update handles PUT /api/items/:id. Only metadata can change here.
func (h *ItemsHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if req.Quantity != nil {
		abortWithError(c, h.Log, invalid("quantity changes go through add-stock or issue"))
		return
	}

	ctx := c.Request.Context()
	p, err := req.params(ctx, h.DB)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if err := store.UpdateItem(ctx, h.DB, id, p); err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	item, err := h.liveItem(ctx, id)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, item.View())
}

// Delete handles DELETE /api/items/:id. Items are soft-deleted so the ledger
// keeps its references.
func (h *ItemsHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if err := store.DeleteItem(c.Request.Context(), h.DB, id); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("item deleted", zap.String("user", GetClaims(c).Username), zap.Int64("item_id", id))
	c.Status(http.StatusNoContent)
}

// UploadImage handles PUT /api/items/:id/image with a multipart "image" field.
func (h *ItemsHandler) UploadImage(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, imaging.MaxUploadBytes+64<<10)
	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, h.Log, imaging.ErrTooLarge)
			return
		}
		abortWithError(c, h.Log, invalid("image file required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if err := store.SetItemImage(c.Request.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	h.Log.Info("item image uploaded",
		zap.Int64("item_id", id),
		zap.Int("width", photo.Width),
		zap.Int("height", photo.Height),
		zap.Int("bytes", len(photo.Data)),
	)
	c.JSON(http.StatusOK, gin.H{"message": "image uploaded", "width": photo.Width, "height": photo.Height})
}

// GetImage handles GET /api/items/:id/image.
func (h *ItemsHandler) GetImage(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	data, mime, err := store.GetItemImage(c.Request.Context(), h.DB, id)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if len(data) == 0 {
		abortWithError(c, h.Log, store.ErrNotFound)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, mime, data)
}

// History handles GET /api/items/:id/history, the item's ledger newest first.
func (h *ItemsHandler) History(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	page, err := pagination(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	ctx := c.Request.Context()
	item, err := store.GetItem(ctx, h.DB, id)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if item == nil {
		abortWithError(c, h.Log, store.ErrNotFound)
		return
	}

	page.ItemID = &id
	txs, err := store.ListTransactions(ctx, h.DB, page)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}
