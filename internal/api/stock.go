package api

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/stock"
)

// StockHandler exposes the stock engine operations.
type StockHandler struct {
	Engine *stock.Engine
	Log    *zap.Logger
}

type addStockRequest struct {
	Quantity *float64 `json:"quantity"`
}

type issueRequest struct {
	Quantity *float64 `json:"quantity"`
	Receiver string   `json:"receiver"`
}

type borrowRequest struct {
	Quantity           *float64 `json:"quantity"`
	Receiver           string   `json:"receiver"`
	ExpectedReturnDate string   `json:"expected_return_date"`
	Notes              string   `json:"notes"`
}

type returnRequest struct {
	BorrowTransactionID *int64 `json:"borrow_transaction_id"`
	Notes               string `json:"notes"`
}

type movementResponse struct {
	Item        model.ItemView     `json:"item"`
	Transaction *model.Transaction `json:"transaction"`
}

type returnResponse struct {
	Item              model.ItemView     `json:"item"`
	BorrowTransaction *model.Transaction `json:"borrow_transaction"`
	ReturnTransaction *model.Transaction `json:"return_transaction"`
}

// quantity converts a JSON number to a whole unit count. Absent, fractional
// and non-positive values are rejected.
func quantity(v *float64) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing", stock.ErrInvalidQuantity)
	}
	q := *v
	if q < 1 || q != math.Trunc(q) || q > math.MaxInt32 {
		return 0, fmt.Errorf("%w: got %v", stock.ErrInvalidQuantity, q)
	}
	return int(q), nil
}

// returnDate parses a calendar date (2006-01-02) or an RFC 3339 timestamp.
// A timestamp counts as the calendar date in its own offset. An empty
// string yields nil.
func returnDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse %q", stock.ErrInvalidReturnDate, s)
	}
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &day, nil
}

func (h *StockHandler) movement(c *gin.Context, m *stock.Movement) {
	c.JSON(http.StatusOK, movementResponse{Item: m.Item.View(), Transaction: m.Transaction})
}

// AddStock handles POST /api/items/:id/add-stock.
func (h *StockHandler) AddStock(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	qty, err := quantity(req.Quantity)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	m, err := h.Engine.AddStock(c.Request.Context(), stock.AddRequest{
		ItemID:   id,
		Quantity: qty,
		ActorID:  actorID(c),
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	h.movement(c, m)
}

// Issue handles POST /api/items/:id/issue.
func (h *StockHandler) Issue(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	qty, err := quantity(req.Quantity)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	m, err := h.Engine.IssueStock(c.Request.Context(), stock.IssueRequest{
		ItemID:   id,
		Quantity: qty,
		Receiver: req.Receiver,
		ActorID:  actorID(c),
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	h.movement(c, m)
}

// Borrow handles POST /api/items/:id/borrow.
func (h *StockHandler) Borrow(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	qty, err := quantity(req.Quantity)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	due, err := returnDate(req.ExpectedReturnDate)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	m, err := h.Engine.BorrowItem(c.Request.Context(), stock.BorrowRequest{
		ItemID:             id,
		Quantity:           qty,
		Receiver:           req.Receiver,
		ExpectedReturnDate: due,
		Notes:              req.Notes,
		ActorID:            actorID(c),
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	h.movement(c, m)
}

// Return handles POST /api/transactions/return.
func (h *StockHandler) Return(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, h.Log, invalid("invalid request body"))
		return
	}
	if req.BorrowTransactionID == nil {
		abortWithError(c, h.Log, fmt.Errorf("%w: borrow_transaction_id required", stock.ErrInvalidBorrowReference))
		return
	}

	res, err := h.Engine.ReturnItem(c.Request.Context(), stock.ReturnRequest{
		BorrowTransactionID: *req.BorrowTransactionID,
		Notes:               req.Notes,
		ActorID:             actorID(c),
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, returnResponse{
		Item:              res.Item.View(),
		BorrowTransaction: res.Borrow,
		ReturnTransaction: res.Return,
	})
}
