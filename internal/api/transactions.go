package api

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/store"
)

// TransactionsHandler serves the ledger.
type TransactionsHandler struct {
	DB  *sql.DB
	Log *zap.Logger
	Now func() time.Time
}

// List handles GET /api/transactions with optional type, item_id, limit and
// offset query parameters.
func (h *TransactionsHandler) List(c *gin.Context) {
	f, err := pagination(c)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if f.ItemID, err = queryID(c, "item_id"); err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	if t := strings.ToUpper(c.Query("type")); t != "" {
		if !model.ValidTransactionType(t) {
			abortWithError(c, h.Log, invalid("type must be IN, OUT, BORROW or RETURN"))
			return
		}
		f.Type = t
	}

	txs, err := store.ListTransactions(c.Request.Context(), h.DB, f)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// ActiveBorrows handles GET /api/transactions/active-borrows. Overdue state
// is computed against the current date on every read.
func (h *TransactionsHandler) ActiveBorrows(c *gin.Context) {
	txs, err := store.ListActiveBorrows(c.Request.Context(), h.DB)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	now := h.Now()
	out := make([]model.ActiveBorrow, len(txs))
	for i := range txs {
		out[i] = model.NewActiveBorrow(txs[i], now)
	}
	c.JSON(http.StatusOK, out)
}
