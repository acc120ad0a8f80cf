package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/report"
	"github.com/erazemk/storeroom/internal/store"
)

// ReportsHandler serves inventory reports.
type ReportsHandler struct {
	DB  *sql.DB
	Log *zap.Logger
	Now func() time.Time
}

// Summary handles GET /api/reports/summary.
func (h *ReportsHandler) Summary(c *gin.Context) {
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
	c.JSON(http.StatusOK, report.Summarize(items))
}

// ItemsCSV handles GET /api/reports/items.csv.
func (h *ReportsHandler) ItemsCSV(c *gin.Context) {
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

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, items); err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	name := fmt.Sprintf("inventory-report-%s.csv", h.Now().UTC().Format(time.DateOnly))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
