// Package report builds read-only inventory reports from item lists.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/erazemk/storeroom/internal/model"
)

// Summary holds inventory totals.
type Summary struct {
	TotalItems      int `json:"total_items"`
	LowStockItems   int `json:"low_stock_items"`
	BorrowableItems int `json:"borrowable_items"`
	TotalUnits      int `json:"total_units"`
	BorrowedUnits   int `json:"borrowed_units"`
}

// Summarize totals the given items.
func Summarize(items []model.Item) Summary {
	var s Summary
	for i := range items {
		item := &items[i]
		s.TotalItems++
		s.TotalUnits += item.Quantity
		s.BorrowedUnits += item.BorrowedQuantity
		if item.LowStock() {
			s.LowStockItems++
		}
		if item.Borrowable {
			s.BorrowableItems++
		}
	}
	return s
}

// CSVHeader is the first row written by WriteCSV.
var CSVHeader = []string{"Item Name", "Category", "Quantity", "Unit", "Min Quantity", "Borrowable", "Status"}

// WriteCSV writes one row per item after CSVHeader.
func WriteCSV(w io.Writer, items []model.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for i := range items {
		item := &items[i]
		if err := cw.Write([]string{
			item.Name,
			item.CategoryName,
			strconv.Itoa(item.Quantity),
			item.Unit,
			strconv.Itoa(item.MinQuantity),
			yesNo(item.Borrowable),
			status(item),
		}); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func status(item *model.Item) string {
	if item.LowStock() {
		return "Low Stock"
	}
	return "Normal"
}
