package view

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kaasu-app/kaasu/internal/models"
)

// ExportCSV writes the current expense snapshot as a CSV report.
func (c *ExpensesController) ExportCSV() ([]byte, error) {
	return generateExpensesCSV(c.Expenses())
}

// generateExpensesCSV renders expenses into CSV with a fixed header row.
func generateExpensesCSV(expenses []models.Expense) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"ID", "Date", "Amount", "Description", "Category", "Tags"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range expenses {
		names := make([]string, 0, len(expenses[i].Tags))
		for _, tag := range expenses[i].Tags {
			names = append(names, tag.Name)
		}

		row := []string{
			strconv.Itoa(expenses[i].ID),
			expenses[i].Date.String(),
			expenses[i].Amount.StringFixed(2),
			expenses[i].Description,
			expenses[i].Category.Name,
			strings.Join(names, ";"),
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportFilename creates a dated filename like "expenses_2026-08-28.csv".
func ExportFilename() string {
	return fmt.Sprintf("expenses_%s.csv", time.Now().Format(models.DateLayout))
}
