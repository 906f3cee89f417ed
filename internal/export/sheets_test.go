package export

import (
	"context"
	"testing"
	"time"

	"spendtrack/internal/summary"
)

func TestSummaryRows(t *testing.T) {
	res := summary.Result{
		Summary: summary.Totals{TotalAmount: 350, TotalCount: 3, AverageAmount: 116.67},
		CategoryBreakdown: []summary.CategoryBreakdown{
			{Name: "Groceries", Total: 300, Count: 2, Percentage: 85.71},
			{Name: "Dining", Total: 50, Count: 1, Percentage: 14.29},
		},
		BudgetStatus:     summary.BudgetStatus{MonthlyBudget: 1000, PercentageUsed: 35},
		SpendingInsights: summary.Insights{Trend: summary.TrendIncreasing},
		Period:           "monthly",
	}
	generated := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	rows := summaryRows("alice", generated, res)

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (header + 2 categories)", len(rows))
	}
	header := rows[0]
	if header[1] != "alice" || header[2] != "monthly" || header[3] != 350.0 {
		t.Errorf("header = %v", header)
	}
	if rows[1][2] != "Groceries" || rows[2][2] != "Dining" {
		t.Errorf("category rows = %v, %v", rows[1], rows[2])
	}
}

func TestNewFromEnvRequiresSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error without GOOGLE_SPREADSHEET_ID")
	}
}
