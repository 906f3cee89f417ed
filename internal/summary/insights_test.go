package summary

import (
	"strings"
	"testing"
	"time"

	"spendtrack/internal/core"
)

var insightsNow = time.Date(2024, 6, 15, 13, 30, 0, 0, time.UTC)

func TestAnalyzeEmpty(t *testing.T) {
	ins := Analyze(nil, insightsNow, DefaultOptions())
	if ins.CurrentMonthSpending != 0 || ins.LastMonthSpending != 0 {
		t.Fatalf("empty set produced spending: %+v", ins)
	}
	if ins.MonthOverMonthChange != 0 {
		t.Errorf("MoM change = %v, want 0", ins.MonthOverMonthChange)
	}
	if ins.Trend != TrendStable {
		t.Errorf("trend = %q, want stable", ins.Trend)
	}
	if ins.TopCategoryThisMonth != nil {
		t.Errorf("top category = %q, want nil", *ins.TopCategoryThisMonth)
	}
	if ins.Messages == nil || ins.Warnings == nil {
		t.Error("messages/warnings must be empty slices, not nil")
	}
}

func TestAnalyzeMonthOverMonth(t *testing.T) {
	tests := []struct {
		name       string
		current    int64
		last       int64
		wantChange float64
		wantTrend  string
	}{
		{"increase", 15000, 10000, 50.00, TrendIncreasing},
		{"decrease", 5000, 10000, -50.00, TrendDecreasing},
		{"flat", 10000, 10000, 0, TrendStable},
		{"from zero", 10000, 0, 100, TrendIncreasing},
		{"both zero", 0, 0, 0, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var all []core.Expense
			if tt.current != 0 {
				all = append(all, expense(tt.current, "Groceries", core.NewDate(2024, 6, 5)))
			}
			if tt.last != 0 {
				all = append(all, expense(tt.last, "Groceries", core.NewDate(2024, 5, 20)))
			}
			ins := Analyze(all, insightsNow, DefaultOptions())
			if ins.MonthOverMonthChange != tt.wantChange {
				t.Errorf("MoM change = %v, want %v", ins.MonthOverMonthChange, tt.wantChange)
			}
			if ins.Trend != tt.wantTrend {
				t.Errorf("trend = %q, want %q", ins.Trend, tt.wantTrend)
			}
		})
	}
}

func TestAnalyzeIgnoresOlderMonths(t *testing.T) {
	all := []core.Expense{
		expense(10000, "Groceries", core.NewDate(2024, 6, 1)),
		expense(20000, "Groceries", core.NewDate(2024, 5, 31)),
		// Before last month's first day; not part of the comparison.
		expense(99900, "Groceries", core.NewDate(2024, 4, 30)),
	}
	ins := Analyze(all, insightsNow, DefaultOptions())
	if ins.CurrentMonthSpending != 100.00 {
		t.Errorf("current month = %v, want 100.00", ins.CurrentMonthSpending)
	}
	if ins.LastMonthSpending != 200.00 {
		t.Errorf("last month = %v, want 200.00", ins.LastMonthSpending)
	}
}

func TestAnalyzeTopCategory(t *testing.T) {
	all := []core.Expense{
		expense(5000, "Dining", core.NewDate(2024, 6, 3)),
		expense(12000, "Groceries", core.NewDate(2024, 6, 4)),
		expense(4000, "Dining", core.NewDate(2024, 6, 5)),
		// Last month; must not influence this month's top category.
		expense(50000, "Bills", core.NewDate(2024, 5, 10)),
	}
	ins := Analyze(all, insightsNow, DefaultOptions())
	if ins.TopCategoryThisMonth == nil || *ins.TopCategoryThisMonth != "Groceries" {
		t.Fatalf("top category = %v, want Groceries", ins.TopCategoryThisMonth)
	}
	if ins.TopCategoryAmount != 120.00 {
		t.Errorf("top amount = %v, want 120.00", ins.TopCategoryAmount)
	}
}

func TestAnalyzeStreak(t *testing.T) {
	var all []core.Expense
	// Expenses on today and the two days before, then a gap.
	for i := 0; i < 3; i++ {
		all = append(all, expense(1000, "Dining", core.Truncate(insightsNow.AddDate(0, 0, -i))))
	}
	all = append(all, expense(1000, "Dining", core.Truncate(insightsNow.AddDate(0, 0, -5))))

	ins := Analyze(all, insightsNow, DefaultOptions())
	found := false
	for _, msg := range ins.Messages {
		if strings.Contains(msg, "3 day(s) in a row") {
			found = true
		}
	}
	if !found {
		t.Fatalf("streak message missing: %v", ins.Messages)
	}
}

func TestAnalyzeStreakBrokenToday(t *testing.T) {
	all := []core.Expense{
		expense(1000, "Dining", core.Truncate(insightsNow.AddDate(0, 0, -1))),
	}
	ins := Analyze(all, insightsNow, DefaultOptions())
	for _, msg := range ins.Messages {
		if strings.Contains(msg, "in a row") {
			t.Fatalf("streak reported with no expense today: %q", msg)
		}
	}
}

func TestAnalyzeStreakCapped(t *testing.T) {
	opts := DefaultOptions()
	opts.StreakMaxDays = 10
	var all []core.Expense
	for i := 0; i < 30; i++ {
		all = append(all, expense(1000, "Dining", core.Truncate(insightsNow.AddDate(0, 0, -i))))
	}
	ins := Analyze(all, insightsNow, opts)
	found := false
	for _, msg := range ins.Messages {
		if strings.Contains(msg, "10 day(s) in a row") {
			found = true
		}
	}
	if !found {
		t.Fatalf("capped streak message missing: %v", ins.Messages)
	}
}

func TestAnalyzeWeeklyMessage(t *testing.T) {
	all := []core.Expense{
		expense(7000, "Groceries", core.Truncate(insightsNow.AddDate(0, 0, -2))),
		// Outside the 7-day window.
		expense(99900, "Groceries", core.Truncate(insightsNow.AddDate(0, 0, -10))),
	}
	ins := Analyze(all, insightsNow, DefaultOptions())
	found := false
	for _, msg := range ins.Messages {
		if strings.Contains(msg, "70.00 over the last 7 days") && strings.Contains(msg, "10.00 per day") {
			found = true
		}
	}
	if !found {
		t.Fatalf("weekly message missing or wrong: %v", ins.Messages)
	}
}

func TestAnalyzeAnomalyWarning(t *testing.T) {
	var all []core.Expense
	// Long, quiet history: 20 transactions of 10.00 each.
	for i := 20; i < 40; i++ {
		all = append(all, expense(1000, "Groceries", core.Truncate(insightsNow.AddDate(0, 0, -i))))
	}
	// A burst this week far above 1.5 x 10.00 x 7 days.
	all = append(all, expense(50000, "Entertainment", core.Truncate(insightsNow.AddDate(0, 0, -1))))

	ins := Analyze(all, insightsNow, DefaultOptions())
	found := false
	for _, w := range ins.Warnings {
		if strings.Contains(w, "Entertainment") {
			found = true
		}
	}
	if !found {
		t.Fatalf("anomaly warning missing: %v", ins.Warnings)
	}
}

func TestAnalyzeNoWarningForNormalSpend(t *testing.T) {
	var all []core.Expense
	for i := 0; i < 30; i++ {
		all = append(all, expense(1000, "Groceries", core.Truncate(insightsNow.AddDate(0, 0, -i))))
	}
	ins := Analyze(all, insightsNow, DefaultOptions())
	if len(ins.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", ins.Warnings)
	}
}
