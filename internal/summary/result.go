// Package summary computes spending summaries: totals, category breakdowns,
// budget status, month-over-month trends, streaks, and anomaly warnings.
package summary

// Totals are the headline figures over the filtered expense set.
type Totals struct {
	TotalAmount   float64 `json:"total_amount"`
	TotalCount    int     `json:"total_count"`
	AverageAmount float64 `json:"average_amount"`
}

// CategoryBreakdown is one row of the per-category split, sorted by total
// descending in the result.
type CategoryBreakdown struct {
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// BudgetStatus compares cumulative spend against the user's monthly budget.
type BudgetStatus struct {
	MonthlyBudget  float64 `json:"monthly_budget"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	PercentageUsed float64 `json:"percentage_used"`
}

// Trend classification values for month_over_month_change.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Insights holds the calendar-month comparison, streak strings, and
// anomaly warnings.
type Insights struct {
	CurrentMonthSpending float64  `json:"current_month_spending"`
	LastMonthSpending    float64  `json:"last_month_spending"`
	MonthOverMonthChange float64  `json:"month_over_month_change"`
	Trend                string   `json:"trend"`
	TopCategoryThisMonth *string  `json:"top_category_this_month"`
	TopCategoryAmount    float64  `json:"top_category_amount"`
	Messages             []string `json:"insights"`
	Warnings             []string `json:"warnings"`
}

// Result is the full summary payload. It is what gets cached per
// (user, filter signature).
type Result struct {
	Summary           Totals              `json:"summary"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	BudgetStatus      BudgetStatus        `json:"budget_status"`
	SpendingInsights  Insights            `json:"spending_insights"`
	Period            string              `json:"period"`
}
