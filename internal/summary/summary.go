package summary

import (
	"math"
	"sort"

	"spendtrack/internal/core"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Summarize computes totals and the per-category breakdown over an already
// filtered expense set. It is a pure function: the same input always yields
// the same output and nothing is mutated.
//
// Empty input is not an error; every figure is an explicit zero and the
// breakdown is empty.
func Summarize(expenses []core.Expense) (Totals, []CategoryBreakdown) {
	var totalCents int64
	for _, e := range expenses {
		totalCents += e.Amount.Cents
	}

	totals := Totals{
		TotalAmount: core.Money{Cents: totalCents}.Amount(),
		TotalCount:  len(expenses),
	}
	if len(expenses) > 0 {
		totals.AverageAmount = round2(totals.TotalAmount / float64(len(expenses)))
	}

	type group struct {
		name  string
		cents int64
		count int
	}
	var order []string
	groups := make(map[string]*group)
	for _, e := range expenses {
		g, ok := groups[e.CategoryName]
		if !ok {
			g = &group{name: e.CategoryName}
			groups[e.CategoryName] = g
			order = append(order, e.CategoryName)
		}
		g.cents += e.Amount.Cents
		g.count++
	}

	breakdown := make([]CategoryBreakdown, 0, len(order))
	for _, name := range order {
		g := groups[name]
		row := CategoryBreakdown{
			Name:  g.name,
			Total: core.Money{Cents: g.cents}.Amount(),
			Count: g.count,
		}
		if totalCents != 0 {
			row.Percentage = round2(float64(g.cents) / float64(totalCents) * 100)
		}
		breakdown = append(breakdown, row)
	}

	// Descending by total; stable so ties keep first-seen input order.
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Total > breakdown[j].Total
	})

	return totals, breakdown
}

// NewBudgetStatus derives the budget comparison from the monthly budget and
// the spent total. A zero budget reports zero percentage used rather than
// dividing by zero.
func NewBudgetStatus(monthlyBudget core.Money, spent float64) BudgetStatus {
	status := BudgetStatus{
		MonthlyBudget: monthlyBudget.Amount(),
		Spent:         spent,
		Remaining:     round2(monthlyBudget.Amount() - spent),
	}
	if monthlyBudget.Cents > 0 {
		status.PercentageUsed = round2(spent / monthlyBudget.Amount() * 100)
	}
	return status
}
