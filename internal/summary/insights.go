package summary

import (
	"fmt"
	"time"

	"spendtrack/internal/core"
)

// Options are the tunable insight heuristics. The anomaly threshold is a
// simple heuristic, not a statistical guarantee.
type Options struct {
	// StreakWindowDays is the trailing window for the weekly total and the
	// anomaly check.
	StreakWindowDays int
	// StreakMaxDays caps the backward streak walk so pathological data
	// cannot loop unbounded.
	StreakMaxDays int
	// AnomalyMultiplier scales the historical per-transaction average when
	// deciding whether a category's trailing-window total is unusually high.
	AnomalyMultiplier float64
}

// DefaultOptions returns the reference tuning.
func DefaultOptions() Options {
	return Options{
		StreakWindowDays:  7,
		StreakMaxDays:     365,
		AnomalyMultiplier: 1.5,
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Analyze derives trend and streak insights from the user's complete
// expense set. The current/last month comparison is always calendar-month
// based on the unfiltered set, regardless of any period filter the caller
// applied to the summary itself.
func Analyze(all []core.Expense, now time.Time, opts Options) Insights {
	today := core.Truncate(now).Time
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	firstOfPrevMonth := firstOfMonth.AddDate(0, -1, 0)
	windowStart := today.AddDate(0, 0, -(opts.StreakWindowDays - 1))

	var (
		currentCents, lastCents int64
		totalCents              int64
		windowCents             int64
		daysWithSpend           = make(map[string]struct{})
		monthCatOrder           []string
		monthCatCents           = make(map[string]int64)
		windowCatOrder          []string
		windowCatCents          = make(map[string]int64)
	)

	for _, e := range all {
		d := e.Date.Time
		totalCents += e.Amount.Cents

		if !d.Before(firstOfMonth) {
			currentCents += e.Amount.Cents
			if _, ok := monthCatCents[e.CategoryName]; !ok {
				monthCatOrder = append(monthCatOrder, e.CategoryName)
			}
			monthCatCents[e.CategoryName] += e.Amount.Cents
		} else if !d.Before(firstOfPrevMonth) {
			lastCents += e.Amount.Cents
		}

		if !d.Before(windowStart) && !d.After(today) {
			windowCents += e.Amount.Cents
			if _, ok := windowCatCents[e.CategoryName]; !ok {
				windowCatOrder = append(windowCatOrder, e.CategoryName)
			}
			windowCatCents[e.CategoryName] += e.Amount.Cents
		}

		daysWithSpend[dayKey(d)] = struct{}{}
	}

	ins := Insights{
		CurrentMonthSpending: core.Money{Cents: currentCents}.Amount(),
		LastMonthSpending:    core.Money{Cents: lastCents}.Amount(),
		Trend:                TrendStable,
		Messages:             make([]string, 0, 2),
		Warnings:             make([]string, 0),
	}

	// Month-over-month change. last=0 is an explicit policy, not a division:
	// any spending against an empty previous month reads as a flat +100%.
	switch {
	case lastCents > 0:
		ins.MonthOverMonthChange = round2(float64(currentCents-lastCents) / float64(lastCents) * 100)
	case currentCents > 0:
		ins.MonthOverMonthChange = 100
	}
	if ins.MonthOverMonthChange > 0 {
		ins.Trend = TrendIncreasing
	} else if ins.MonthOverMonthChange < 0 {
		ins.Trend = TrendDecreasing
	}

	// Top category this month; ties keep first-seen order.
	var topCents int64
	for _, name := range monthCatOrder {
		if monthCatCents[name] > topCents {
			topCents = monthCatCents[name]
			n := name
			ins.TopCategoryThisMonth = &n
		}
	}
	if ins.TopCategoryThisMonth != nil {
		ins.TopCategoryAmount = core.Money{Cents: topCents}.Amount()
	}

	// Spending streak: consecutive calendar days with at least one expense,
	// walking backward from today, capped.
	streak := 0
	for i := 0; i < opts.StreakMaxDays; i++ {
		if _, ok := daysWithSpend[dayKey(today.AddDate(0, 0, -i))]; !ok {
			break
		}
		streak++
	}

	if streak > 0 {
		ins.Messages = append(ins.Messages,
			fmt.Sprintf("You have recorded expenses %d day(s) in a row.", streak))
	}
	if windowCents > 0 {
		weekly := core.Money{Cents: windowCents}.Amount()
		daily := round2(weekly / float64(opts.StreakWindowDays))
		ins.Messages = append(ins.Messages,
			fmt.Sprintf("You spent %.2f over the last %d days, about %.2f per day.",
				weekly, opts.StreakWindowDays, daily))
	}

	// Anomaly warnings: a trailing-window category total beyond
	// multiplier x historical per-transaction average x window days.
	if len(all) > 0 && opts.AnomalyMultiplier > 0 {
		histAvgCents := float64(totalCents) / float64(len(all))
		thresholdCents := opts.AnomalyMultiplier * histAvgCents * float64(opts.StreakWindowDays)
		for _, name := range windowCatOrder {
			if float64(windowCatCents[name]) > thresholdCents {
				ins.Warnings = append(ins.Warnings,
					fmt.Sprintf("Spending on %s in the last %d days (%.2f) is well above your usual pace.",
						name, opts.StreakWindowDays, core.Money{Cents: windowCatCents[name]}.Amount()))
			}
		}
	}

	return ins
}
