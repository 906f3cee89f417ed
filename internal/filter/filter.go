// Package filter turns raw summary/list query parameters into a concrete
// predicate over expense records plus a deterministic cache signature.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/core"
)

// Named relative periods resolved to an absolute lower bound at query time.
const (
	PeriodWeekly      = "weekly"
	PeriodMonthly     = "monthly"
	PeriodLast3Months = "last_3_months"
	PeriodYearly      = "yearly"

	// PeriodAllTime is the label echoed back when no period was requested.
	PeriodAllTime = "all_time"
)

const (
	MaxPageSize     = 100
	DefaultPageSize = 20
)

// Params carries the raw, unvalidated query values.
type Params struct {
	Period   string
	Category string
	Tags     string
	DateFrom string
	DateTo   string
	Page     string
	PageSize string
}

// FromQuery extracts filter parameters from a URL query.
func FromQuery(q url.Values) Params {
	return Params{
		Period:   strings.TrimSpace(q.Get("period")),
		Category: strings.TrimSpace(q.Get("category")),
		Tags:     strings.TrimSpace(q.Get("tags")),
		DateFrom: strings.TrimSpace(q.Get("date_from")),
		DateTo:   strings.TrimSpace(q.Get("date_to")),
		Page:     strings.TrimSpace(q.Get("page")),
		PageSize: strings.TrimSpace(q.Get("page_size")),
	}
}

// ValidationError collects every problem found in one evaluation pass so the
// caller sees all of them at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid filter parameters: " + strings.Join(e.Problems, "; ")
}

// Options holds policy knobs for evaluation.
type Options struct {
	// YearlyEnabled allows period=yearly (an extension over the base
	// period set; configurable policy).
	YearlyEnabled bool
}

// Spec is the evaluated, concrete filter: resolved bounds, category id,
// normalized tag list, and pagination. Zero time bounds mean unbounded.
type Spec struct {
	Period     string
	CategoryID int64
	Tags       []string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// Evaluate validates raw parameters and resolves them against "now"
// (the caller's current date). All violations are reported together.
func Evaluate(p Params, now time.Time, opts Options) (Spec, error) {
	var problems []string

	spec := Spec{
		Period:   PeriodAllTime,
		Page:     1,
		PageSize: DefaultPageSize,
	}

	today := core.Truncate(now).Time

	if p.Period != "" {
		var days int
		switch p.Period {
		case PeriodWeekly:
			days = 7
		case PeriodMonthly:
			days = 30
		case PeriodLast3Months:
			days = 90
		case PeriodYearly:
			if !opts.YearlyEnabled {
				problems = append(problems, "period 'yearly' is not enabled")
			}
			days = 365
		default:
			problems = append(problems, fmt.Sprintf("unknown period %q", p.Period))
		}
		if days > 0 {
			spec.Period = p.Period
			spec.From = today.AddDate(0, 0, -days)
		}
	}

	if p.Category != "" {
		id, err := strconv.ParseInt(p.Category, 10, 64)
		if err != nil || id <= 0 {
			problems = append(problems, fmt.Sprintf("invalid category id %q", p.Category))
		} else {
			spec.CategoryID = id
		}
	}

	if p.Tags != "" {
		for _, tag := range strings.Split(p.Tags, ",") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" {
				spec.Tags = append(spec.Tags, tag)
			}
		}
	}

	if p.DateFrom != "" {
		if from, err := time.Parse("2006-01-02", p.DateFrom); err != nil {
			problems = append(problems, fmt.Sprintf("invalid date_from %q: expected YYYY-MM-DD", p.DateFrom))
		} else if from.After(spec.From) {
			// Explicit bound and period bound both apply; the intersection
			// is the later of the two lower bounds.
			spec.From = from
		}
	}

	if p.DateTo != "" {
		if to, err := time.Parse("2006-01-02", p.DateTo); err != nil {
			problems = append(problems, fmt.Sprintf("invalid date_to %q: expected YYYY-MM-DD", p.DateTo))
		} else {
			spec.To = to
		}
	}

	if p.Page != "" {
		if page, err := strconv.Atoi(p.Page); err != nil || page < 1 {
			problems = append(problems, fmt.Sprintf("invalid page %q", p.Page))
		} else {
			spec.Page = page
		}
	}

	if p.PageSize != "" {
		if size, err := strconv.Atoi(p.PageSize); err != nil || size < 1 || size > MaxPageSize {
			problems = append(problems, fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize))
		} else {
			spec.PageSize = size
		}
	}

	if len(problems) > 0 {
		return Spec{}, &ValidationError{Problems: problems}
	}
	return spec, nil
}

// Matches reports whether an expense satisfies every constraint.
// Date bounds are inclusive. Tags are conjunctive: every requested tag must
// appear as a case-insensitive substring of the expense tag field.
func (s Spec) Matches(e core.Expense) bool {
	d := e.Date.Time
	if !s.From.IsZero() && d.Before(s.From) {
		return false
	}
	if !s.To.IsZero() && d.After(s.To) {
		return false
	}
	if s.CategoryID != 0 && e.CategoryID != s.CategoryID {
		return false
	}
	if len(s.Tags) > 0 {
		haystack := strings.ToLower(e.Tags)
		for _, tag := range s.Tags {
			if !strings.Contains(haystack, tag) {
				return false
			}
		}
	}
	return true
}

// Apply filters a slice of expenses, preserving input order.
func (s Spec) Apply(expenses []core.Expense) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if s.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
