package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/filter"
)

// Store provides the user's expenses in newest-first order.
type Store interface {
	ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error)
}

// BudgetStore provides the user's monthly budget in cents.
type BudgetStore interface {
	GetMonthlyBudget(ctx context.Context, userID int64) (core.Money, error)
}

// Service computes and caches spending summaries per (user, filter
// signature). Concurrent identical requests are collapsed into one
// computation via singleflight.
type Service struct {
	store      Store
	budgets    BudgetStore
	results    *cache.UserCache[Result]
	group      singleflight.Group
	filterOpts filter.Options
	opts       Options
	now        func() time.Time
}

// NewService wires a summary service around the given stores and cache.
func NewService(store Store, budgets BudgetStore, results *cache.UserCache[Result], filterOpts filter.Options, opts Options) *Service {
	return &Service{
		store:      store,
		budgets:    budgets,
		results:    results,
		filterOpts: filterOpts,
		opts:       opts,
		now:        time.Now,
	}
}

// ListSummary evaluates the filter, serves from cache when possible, and
// otherwise computes the full summary over the user's expenses.
//
// Invalid parameters surface as *filter.ValidationError.
func (s *Service) ListSummary(ctx context.Context, userID int64, params filter.Params) (Result, error) {
	spec, err := filter.Evaluate(params, s.now(), s.filterOpts)
	if err != nil {
		return Result{}, err
	}

	sig := spec.Signature()
	if cached, ok := s.results.Get(userID, sig); ok {
		slog.DebugContext(ctx, "summary cache hit", "user_id", userID, "signature", sig)
		return cached, nil
	}

	// Identical concurrent misses share one computation and one cache write.
	// The generation is part of the singleflight key, so a request arriving
	// after an invalidation never joins a computation started before it.
	gen := s.results.Generation(userID)
	v, err, _ := s.group.Do(fmt.Sprintf("%d:%d:%s", userID, gen, sig), func() (any, error) {
		if cached, ok := s.results.Get(userID, sig); ok {
			return cached, nil
		}
		result, err := s.compute(ctx, userID, spec)
		if err != nil {
			return Result{}, err
		}
		// A mutation can land while compute reads the store. Its
		// invalidation advances the generation, and SetAt then discards
		// this result instead of caching pre-mutation data.
		if !s.results.SetAt(userID, sig, result, gen) {
			slog.DebugContext(ctx, "summary discarded, user invalidated during compute",
				"user_id", userID, "signature", sig)
		}
		return result, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) compute(ctx context.Context, userID int64, spec filter.Spec) (Result, error) {
	all, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("list expenses: %w", err)
	}

	filtered := spec.Apply(all)
	totals, breakdown := Summarize(filtered)

	// A missing or failing budget never fails the summary; it degrades to a
	// zero budget with zero usage.
	budget := core.Money{}
	if s.budgets != nil {
		b, err := s.budgets.GetMonthlyBudget(ctx, userID)
		if err != nil {
			slog.WarnContext(ctx, "budget lookup failed, using zero budget",
				"user_id", userID, "error", err)
		} else {
			budget = b
		}
	}

	return Result{
		Summary:           totals,
		CategoryBreakdown: breakdown,
		BudgetStatus:      NewBudgetStatus(budget, totals.TotalAmount),
		SpendingInsights:  Analyze(all, s.now(), s.opts),
		Period:            spec.Period,
	}, nil
}

// InvalidateUser drops every cached summary for the user. Call it after any
// expense mutation.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) {
	removed := s.results.InvalidateUser(userID)
	if removed > 0 {
		slog.DebugContext(ctx, "summary cache invalidated",
			"user_id", userID, "entries", removed)
	}
}

// InvalidateAll drops every cached summary. Used after mutations to shared
// data, like a cascading category delete.
func (s *Service) InvalidateAll(ctx context.Context) {
	removed := s.results.InvalidateAll()
	if removed > 0 {
		slog.InfoContext(ctx, "summary cache fully invalidated", "entries", removed)
	}
}
