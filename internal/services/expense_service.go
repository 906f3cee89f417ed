// Package services orchestrates expense operations across storage, the
// summary cache, and the event queue.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/filter"
)

// ExpenseStore is the storage surface the service needs.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, userID, id int64) error
	GetExpense(ctx context.Context, userID, id int64) (core.Expense, error)
	ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error)
}

// EventPublisher publishes expense mutation events. amqp.Client satisfies it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, userID, expenseID int64, action string) error
}

// SummaryInvalidator drops a user's cached summaries after a mutation.
type SummaryInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64)
}

// ExpenseService wires expense mutations through storage, then invalidates
// the summary cache and publishes an event. Publishing is best effort: the
// mutation is already durable, so a broker outage only delays downstream
// consumers.
type ExpenseService struct {
	store       ExpenseStore
	publisher   EventPublisher
	invalidator SummaryInvalidator
	filterOpts  filter.Options
	now         func() time.Time
}

func NewExpenseService(store ExpenseStore, publisher EventPublisher, invalidator SummaryInvalidator, filterOpts filter.Options) *ExpenseService {
	return &ExpenseService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		filterOpts:  filterOpts,
		now:         time.Now,
	}
}

// CreateExpense validates and stores a new expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.afterMutation(ctx, created.UserID, created.ID, amqp.ActionCreated)
	return created, nil
}

// UpdateExpense validates and replaces an owner-scoped expense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	s.afterMutation(ctx, updated.UserID, updated.ID, amqp.ActionUpdated)
	return updated, nil
}

// DeleteExpense removes an owner-scoped expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}

	s.afterMutation(ctx, userID, id, amqp.ActionDeleted)
	return nil
}

// GetExpense fetches one owner-scoped expense.
func (s *ExpenseService) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, userID, id)
}

// ListExpenses returns one page of the user's expenses under the given
// filters, plus the total number of matches.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64, params filter.Params) ([]core.Expense, int, error) {
	spec, err := filter.Evaluate(params, s.now(), s.filterOpts)
	if err != nil {
		return nil, 0, err
	}

	all, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}

	matched := spec.Apply(all)
	total := len(matched)

	start := (spec.Page - 1) * spec.PageSize
	if start >= total {
		return []core.Expense{}, total, nil
	}
	end := start + spec.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *ExpenseService) afterMutation(ctx context.Context, userID, expenseID int64, action string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(ctx, userID)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping expense event",
			"expense_id", expenseID, "action", action)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, userID, expenseID, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", expenseID, "action", action, "error", err)
		// Don't fail the request - the mutation is already persisted
	}
}
