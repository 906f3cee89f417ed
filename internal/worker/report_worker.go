// Package worker turns expense mutation events into exported spending
// reports.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/export"
	"spendtrack/internal/filter"
	"spendtrack/internal/summary"
)

// UserStore resolves the account behind an event.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (core.User, error)
}

// SummaryProvider computes the report content. summary.Service satisfies it.
type SummaryProvider interface {
	ListSummary(ctx context.Context, userID int64, params filter.Params) (summary.Result, error)
	InvalidateUser(ctx context.Context, userID int64)
}

// ReportWorker consumes expense events and exports a fresh current-month
// report for the affected user. Exports are debounced per user: a burst of
// mutations produces one report, not one per event.
type ReportWorker struct {
	users     UserStore
	summaries SummaryProvider
	writer    export.SummaryWriter
	debounce  time.Duration

	mu         sync.Mutex
	lastExport map[int64]time.Time
	now        func() time.Time
}

func NewReportWorker(users UserStore, summaries SummaryProvider, writer export.SummaryWriter, debounce time.Duration) *ReportWorker {
	return &ReportWorker{
		users:      users,
		summaries:  summaries,
		writer:     writer,
		debounce:   debounce,
		lastExport: make(map[int64]time.Time),
		now:        time.Now,
	}
}

// HandleExpenseEvent processes one event from the queue. Returning an error
// requeues the delivery.
func (w *ReportWorker) HandleExpenseEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	if !w.shouldExport(msg.UserID) {
		slog.DebugContext(ctx, "Skipping export within debounce window",
			"user_id", msg.UserID, "action", msg.Action)
		return nil
	}

	user, err := w.users.GetUserByID(ctx, msg.UserID)
	if err != nil {
		w.resetDebounce(msg.UserID)
		return fmt.Errorf("get user %d: %w", msg.UserID, err)
	}

	// The event is a mutation notification: any summary cached before it is
	// stale, so drop it and recompute from the store.
	w.summaries.InvalidateUser(ctx, msg.UserID)

	res, err := w.summaries.ListSummary(ctx, msg.UserID, filter.Params{Period: filter.PeriodMonthly})
	if err != nil {
		w.resetDebounce(msg.UserID)
		return fmt.Errorf("compute summary: %w", err)
	}

	if err := w.writer.AppendSummary(ctx, user.Username, w.now(), res); err != nil {
		w.resetDebounce(msg.UserID)
		return fmt.Errorf("export summary: %w", err)
	}

	slog.InfoContext(ctx, "Report exported",
		"user_id", msg.UserID,
		"username", user.Username,
		"trigger", msg.Action)
	return nil
}

// shouldExport claims the debounce slot for the user when it is free.
func (w *ReportWorker) shouldExport(userID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if last, ok := w.lastExport[userID]; ok && now.Sub(last) < w.debounce {
		return false
	}
	w.lastExport[userID] = now
	return true
}

// resetDebounce releases the slot after a failure so the requeued event is
// not swallowed by its own claim.
func (w *ReportWorker) resetDebounce(userID int64) {
	w.mu.Lock()
	delete(w.lastExport, userID)
	w.mu.Unlock()
}
