package services

import (
	"context"
	"errors"
	"testing"

	"spendtrack/internal/core"
	"spendtrack/internal/filter"
)

type fakeStore struct {
	expenses  map[int64]core.Expense
	nextID    int64
	listErr   error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{expenses: make(map[int64]core.Expense), nextID: 1}
}

func (f *fakeStore) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if f.createErr != nil {
		return core.Expense{}, f.createErr
	}
	e.ID = f.nextID
	f.nextID++
	f.expenses[e.ID] = e
	return e, nil
}

func (f *fakeStore) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	existing, ok := f.expenses[e.ID]
	if !ok || existing.UserID != e.UserID {
		return core.Expense{}, errors.New("not found")
	}
	f.expenses[e.ID] = e
	return e, nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, userID, id int64) error {
	existing, ok := f.expenses[id]
	if !ok || existing.UserID != userID {
		return errors.New("not found")
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) GetExpense(_ context.Context, userID, id int64) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return core.Expense{}, errors.New("not found")
	}
	return e, nil
}

func (f *fakeStore) ListExpensesByUser(_ context.Context, userID int64) ([]core.Expense, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Expense
	for id := f.nextID - 1; id >= 1; id-- {
		if e, ok := f.expenses[id]; ok && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePublisher struct {
	events []string
	err    error
}

func (f *fakePublisher) PublishExpenseEvent(_ context.Context, _, _ int64, action string) error {
	f.events = append(f.events, action)
	return f.err
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateUser(context.Context, int64) {
	f.calls++
}

func validExpense(userID int64) core.Expense {
	return core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: 4250},
		Description: "lunch",
		CategoryID:  1,
		Date:        core.NewDate(2024, 6, 10),
	}
}

func newTestService(store *fakeStore, pub *fakePublisher, inv *fakeInvalidator) *ExpenseService {
	return NewExpenseService(store, pub, inv, filter.Options{})
}

func TestCreateExpensePublishesAndInvalidates(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	inv := &fakeInvalidator{}
	svc := newTestService(store, pub, inv)

	created, err := svc.CreateExpense(context.Background(), validExpense(1))
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if created.ID == 0 {
		t.Error("expense id not assigned")
	}
	if inv.calls != 1 {
		t.Errorf("cache invalidated %d times, want 1", inv.calls)
	}
	if len(pub.events) != 1 || pub.events[0] != "created" {
		t.Errorf("events = %v", pub.events)
	}
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	store := newFakeStore()
	inv := &fakeInvalidator{}
	svc := newTestService(store, &fakePublisher{}, inv)

	bad := validExpense(1)
	bad.Description = "   "
	if _, err := svc.CreateExpense(context.Background(), bad); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("error = %v, want ErrEmptyDescription", err)
	}
	if inv.calls != 0 {
		t.Error("cache invalidated for rejected expense")
	}
}

func TestCreateExpenseSurvivesPublishFailure(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(store, pub, &fakeInvalidator{})

	if _, err := svc.CreateExpense(context.Background(), validExpense(1)); err != nil {
		t.Fatalf("CreateExpense failed on publish error: %v", err)
	}
}

func TestCreateExpenseWithoutPublisher(t *testing.T) {
	svc := NewExpenseService(newFakeStore(), nil, nil, filter.Options{})
	if _, err := svc.CreateExpense(context.Background(), validExpense(1)); err != nil {
		t.Fatalf("CreateExpense without publisher: %v", err)
	}
}

func TestUpdateAndDeletePublishEvents(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	inv := &fakeInvalidator{}
	svc := newTestService(store, pub, inv)

	created, err := svc.CreateExpense(context.Background(), validExpense(1))
	if err != nil {
		t.Fatal(err)
	}

	created.Description = "dinner"
	if _, err := svc.UpdateExpense(context.Background(), created); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if err := svc.DeleteExpense(context.Background(), 1, created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	want := []string{"created", "updated", "deleted"}
	if len(pub.events) != 3 {
		t.Fatalf("events = %v", pub.events)
	}
	for i, action := range want {
		if pub.events[i] != action {
			t.Errorf("event %d = %q, want %q", i, pub.events[i], action)
		}
	}
	if inv.calls != 3 {
		t.Errorf("cache invalidated %d times, want 3", inv.calls)
	}
}

func TestListExpensesFiltersAndPaginates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakePublisher{}, &fakeInvalidator{})
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		e := validExpense(1)
		e.Date = core.NewDate(2024, 6, 1+i%28)
		if _, err := svc.CreateExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	// Someone else's expense never shows up.
	if _, err := svc.CreateExpense(ctx, validExpense(2)); err != nil {
		t.Fatal(err)
	}

	page, total, err := svc.ListExpenses(ctx, 1, filter.Params{})
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if total != 25 {
		t.Errorf("total = %d, want 25", total)
	}
	if len(page) != filter.DefaultPageSize {
		t.Errorf("page size = %d, want %d", len(page), filter.DefaultPageSize)
	}

	page2, _, err := svc.ListExpenses(ctx, 1, filter.Params{Page: "2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 5 {
		t.Errorf("second page size = %d, want 5", len(page2))
	}

	// Pages past the data are empty, not errors.
	page9, total, err := svc.ListExpenses(ctx, 1, filter.Params{Page: "9"})
	if err != nil {
		t.Fatal(err)
	}
	if len(page9) != 0 || total != 25 {
		t.Errorf("page 9 = %d items, total %d", len(page9), total)
	}
}

func TestListExpensesInvalidFilter(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakePublisher{}, &fakeInvalidator{})
	_, _, err := svc.ListExpenses(context.Background(), 1, filter.Params{Period: "bogus"})
	var verr *filter.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *filter.ValidationError", err)
	}
}
