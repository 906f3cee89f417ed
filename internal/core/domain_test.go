package core

import (
	"errors"
	"strings"
	"testing"
)

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Date:        NewDate(2024, 6, 1),
		Description: "groceries",
		Amount:      Money{Cents: 1500},
		CategoryID:  3,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(e *Expense)
		wantErr error
	}{
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"empty description", func(e *Expense) { e.Description = "  " }, ErrEmptyDescription},
		{"missing category", func(e *Expense) { e.CategoryID = 0 }, ErrMissingCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("long description", func(t *testing.T) {
		e := valid
		e.Description = strings.Repeat("x", 201)
		if err := e.Validate(); err == nil {
			t.Fatal("expected error for long description")
		}
	})

	t.Run("zero and negative amounts allowed", func(t *testing.T) {
		e := valid
		e.Amount = Money{Cents: 0}
		if err := e.Validate(); err != nil {
			t.Fatalf("zero amount rejected: %v", err)
		}
		e.Amount = Money{Cents: -100}
		if err := e.Validate(); err != nil {
			t.Fatalf("negative amount rejected: %v", err)
		}
	})
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Name: "Groceries"}).Validate(); err != nil {
		t.Fatalf("valid category rejected: %v", err)
	}
	if err := (Category{Name: "  "}).Validate(); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := (Category{Name: strings.Repeat("c", 101)}).Validate(); err == nil {
		t.Fatal("expected error for long name")
	}
}

func TestTruncate(t *testing.T) {
	d := Truncate(NewDate(2024, 6, 15).Add(13*60*60*1e9 + 30*60*1e9))
	if d.Year() != 2024 || d.Month() != 6 || d.Day() != 15 {
		t.Fatalf("Truncate lost the calendar date: %v", d)
	}
	if h, m, s := d.Clock(); h != 0 || m != 0 || s != 0 {
		t.Fatalf("Truncate kept time-of-day: %02d:%02d:%02d", h, m, s)
	}
}
