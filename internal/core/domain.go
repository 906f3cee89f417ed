package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Expense is a single spending record, owned by exactly one user.
	// Tags is the raw comma-separated tag field; filtering matches
	// substrings inside it.
	Expense struct {
		ID           int64
		UserID       int64
		Amount       Money
		Description  string
		CategoryID   int64
		CategoryName string
		Tags         string
		Date         Date
		CreatedAt    time.Time
	}

	// Category is shared and globally visible; expenses reference it by id.
	Category struct {
		ID   int64
		Name string
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Budget holds a user's monthly spending ceiling. A user without a
	// stored row has an implicit budget of zero.
	Budget struct {
		UserID       int64
		MonthlyCents int64
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingCategory  = errors.New("category is required")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Truncate drops the time-of-day component, keeping the calendar date.
func Truncate(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.CategoryID == 0 {
		return ErrMissingCategory
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("empty category name")
	}
	if len(name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	return nil
}
