package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

// UncategorizedTitle is the reserved category a transaction falls into when no
// category name is supplied. It is created lazily on first use like any other
// category.
const UncategorizedTitle = "Uncategorized"

type (
	TransactionType string

	Category struct {
		ID        string
		Title     string
		CreatedAt time.Time
	}

	// Transaction is immutable once persisted. CategoryTitle is denormalized
	// from the referenced category for listing and responses.
	Transaction struct {
		ID            string
		Title         string
		Value         Money
		Type          TransactionType
		CategoryID    string
		CategoryTitle string
		CreatedAt     time.Time
	}

	// NewTransaction is the record handed to the store for insertion. The
	// store assigns the ID and timestamp.
	NewTransaction struct {
		Title      string
		Value      Money
		Type       TransactionType
		CategoryID string
	}

	// Balance is derived from the full transaction set and never stored.
	Balance struct {
		Income  Money
		Outcome Money
		Total   Money
	}
)

// ParseTransactionType validates the type enum after trimming.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.TrimSpace(s)) {
	case Income:
		return Income, nil
	case Outcome:
		return Outcome, nil
	}
	return "", NewValidationError("transaction type must be 'income' or 'outcome'", nil)
}

// NormalizeCategoryTitle trims the free-text category name and substitutes the
// reserved title when it is empty, so every transaction ends up referencing an
// existing category.
func NormalizeCategoryTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UncategorizedTitle
	}
	return s
}

func (t NewTransaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("transaction title cannot be empty", nil)
	}
	if t.Value.Cents < 0 {
		return NewValidationError("transaction value cannot be negative", nil)
	}
	if t.Type != Income && t.Type != Outcome {
		return NewValidationError("transaction type must be 'income' or 'outcome'", nil)
	}
	if t.CategoryID == "" {
		return NewValidationError("transaction must reference a category", nil)
	}
	return nil
}
