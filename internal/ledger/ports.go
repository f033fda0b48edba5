// Package ledger declares the ports the ledger core consumes. The durable
// store is the only shared mutable resource; every mutation goes through
// these interfaces.
package ledger

import (
	"context"

	"gofinances/internal/core"
)

type (
	TransactionStore interface {
		// ListTransactions returns the full transaction set in insertion order.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)

		// GetTransaction returns nil (no error) when the id is unknown.
		GetTransaction(ctx context.Context, id string) (*core.Transaction, error)

		// CreateTransaction persists a single record. For outcome records the
		// store checks the running balance and the insert atomically, so
		// concurrent writers cannot overdraw together.
		CreateTransaction(ctx context.Context, rec core.NewTransaction) (core.Transaction, error)

		// CreateTransactions persists a batch in one atomic write; either the
		// whole batch lands or none of it does.
		CreateTransactions(ctx context.Context, recs []core.NewTransaction) ([]core.Transaction, error)

		// DeleteTransaction removes exactly one row, or fails with a
		// not_found kind.
		DeleteTransaction(ctx context.Context, id string) error
	}

	CategoryStore interface {
		FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error)

		// CreateCategory fails with a conflict kind when the title exists.
		CreateCategory(ctx context.Context, title string) (core.Category, error)

		// CreateCategories persists the batch atomically; a duplicate title
		// anywhere in it fails the whole batch with a conflict kind.
		CreateCategories(ctx context.Context, titles []string) ([]core.Category, error)
	}

	// Store is the combined contract a full backend implements.
	Store interface {
		TransactionStore
		CategoryStore
	}
)
