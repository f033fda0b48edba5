package services

import (
	"context"
	"fmt"

	"gofinances/internal/core"
	"gofinances/internal/ledger"
)

// BalanceCalculator derives the running balance from the full transaction
// set. Nothing is cached; every call reduces a fresh snapshot read so the
// total can never drift from the stored rows.
type BalanceCalculator struct {
	store ledger.TransactionStore
}

func NewBalanceCalculator(store ledger.TransactionStore) *BalanceCalculator {
	return &BalanceCalculator{store: store}
}

// Balance reduces the transaction set in a single pass. Unknown transaction
// types are ignored rather than rejected, so rows written by a newer schema
// don't break the computation.
func (b *BalanceCalculator) Balance(ctx context.Context) (core.Balance, error) {
	transactions, err := b.store.ListTransactions(ctx)
	if err != nil {
		return core.Balance{}, fmt.Errorf("list transactions: %w", err)
	}

	var income, outcome int64
	for _, t := range transactions {
		switch t.Type {
		case core.Income:
			income += t.Value.Cents
		case core.Outcome:
			outcome += t.Value.Cents
		}
	}

	return core.Balance{
		Income:  core.Money{Cents: income},
		Outcome: core.Money{Cents: outcome},
		Total:   core.Money{Cents: income - outcome},
	}, nil
}
