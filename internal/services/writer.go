package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gofinances/internal/core"
	"gofinances/internal/events"
	"gofinances/internal/ledger"
)

// CreateTransactionInput carries the raw create request. Value arrives
// already parsed to cents; Type and CategoryTitle are free text to validate.
type CreateTransactionInput struct {
	Title         string
	Value         core.Money
	Type          string
	CategoryTitle string
}

// TransactionWriter enforces the overdraft rule and persists single
// transactions. The balance is read before the insert; the store repeats the
// check inside the same write transaction, so overlapping creates cannot
// overspend even though this pre-check runs outside any lock.
type TransactionWriter struct {
	store    ledger.Store
	balance  *BalanceCalculator
	resolver *CategoryResolver
	events   *events.Client
}

func NewTransactionWriter(store ledger.Store, balance *BalanceCalculator, resolver *CategoryResolver, eventsClient *events.Client) *TransactionWriter {
	return &TransactionWriter{
		store:    store,
		balance:  balance,
		resolver: resolver,
		events:   eventsClient,
	}
}

// Create validates the type enum, rejects outcomes above the current total,
// resolves the category (creating it on first sight) and persists the row.
func (w *TransactionWriter) Create(ctx context.Context, input CreateTransactionInput) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(input.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	if input.Value.Cents < 0 {
		return core.Transaction{}, core.NewValidationError("transaction value cannot be negative", nil)
	}
	// Reject before resolving the category, so an invalid request leaves no
	// new category row behind.
	if strings.TrimSpace(input.Title) == "" {
		return core.Transaction{}, core.NewValidationError("transaction title cannot be empty", nil)
	}

	if typ == core.Outcome {
		bal, err := w.balance.Balance(ctx)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("compute balance: %w", err)
		}
		if input.Value.Cents > bal.Total.Cents {
			return core.Transaction{}, core.NewOverdraftError(fmt.Sprintf(
				"outcome of %s exceeds available balance of %s", input.Value, bal.Total))
		}
	}

	title := core.NormalizeCategoryTitle(input.CategoryTitle)
	resolved, err := w.resolver.Resolve(ctx, []string{title})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
	}
	category := resolved[title]

	rec := core.NewTransaction{
		Title:      input.Title,
		Value:      input.Value,
		Type:       typ,
		CategoryID: category.ID,
	}
	if err := rec.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := w.store.CreateTransaction(ctx, rec)
	if err != nil {
		return core.Transaction{}, err
	}

	w.publishCreated(ctx, created.ID)
	return created, nil
}

func (w *TransactionWriter) publishCreated(ctx context.Context, id string) {
	if w.events == nil {
		slog.DebugContext(ctx, "Event client not available, skipping created event")
		return
	}
	if err := w.events.PublishTransactionCreated(ctx, id); err != nil {
		// The transaction is already persisted; a lost notification must not
		// fail the request.
		slog.ErrorContext(ctx, "Failed to publish created event", "id", id, "error", err)
	}
}
