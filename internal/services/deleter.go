package services

import (
	"context"
	"log/slog"

	"gofinances/internal/core"
	"gofinances/internal/events"
	"gofinances/internal/ledger"

	"github.com/google/uuid"
)

// TransactionDeleter removes single transactions by id. The id format is
// checked before any store access, so a malformed id never reaches the
// database. Categories are never cascaded.
type TransactionDeleter struct {
	store  ledger.TransactionStore
	events *events.Client
}

func NewTransactionDeleter(store ledger.TransactionStore, eventsClient *events.Client) *TransactionDeleter {
	return &TransactionDeleter{store: store, events: eventsClient}
}

func (d *TransactionDeleter) Delete(ctx context.Context, id string) error {
	// uuid.Parse also tolerates hex-only and urn:uuid: forms; ids are stored
	// canonically, so only the 36-char hyphenated syntax is accepted.
	if len(id) != 36 {
		return core.NewValidationError("'"+id+"' is not a valid transaction id", nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		return core.NewValidationError("'"+id+"' is not a valid transaction id", err)
	}

	if err := d.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	if d.events != nil {
		if err := d.events.PublishTransactionDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish deleted event", "id", id, "error", err)
		}
	}
	return nil
}
