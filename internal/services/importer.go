package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"gofinances/internal/core"
	"gofinances/internal/events"
	"gofinances/internal/ledger"
)

// FileRemover releases the consumed upload artifact. The default removes the
// file from the local filesystem; tests substitute their own.
type FileRemover interface {
	Remove(name string) error
}

type osRemover struct{}

func (osRemover) Remove(name string) error { return os.Remove(name) }

// importRow is a fully validated CSV row. Rows only become importRows after
// trimming and the non-empty checks pass; everything else is dropped during
// the stream phase.
type importRow struct {
	title    string
	typ      core.TransactionType
	value    core.Money
	category string
}

// BulkImporter ingests a CSV artifact into the ledger in one logical
// operation: stream-parse every row, resolve all category names in a single
// batched call, then bulk-persist the whole batch atomically.
type BulkImporter struct {
	store    ledger.Store
	resolver *CategoryResolver
	events   *events.Client
	files    FileRemover
}

func NewBulkImporter(store ledger.Store, resolver *CategoryResolver, eventsClient *events.Client, files FileRemover) *BulkImporter {
	if files == nil {
		files = osRemover{}
	}
	return &BulkImporter{
		store:    store,
		resolver: resolver,
		events:   eventsClient,
		files:    files,
	}
}

// ImportFile parses the CSV at path and returns the created transactions in
// input row order. The source file is removed once the import finishes,
// whether or not the persist succeeded, so failed imports don't accumulate
// orphaned uploads.
func (b *BulkImporter) ImportFile(ctx context.Context, path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewStorageError("open import source", err)
	}
	defer b.releaseSource(ctx, path)

	rows, names, err := b.parse(ctx, f)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Import stream drained", "file", path, "rows", len(rows))
	if len(rows) == 0 {
		return nil, nil
	}

	resolved, err := b.resolver.Resolve(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve import categories: %w", err)
	}

	recs := make([]core.NewTransaction, len(rows))
	for i, row := range rows {
		recs[i] = core.NewTransaction{
			Title:      row.title,
			Value:      row.value,
			Type:       row.typ,
			CategoryID: resolved[row.category].ID,
		}
	}

	created, err := b.store.CreateTransactions(ctx, recs)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Import completed",
		"file", path,
		"transactions", len(created),
		"distinct_categories", len(resolved))

	if b.events != nil {
		if err := b.events.PublishImportCompleted(ctx, len(created)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import event", "error", err)
		}
	}

	return created, nil
}

// parse streams the CSV through a producer goroutine while this goroutine
// accumulates rows and their category names in lockstep. Resolution never
// starts before the stream has fully drained.
func (b *BulkImporter) parse(ctx context.Context, f *os.File) ([]importRow, []string, error) {
	defer f.Close()

	rowCh := make(chan importRow)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rowCh)
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1

		header := true
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return core.NewValidationError("malformed CSV source", err)
			}
			if header {
				header = false
				continue
			}
			row, ok := parseImportRow(ctx, rec)
			if !ok {
				continue
			}
			select {
			case rowCh <- row:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	var rows []importRow
	var names []string
	for row := range rowCh {
		rows = append(rows, row)
		names = append(names, row.category)
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rows, names, nil
}

// parseImportRow trims the four expected fields and drops the row when any
// required field is empty or unparseable. Dropped rows are not errors.
func parseImportRow(ctx context.Context, rec []string) (importRow, bool) {
	if len(rec) < 4 {
		return importRow{}, false
	}

	title := strings.TrimSpace(rec[0])
	typRaw := strings.TrimSpace(rec[1])
	valueRaw := strings.TrimSpace(rec[2])
	category := strings.TrimSpace(rec[3])

	if title == "" || typRaw == "" || valueRaw == "" {
		return importRow{}, false
	}

	typ, err := core.ParseTransactionType(typRaw)
	if err != nil {
		slog.DebugContext(ctx, "Dropping row with unknown type", "type", typRaw, "title", title)
		return importRow{}, false
	}
	value, err := core.ParseAmount(valueRaw)
	if err != nil {
		slog.DebugContext(ctx, "Dropping row with invalid value", "value", valueRaw, "title", title)
		return importRow{}, false
	}

	return importRow{
		title:    title,
		typ:      typ,
		value:    value,
		category: core.NormalizeCategoryTitle(category),
	}, true
}

func (b *BulkImporter) releaseSource(ctx context.Context, path string) {
	if err := b.files.Remove(path); err != nil {
		slog.WarnContext(ctx, "Keeping import source, removal failed", "file", path, "error", err)
	}
}
