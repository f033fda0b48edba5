package services

import (
	"context"
	"fmt"
	"log/slog"

	"gofinances/internal/core"
	"gofinances/internal/ledger"
)

// CategoryResolver maps free-text category names to canonical Category
// records, creating missing ones exactly once per distinct name. Both the
// single-create path and bulk import go through it, so a name never yields
// two rows within one call.
type CategoryResolver struct {
	store ledger.CategoryStore
}

func NewCategoryResolver(store ledger.CategoryStore) *CategoryResolver {
	return &CategoryResolver{store: store}
}

// Resolve returns a mapping that covers every input name. Duplicate names in
// the input resolve to the identical Category record. Lookups and creates are
// batched: one find for the distinct set, one bulk create for the missing
// subset.
//
// A concurrent resolver can win the race on an unseen name; the store rejects
// the duplicate via its unique title constraint and Resolve retries once
// against the fresh store state before surfacing the conflict.
func (r *CategoryResolver) Resolve(ctx context.Context, names []string) (map[string]core.Category, error) {
	resolved, err := r.resolveOnce(ctx, names)
	if err == nil {
		return resolved, nil
	}
	if !core.IsConflict(err) {
		return nil, err
	}

	slog.WarnContext(ctx, "Category creation raced, re-resolving", "error", err)
	return r.resolveOnce(ctx, names)
}

func (r *CategoryResolver) resolveOnce(ctx context.Context, names []string) (map[string]core.Category, error) {
	distinct := dedupePreservingOrder(names)
	if len(distinct) == 0 {
		return map[string]core.Category{}, nil
	}

	existing, err := r.store.FindCategoriesByTitles(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	byTitle := make(map[string]core.Category, len(distinct))
	for _, c := range existing {
		byTitle[c.Title] = c
	}

	var missing []string
	for _, name := range distinct {
		if _, ok := byTitle[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		created, err := r.store.CreateCategories(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, c := range created {
			byTitle[c.Title] = c
		}
		slog.InfoContext(ctx, "Created missing categories",
			"requested", len(distinct), "created", len(created))
	}

	return byTitle, nil
}

// dedupePreservingOrder keeps the first occurrence of each name.
func dedupePreservingOrder(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	var out []string
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
