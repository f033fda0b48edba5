package services

import (
	"context"
	"sync"

	"gofinances/internal/core"

	"github.com/google/uuid"
)

// fakeStore is an in-memory ledger.Store with call counters, so tests can
// assert both outcomes and the number of store round trips.
type fakeStore struct {
	mu           sync.Mutex
	transactions []core.Transaction
	categories   []core.Category

	findCategoryCalls int
	bulkCategoryCalls int
	listCalls         int
	createCalls       int
	bulkCreateCalls   int
	deleteCalls       int

	// conflictNextBulkCreate simulates a concurrent resolver winning the
	// race: the categories appear in the store, but the caller's create
	// fails with a conflict.
	conflictNextBulkCreate bool

	failBulkCreateTx error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) ListTransactions(context.Context) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]core.Transaction, len(f.transactions))
	copy(out, f.transactions)
	return out, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id string) (*core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, rec core.NewTransaction) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return f.insertLocked(rec)
}

func (f *fakeStore) CreateTransactions(_ context.Context, recs []core.NewTransaction) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCreateCalls++
	if f.failBulkCreateTx != nil {
		return nil, f.failBulkCreateTx
	}
	out := make([]core.Transaction, 0, len(recs))
	for _, rec := range recs {
		t, err := f.insertLocked(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) insertLocked(rec core.NewTransaction) (core.Transaction, error) {
	var categoryTitle string
	for _, c := range f.categories {
		if c.ID == rec.CategoryID {
			categoryTitle = c.Title
		}
	}
	if categoryTitle == "" {
		return core.Transaction{}, core.NewValidationError("category "+rec.CategoryID+" does not exist", nil)
	}
	t := core.Transaction{
		ID:            uuid.NewString(),
		Title:         rec.Title,
		Value:         rec.Value,
		Type:          rec.Type,
		CategoryID:    rec.CategoryID,
		CategoryTitle: categoryTitle,
	}
	f.transactions = append(f.transactions, t)
	return t, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	for i, t := range f.transactions {
		if t.ID == id {
			f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
			return nil
		}
	}
	return core.NewNotFoundError("transaction " + id + " does not exist")
}

func (f *fakeStore) FindCategoriesByTitles(_ context.Context, titles []string) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCategoryCalls++
	var out []core.Category
	for _, c := range f.categories {
		for _, title := range titles {
			if c.Title == title {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CreateCategory(ctx context.Context, title string) (core.Category, error) {
	created, err := f.CreateCategories(ctx, []string{title})
	if err != nil {
		return core.Category{}, err
	}
	return created[0], nil
}

func (f *fakeStore) CreateCategories(_ context.Context, titles []string) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCategoryCalls++

	if f.conflictNextBulkCreate {
		f.conflictNextBulkCreate = false
		// The "other writer" got there first.
		for _, title := range titles {
			f.categories = append(f.categories, core.Category{ID: uuid.NewString(), Title: title})
		}
		return nil, core.NewConflictError("category '"+titles[0]+"' already exists", nil)
	}

	out := make([]core.Category, 0, len(titles))
	for _, title := range titles {
		for _, c := range f.categories {
			if c.Title == title {
				return nil, core.NewConflictError("category '"+title+"' already exists", nil)
			}
		}
		c := core.Category{ID: uuid.NewString(), Title: title}
		f.categories = append(f.categories, c)
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) categoryCountByTitle(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.categories {
		if c.Title == title {
			n++
		}
	}
	return n
}

func (f *fakeStore) storeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCategoryCalls + f.bulkCategoryCalls + f.listCalls +
		f.createCalls + f.bulkCreateCalls + f.deleteCalls
}

// memRemover records removed paths instead of touching the filesystem when
// the test wants to keep the artifact around.
type memRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (m *memRemover) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, name)
	return nil
}
