package books

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemory is a Store backed by a map, used by tests and DSN-less runs.
type InMemory struct {
	mu    sync.RWMutex
	items map[string]*Book
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{items: make(map[string]*Book)}
}

func (m *InMemory) Create(ctx context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.items[b.ID] = &cp
	return nil
}

func (m *InMemory) Get(ctx context.Context, id string) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *InMemory) Update(ctx context.Context, b *Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[b.ID]; !ok {
		return ErrNotFound
	}
	cp := *b
	m.items[b.ID] = &cp
	return nil
}

func (m *InMemory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *InMemory) List(ctx context.Context, filter Filter, page Page) ([]Book, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Book
	needle := strings.ToLower(strings.TrimSpace(filter.TitleContains))
	for _, b := range m.items {
		if needle != "" && !strings.Contains(strings.ToLower(b.Title), needle) {
			continue
		}
		if filter.DateFrom != nil && (b.PublicationDate == nil || b.PublicationDate.Before(*filter.DateFrom)) {
			continue
		}
		if filter.DateTo != nil && (b.PublicationDate == nil || b.PublicationDate.After(*filter.DateTo)) {
			continue
		}
		matched = append(matched, *b)
	}

	// Publication date descending, undated last; ties broken by id for a
	// stable page order.
	sort.Slice(matched, func(i, j int) bool {
		di, dj := matched[i].PublicationDate, matched[j].PublicationDate
		switch {
		case di == nil && dj == nil:
			return matched[i].ID < matched[j].ID
		case di == nil:
			return false
		case dj == nil:
			return true
		case di.Equal(*dj):
			return matched[i].ID < matched[j].ID
		default:
			return di.After(*dj)
		}
	})

	total := len(matched)
	offset := page.Offset()
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if page.Size > 0 && offset+page.Size < total {
		end = offset + page.Size
	}
	return matched[offset:end], total, nil
}
