package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Skotchmaster/storefront/internal/models"
)

// Memory is an in-process Index matching case-insensitive substrings of
// name and description.
type Memory struct {
	mu   sync.Mutex
	docs map[uint]document
}

func NewMemory() *Memory {
	return &Memory{docs: map[uint]document{}}
}

func (m *Memory) Upsert(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[p.ID] = toDocument(p)
	return nil
}

func (m *Memory) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *Memory) Has(id uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[id]
	return ok
}

func (m *Memory) Search(_ context.Context, query string, from, size int) (Hits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var ids []uint
	for id, d := range m.docs {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Description), q) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := Hits{Total: int64(len(ids)), IDs: []uint{}}
	if from < len(ids) {
		end := from + size
		if end > len(ids) {
			end = len(ids)
		}
		out.IDs = ids[from:end]
	}
	return out, nil
}
