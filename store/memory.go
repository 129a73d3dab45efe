package store

import (
	"slices"

	"github.com/dhcgn/quickchat/model"
)

// MemStore keeps record files in memory, keyed and ordered like FileStore.
type MemStore struct {
	order []string
	files map[string]model.Record
}

func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string]model.Record)}
}

func (m *MemStore) Save(rec model.Record) error {
	name := FileName(rec)
	if rec.Index != 0 {
		m.dropDraftOf(rec)
	}
	if _, ok := m.files[name]; !ok {
		m.order = append(m.order, name)
	}
	m.files[name] = rec
	return nil
}

func (m *MemStore) Remove(rec model.Record) error {
	m.drop(FileName(rec))
	if rec.Index != 0 {
		m.dropDraftOf(rec)
	}
	return nil
}

func (m *MemStore) LoadAll() ([]model.Record, error) {
	out := make([]model.Record, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.files[name])
	}
	return out, nil
}

func (m *MemStore) Purge() error {
	m.order = nil
	m.files = make(map[string]model.Record)
	return nil
}

// Len returns the number of record files held.
func (m *MemStore) Len() int {
	return len(m.order)
}

func (m *MemStore) dropDraftOf(rec model.Record) {
	name := draftFileName(rec.ID)
	if prev, ok := m.files[name]; ok && SameMessage(prev, rec) {
		m.drop(name)
	}
}

func (m *MemStore) drop(name string) {
	if _, ok := m.files[name]; !ok {
		return
	}
	delete(m.files, name)
	if i := slices.Index(m.order, name); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
}
