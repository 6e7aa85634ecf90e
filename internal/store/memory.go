package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/couchcryptid/crudgen-api/internal/model"
)

// Memory is an in-process DataAccess used when no database is configured and in
// tests. Records keep insertion order; ids are ULIDs.
type Memory struct {
	mu      sync.RWMutex
	records map[string]map[string]model.Record
	order   map[string][]string
	entropy io.Reader
}

var _ model.DataAccess = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]map[string]model.Record),
		order:   make(map[string][]string),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// List returns up to limit records of entity in insertion order. A limit of 0
// returns every record.
func (m *Memory) List(_ context.Context, entity string, limit int) ([]model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Record, 0)
	for _, id := range m.order[entity] {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cloneRecord(m.records[entity][id]))
	}
	return out, nil
}

// Get returns one record.
func (m *Memory) Get(_ context.Context, entity, id string) (model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[entity][id]
	if !ok {
		return model.Record{}, &model.NotFoundError{Entity: entity, ID: id}
	}
	return cloneRecord(rec), nil
}

// Create stores a new record with a generated id.
func (m *Memory) Create(_ context.Context, entity string, fields map[string]any) (model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := model.Record{ID: m.newID(), Fields: cloneFields(fields)}
	if m.records[entity] == nil {
		m.records[entity] = make(map[string]model.Record)
	}
	m.records[entity][rec.ID] = rec
	m.order[entity] = append(m.order[entity], rec.ID)
	return cloneRecord(rec), nil
}

// newID must be called with mu held.
func (m *Memory) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), m.entropy).String()
}

// Update merges fields into an existing record. A nil value clears the field.
func (m *Memory) Update(_ context.Context, entity, id string, fields map[string]any) (model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[entity][id]
	if !ok {
		return model.Record{}, &model.NotFoundError{Entity: entity, ID: id}
	}
	merged := cloneFields(rec.Fields)
	for k, v := range fields {
		merged[k] = cloneValue(v)
	}
	rec.Fields = merged
	m.records[entity][id] = rec
	return cloneRecord(rec), nil
}

// Delete removes a record.
func (m *Memory) Delete(_ context.Context, entity, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[entity][id]; !ok {
		return &model.NotFoundError{Entity: entity, ID: id}
	}
	delete(m.records[entity], id)
	m.order[entity] = slices.DeleteFunc(m.order[entity], func(s string) bool { return s == id })
	return nil
}

// ListBy returns records whose field equals value or, for list fields, contains it.
func (m *Memory) ListBy(_ context.Context, entity, field, value string, limit int) ([]model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Record, 0)
	for _, id := range m.order[entity] {
		if limit > 0 && len(out) == limit {
			break
		}
		rec := m.records[entity][id]
		if matches(rec.Fields[field], value) {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func matches(v any, value string) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t == value
	case []string:
		return slices.Contains(t, value)
	case []any:
		return slices.ContainsFunc(t, func(item any) bool { return matches(item, value) })
	}
	return fmt.Sprint(v) == value
}

func cloneRecord(r model.Record) model.Record {
	return model.Record{ID: r.ID, Fields: cloneFields(r.Fields)}
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t)
	case []any:
		return slices.Clone(t)
	case map[string]any:
		return maps.Clone(t)
	}
	return v
}
