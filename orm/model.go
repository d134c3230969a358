package orm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// RelationFunc builds the value returned when a relation is accessed on an
// owner record. It is called on every access.
type RelationFunc func(owner *Record) any

// Model is a handle on one table. It exposes the lookup and persistence
// primitives relations are built on.
type Model struct {
	modeller *Modeller
	table    string

	mu        sync.RWMutex
	relations map[string]RelationFunc
}

// TableName returns the table the model reads and writes.
func (m *Model) TableName() string { return m.table }

// Modeller returns the Modeller the model belongs to.
func (m *Model) Modeller() *Modeller { return m.modeller }

// DefineRelation associates name with a constructor run on every access
// through Record.Relation.
func (m *Model) DefineRelation(name string, fn RelationFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("orm: invalid relation %q on %s", name, m.table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.relations[name]; ok {
		return fmt.Errorf("%w: %s.%s", ErrRelationExists, m.table, name)
	}
	m.relations[name] = fn
	return nil
}

// Relations returns the defined relation names in sorted order.
func (m *Model) Relations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.relations))
	for name := range m.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Model) relation(name string) (RelationFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn, ok := m.relations[name]
	return fn, ok
}

// Build returns a new, unsaved record holding a copy of data.
func (m *Model) Build(data Fields) *Record {
	return &Record{model: m, fields: data.Clone()}
}

// Find returns every record matching filter.
func (m *Model) Find(ctx context.Context, filter Fields) ([]*Record, error) {
	return m.find(ctx, filter, 0)
}

// FindOne returns the first record matching filter, or nil when nothing
// matches.
func (m *Model) FindOne(ctx context.Context, filter Fields) (*Record, error) {
	m.log("find one", filter)
	recs, err := m.find(ctx, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

func (m *Model) find(ctx context.Context, filter Fields, limit int) ([]*Record, error) {
	rows, err := m.modeller.driver.Find(ctx, m.table, filter, limit)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	recs := make([]*Record, len(rows))
	for i, row := range rows {
		recs[i] = &Record{model: m, fields: row}
	}
	return recs, nil
}

// Create inserts a record built from data. An id in data is kept.
func (m *Model) Create(ctx context.Context, data Fields) (*Record, error) {
	m.log("create", data)
	rec := m.Build(data)
	if err := rec.insert(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// FindOrCreate returns the record matching filter. When none exists it
// creates one from data overlaid with filter.
func (m *Model) FindOrCreate(ctx context.Context, filter, data Fields) (*Record, error) {
	m.log("find or create", filter)
	rec, err := m.FindOne(ctx, filter)
	if err != nil || rec != nil {
		return rec, err
	}
	return m.Create(ctx, data.Merge(filter))
}

// CreateOrUpdate assigns data to the record matching filter and saves it.
// When none exists it creates one from data overlaid with filter.
func (m *Model) CreateOrUpdate(ctx context.Context, filter, data Fields) (*Record, error) {
	m.log("create or update", filter)
	rec, err := m.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return m.Create(ctx, data.Merge(filter))
	}
	rec.Assign(data)
	if err := rec.Save(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateOne assigns data to the record matching filter and saves it.
// It returns nil when nothing matches.
func (m *Model) UpdateOne(ctx context.Context, filter, data Fields) (*Record, error) {
	m.log("update one", filter)
	rec, err := m.FindOne(ctx, filter)
	if err != nil || rec == nil {
		return nil, err
	}
	rec.Assign(data)
	if err := rec.Save(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// RemoveOne deletes the record matching filter and returns it with its last
// known fields. It returns nil when nothing matches.
func (m *Model) RemoveOne(ctx context.Context, filter Fields) (*Record, error) {
	m.log("remove one", filter)
	rec, err := m.FindOne(ctx, filter)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := rec.Remove(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (m *Model) log(op string, fields Fields) {
	m.modeller.logger.Debug("orm: "+op,
		zap.String("table", m.table),
		zap.Any("fields", map[string]any(fields)),
	)
}
