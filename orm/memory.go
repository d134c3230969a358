package orm

import (
	"context"
	"fmt"
	"sync"
)

// MemoryDriver keeps rows in process memory. Ids are integers drawn from a
// per-table sequence starting at 1. It is safe for concurrent use.
type MemoryDriver struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
}

type memoryTable struct {
	rows []Fields
	seq  int
}

// NewMemoryDriver returns an empty MemoryDriver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{tables: make(map[string]*memoryTable)}
}

var _ Driver = (*MemoryDriver)(nil)

// Reset empties table, restarts its sequence and inserts rows in order.
// It panics if two rows share an id.
func (d *MemoryDriver) Reset(table string, rows ...Fields) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &memoryTable{}
	d.tables[table] = t
	for _, row := range rows {
		if _, err := t.insert(table, row); err != nil {
			panic(err)
		}
	}
}

// Rows returns a copy of every row in table, in insertion order.
func (d *MemoryDriver) Rows(table string) []Fields {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[table]
	if !ok {
		return []Fields{}
	}
	out := make([]Fields, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Clone()
	}
	return out
}

func (d *MemoryDriver) Find(ctx context.Context, table string, filter Fields, limit int) ([]Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.tables[table]
	if !ok {
		return nil, nil
	}
	var out []Fields
	for _, row := range t.rows {
		if !row.Matches(filter) {
			continue
		}
		out = append(out, row.Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (d *MemoryDriver) Insert(ctx context.Context, table string, fields Fields) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.table(table).insert(table, fields)
}

func (d *MemoryDriver) Update(ctx context.Context, table string, id any, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // pass through
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.table(table)
	i := t.index(id)
	if i < 0 {
		return ErrNotFound
	}
	t.rows[i] = t.rows[i].Merge(fields.Without(PrimaryKey))
	return nil
}

func (d *MemoryDriver) Delete(ctx context.Context, table string, id any) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // pass through
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.table(table)
	i := t.index(id)
	if i < 0 {
		return ErrNotFound
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

// table returns the named table, creating it. Callers hold d.mu.
func (d *MemoryDriver) table(name string) *memoryTable {
	t, ok := d.tables[name]
	if !ok {
		t = &memoryTable{}
		d.tables[name] = t
	}
	return t
}

func (t *memoryTable) insert(name string, fields Fields) (any, error) {
	row := fields.Clone()
	id, ok := row[PrimaryKey]
	if !ok || id == nil {
		t.seq++
		id = t.seq
		row[PrimaryKey] = id
	} else if t.index(id) >= 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrDuplicateKey, name, id)
	} else if n, ok := asInt(id); ok && int(n) > t.seq {
		t.seq = int(n)
	}
	t.rows = append(t.rows, row)
	return id, nil
}

func (t *memoryTable) index(id any) int {
	for i, row := range t.rows {
		if EqualValues(row[PrimaryKey], id) {
			return i
		}
	}
	return -1
}
