package orm

import (
	"context"
	"fmt"
)

// Record is one row of a model. Its fields are owned by the record; getters
// return copies.
type Record struct {
	model  *Model
	fields Fields
}

// Model returns the model the record belongs to.
func (r *Record) Model() *Model { return r.model }

// ID returns the primary key, or nil for a record that was never saved.
func (r *Record) ID() any { return r.fields[PrimaryKey] }

// IsNew reports whether the record has no primary key yet.
func (r *Record) IsNew() bool { return r.ID() == nil }

// Get returns the value of column.
func (r *Record) Get(column string) any { return r.fields[column] }

// Set sets column to value in memory. Call Save to persist it.
func (r *Record) Set(column string, value any) {
	if r.fields == nil {
		r.fields = make(Fields)
	}
	r.fields[column] = value
}

// Assign copies data onto the record. The primary key is never changed.
func (r *Record) Assign(data Fields) {
	for k, v := range data {
		if k == PrimaryKey {
			continue
		}
		r.Set(k, v)
	}
}

// Fields returns a copy of the record's columns.
func (r *Record) Fields() Fields { return r.fields.Clone() }

// Save inserts a new record or updates an existing one.
func (r *Record) Save(ctx context.Context) error {
	if r.IsNew() {
		return r.insert(ctx)
	}
	r.touch(ctx, false)
	return r.model.modeller.driver.Update(ctx, r.model.table, r.ID(), r.fields.Without(PrimaryKey)) //nolint:wrapcheck // pass through
}

// insert stores the record as a new row, keeping a caller-supplied id.
func (r *Record) insert(ctx context.Context) error {
	r.touch(ctx, true)
	fields := r.fields.Clone()
	if fields[PrimaryKey] == nil {
		delete(fields, PrimaryKey)
	}
	id, err := r.model.modeller.driver.Insert(ctx, r.model.table, fields)
	if err != nil {
		return err //nolint:wrapcheck // pass through
	}
	r.Set(PrimaryKey, id)
	return nil
}

func (r *Record) touch(ctx context.Context, created bool) {
	if !r.model.modeller.timestamps {
		return
	}
	t := now(ctx)
	if created {
		r.Set("created_at", t)
	}
	r.Set("updated_at", t)
}

// Reload replaces the record's fields with the stored row.
// Returns ErrNotFound if the row no longer exists.
func (r *Record) Reload(ctx context.Context) error {
	if r.IsNew() {
		return ErrNoPrimaryKey
	}
	rows, err := r.model.modeller.driver.Find(ctx, r.model.table, Fields{PrimaryKey: r.ID()}, 1)
	if err != nil {
		return err //nolint:wrapcheck // pass through
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	r.fields = rows[0]
	return nil
}

// Remove deletes the stored row. The record keeps its other fields but
// loses its primary key, so saving it again inserts a new row.
func (r *Record) Remove(ctx context.Context) error {
	if r.IsNew() {
		return ErrNoPrimaryKey
	}
	if err := r.model.modeller.driver.Delete(ctx, r.model.table, r.ID()); err != nil {
		return err //nolint:wrapcheck // pass through
	}
	delete(r.fields, PrimaryKey)
	return nil
}

// Relation builds the named relation for this record. Each call returns a
// new value.
func (r *Record) Relation(name string) (any, error) {
	fn, ok := r.model.relation(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, r.model.table, name)
	}
	return fn(r), nil
}

// Decode copies the record's columns into the struct pointed to by dst.
func (r *Record) Decode(dst any) error {
	return Decode(r.fields, dst)
}
