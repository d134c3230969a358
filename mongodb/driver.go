// Package mongodb implements orm.Driver on MongoDB, one collection per
// table. The id column is stored as the document's _id.
package mongodb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mickamy/hasone/orm"
)

const idField = "_id"

// ErrDuplicateKey is returned by Insert when a document with the same id or
// unique index value exists. It is orm.ErrDuplicateKey.
var ErrDuplicateKey = orm.ErrDuplicateKey

// Driver stores rows as documents of a database.
type Driver struct {
	db    *mongo.Database
	newID func() string
}

// Option configures a Driver.
type Option func(d *Driver)

// WithIDGenerator replaces the UUID generator used for new documents.
func WithIDGenerator(fn func() string) Option {
	return func(d *Driver) { d.newID = fn }
}

// New returns a Driver on db.
func New(db *mongo.Database, opts ...Option) *Driver {
	d := &Driver{db: db, newID: uuid.NewString}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect connects to uri and returns a Driver on the named database along
// with the client, which the caller must disconnect.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Driver, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("mongodb: ping: %w", err)
	}
	return New(client.Database(database), opts...), client, nil
}

var _ orm.Driver = (*Driver)(nil)

// Find returns matching documents ordered by _id.
func (d *Driver) Find(ctx context.Context, table string, filter orm.Fields, limit int) ([]orm.Fields, error) {
	opts := options.Find().SetSort(bson.D{{Key: idField, Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := d.db.Collection(table).Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: find %s: %w", table, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongodb: find %s: %w", table, err)
	}
	rows := make([]orm.Fields, len(docs))
	for i, doc := range docs {
		rows[i] = fromDocument(doc)
	}
	return rows, nil
}

// Insert inserts a document. A missing id is filled with a UUID string.
func (d *Driver) Insert(ctx context.Context, table string, fields orm.Fields) (any, error) {
	row := fields.Clone()
	if row[orm.PrimaryKey] == nil {
		row[orm.PrimaryKey] = d.newID()
	}
	id := row[orm.PrimaryKey]

	if _, err := d.db.Collection(table).InsertOne(ctx, toDocument(row)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s %v", ErrDuplicateKey, table, id)
		}
		return nil, fmt.Errorf("mongodb: insert %s: %w", table, err)
	}
	return id, nil
}

// Update sets the given columns on the document identified by id.
func (d *Driver) Update(ctx context.Context, table string, id any, fields orm.Fields) error {
	if id == nil {
		return orm.ErrNoPrimaryKey
	}
	coll := d.db.Collection(table)
	key := bson.D{{Key: idField, Value: id}}

	set := toDocument(fields.Without(orm.PrimaryKey))
	if len(set) == 0 {
		n, err := coll.CountDocuments(ctx, key, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("mongodb: update %s: %w", table, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s %v", orm.ErrNotFound, table, id)
		}
		return nil
	}

	res, err := coll.UpdateOne(ctx, key, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("mongodb: update %s: %w", table, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s %v", orm.ErrNotFound, table, id)
	}
	return nil
}

func (d *Driver) Delete(ctx context.Context, table string, id any) error {
	if id == nil {
		return orm.ErrNoPrimaryKey
	}
	res, err := d.db.Collection(table).DeleteOne(ctx, bson.D{{Key: idField, Value: id}})
	if err != nil {
		return fmt.Errorf("mongodb: delete %s: %w", table, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s %v", orm.ErrNotFound, table, id)
	}
	return nil
}

// filterDocument renders filter as an equality query in column order.
// A nil value matches a missing or null field.
func filterDocument(filter orm.Fields) bson.D {
	return toDocument(filter)
}

func toDocument(fields orm.Fields) bson.D {
	doc := make(bson.D, 0, len(fields))
	for _, col := range fields.Columns() {
		key := col
		if key == orm.PrimaryKey {
			key = idField
		}
		doc = append(doc, bson.E{Key: key, Value: fields[col]})
	}
	return doc
}

func fromDocument(doc bson.M) orm.Fields {
	row := make(orm.Fields, len(doc))
	for k, v := range doc {
		if k == idField {
			k = orm.PrimaryKey
		}
		row[k] = native(v)
	}
	return row
}

// native converts decoded BSON values into plain Go values: 32-bit integers
// widen to int64, dates become time.Time, arrays and embedded documents
// become []any and map[string]any.
func native(v any) any {
	switch t := v.(type) {
	case int32:
		return int64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = native(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = native(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = native(e.Value)
		}
		return out
	default:
		return v
	}
}
