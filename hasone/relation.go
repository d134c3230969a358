package hasone

import (
	"context"

	"go.uber.org/zap"

	"github.com/mickamy/hasone/orm"
)

// Getter is implemented by both relation variants.
type Getter interface {
	Get(ctx context.Context) (*orm.Record, error)
}

// Relation is the read-only view of a has-one relation: the single record of
// a child model whose foreign key equals the owner's primary key.
//
// A Relation is built on every access and borrows the owner record; the
// owner's id is read on every call, never cached.
type Relation struct {
	foreignKey string
	owner      *orm.Record
	model      *orm.Model
}

// New returns a read-only relation from owner to the child model.
// Operations fail with ErrModelRequired when model is nil and with
// ErrUnsavedOwner while owner is nil or has no id.
func New(foreignKey string, owner *orm.Record, model *orm.Model) *Relation {
	return &Relation{foreignKey: foreignKey, owner: owner, model: model}
}

// ForeignKey returns the child column matched against the owner's id.
func (r *Relation) ForeignKey() string { return r.foreignKey }

// Owner returns the parent record.
func (r *Relation) Owner() *orm.Record { return r.owner }

// Model returns the child model.
func (r *Relation) Model() *orm.Model { return r.model }

// Get returns the related record, or nil if there is none.
func (r *Relation) Get(ctx context.Context) (*orm.Record, error) {
	filter, err := r.filter()
	if err != nil {
		return nil, err
	}
	r.log("get")
	return r.model.FindOne(ctx, filter) //nolint:wrapcheck // pass through
}

// ownerID returns the owner's current id.
func (r *Relation) ownerID() (any, error) {
	if r.model == nil {
		return nil, ErrModelRequired
	}
	if r.owner == nil || r.owner.ID() == nil {
		return nil, ErrUnsavedOwner
	}
	return r.owner.ID(), nil
}

// filter returns {foreignKey: owner id}.
func (r *Relation) filter() (orm.Fields, error) {
	id, err := r.ownerID()
	if err != nil {
		return nil, err
	}
	return orm.Fields{r.foreignKey: id}, nil
}

// payload returns data overlaid with the filter, so the foreign key always
// points at the owner.
func (r *Relation) payload(data orm.Fields) (orm.Fields, error) {
	filter, err := r.filter()
	if err != nil {
		return nil, err
	}
	return data.Merge(filter), nil
}

// log writes a debug entry for op. Callers have checked ownerID.
func (r *Relation) log(op string) {
	m := r.model.Modeller()
	if m == nil {
		return
	}
	owner := ""
	if om := r.owner.Model(); om != nil {
		owner = om.TableName()
	}
	m.Logger().Debug("hasone: "+op,
		zap.String("owner", owner),
		zap.Any("owner_id", r.owner.ID()),
		zap.String("model", r.model.TableName()),
		zap.String("foreign_key", r.foreignKey),
	)
}

var _ Getter = (*Relation)(nil)

// MutableRelation adds write operations to Relation. Every payload it hands
// to the child model carries the owner's id in the foreign key, overriding
// any value supplied by the caller.
type MutableRelation struct {
	Relation
}

// NewMutable returns a read-write relation from owner to the child model.
func NewMutable(foreignKey string, owner *orm.Record, model *orm.Model) *MutableRelation {
	return &MutableRelation{Relation{foreignKey: foreignKey, owner: owner, model: model}}
}

// Set points item at the owner and saves it. item is modified in place.
func (r *MutableRelation) Set(ctx context.Context, item *orm.Record) error {
	id, err := r.ownerID()
	if err != nil {
		return err
	}
	r.log("set")
	item.Set(r.foreignKey, id)
	return item.Save(ctx) //nolint:wrapcheck // pass through
}

// Build returns an unsaved child record holding data and the foreign key.
func (r *MutableRelation) Build(data orm.Fields) (*orm.Record, error) {
	payload, err := r.payload(data)
	if err != nil {
		return nil, err
	}
	return r.model.Build(payload), nil
}

// GetOrCreate returns the related record, creating it from data when there
// is none. Repeated calls return the same row.
func (r *MutableRelation) GetOrCreate(ctx context.Context, data orm.Fields) (*orm.Record, error) {
	filter, err := r.filter()
	if err != nil {
		return nil, err
	}
	r.log("get or create")
	return r.model.FindOrCreate(ctx, filter, data.Merge(filter)) //nolint:wrapcheck // pass through
}

// Create inserts a new child record from data.
func (r *MutableRelation) Create(ctx context.Context, data orm.Fields) (*orm.Record, error) {
	payload, err := r.payload(data)
	if err != nil {
		return nil, err
	}
	r.log("create")
	return r.model.Create(ctx, payload) //nolint:wrapcheck // pass through
}

// CreateOrUpdate applies data to the related record, creating it when there
// is none.
func (r *MutableRelation) CreateOrUpdate(ctx context.Context, data orm.Fields) (*orm.Record, error) {
	filter, err := r.filter()
	if err != nil {
		return nil, err
	}
	r.log("create or update")
	return r.model.CreateOrUpdate(ctx, filter, data.Merge(filter)) //nolint:wrapcheck // pass through
}

// Update applies data to the related record in place. It returns nil when
// there is no related record.
func (r *MutableRelation) Update(ctx context.Context, data orm.Fields) (*orm.Record, error) {
	filter, err := r.filter()
	if err != nil {
		return nil, err
	}
	r.log("update")
	return r.model.UpdateOne(ctx, filter, data.Merge(filter)) //nolint:wrapcheck // pass through
}

// Remove deletes the related record and returns it with its last known
// fields. It returns nil when there is no related record.
func (r *MutableRelation) Remove(ctx context.Context) (*orm.Record, error) {
	filter, err := r.filter()
	if err != nil {
		return nil, err
	}
	r.log("remove")
	return r.model.RemoveOne(ctx, filter) //nolint:wrapcheck // pass through
}

var _ Getter = (*MutableRelation)(nil)
