// Package hasone adds has-one relations to orm models.
//
// Install the plugin once, then register relations on parent models:
//
//	m := orm.New(driver).Use(hasone.Middleware)
//	users := m.CreateModel("users")
//	profiles := m.CreateModel("profiles")
//	err := hasone.Register(users, hasone.Config{Model: profiles, ForeignKey: "user_id"})
//
// Each access builds a fresh relation bound to the record:
//
//	rel, err := hasone.MutableOf(user, "profiles")
//	profile, err := rel.GetOrCreate(ctx, orm.Fields{"bio": "hi"})
package hasone

import (
	"errors"
	"fmt"

	"github.com/mickamy/hasone/internal/naming"
	"github.com/mickamy/hasone/orm"
)

// Capability is the name under which Middleware installs the registrar.
const Capability = "hasOne"

var (
	// ErrNotInstalled is returned by Register when Middleware was not used
	// on the parent's Modeller.
	ErrNotInstalled = errors.New("hasone: middleware not installed")

	// ErrModelRequired is returned by Register when Config.Model is nil.
	ErrModelRequired = errors.New("hasone: model is required")

	// ErrImmutable is returned by MutableOf for a read-only relation.
	ErrImmutable = errors.New("hasone: relation is immutable")

	// ErrNotHasOne is returned when a relation name belongs to another kind
	// of relation.
	ErrNotHasOne = errors.New("hasone: not a has-one relation")

	// ErrUnsavedOwner is returned when the owner record has no id yet.
	ErrUnsavedOwner = errors.New("hasone: owner has no id")
)

// Config describes one has-one relation. Zero values select the defaults.
type Config struct {
	// Model is the child model. Required.
	Model *orm.Model

	// As is the relation name. Default: the child model's table name.
	As string

	// ForeignKey is the child column holding the parent id.
	// Default: "<parent table>_id".
	ForeignKey string

	// Immutable selects the read-only variant.
	Immutable bool
}

// Registrar defines a has-one relation on parent.
type Registrar func(parent *orm.Model, cfg Config) error

// Middleware installs the has-one capability on a Modeller.
func Middleware(m *orm.Modeller) {
	m.Extend(Capability, Registrar(register))
}

var _ orm.Middleware = Middleware

// Register defines a has-one relation on parent through the capability
// installed by Middleware.
func Register(parent *orm.Model, cfg Config) error {
	c, ok := parent.Modeller().Capability(Capability)
	if !ok {
		return ErrNotInstalled
	}
	reg, ok := c.(Registrar)
	if !ok {
		return fmt.Errorf("%w: capability %q has type %T", ErrNotInstalled, Capability, c)
	}
	return reg(parent, cfg)
}

// Factory returns the descriptor constructor for the given mutability.
func Factory(immutable bool) func(foreignKey string, owner *orm.Record, model *orm.Model) Getter {
	if immutable {
		return func(fk string, owner *orm.Record, model *orm.Model) Getter { return New(fk, owner, model) }
	}
	return func(fk string, owner *orm.Record, model *orm.Model) Getter { return NewMutable(fk, owner, model) }
}

func register(parent *orm.Model, cfg Config) error {
	if cfg.Model == nil {
		return ErrModelRequired
	}
	as := cfg.As
	if as == "" {
		as = cfg.Model.TableName()
	}
	foreignKey := cfg.ForeignKey
	if foreignKey == "" {
		foreignKey = naming.ForeignKey(parent.TableName())
	}
	build := Factory(cfg.Immutable)
	model := cfg.Model

	return parent.DefineRelation(as, func(owner *orm.Record) any { //nolint:wrapcheck // pass through
		return build(foreignKey, owner, model)
	})
}

// Of returns the has-one relation name of owner.
func Of(owner *orm.Record, name string) (Getter, error) {
	v, err := owner.Relation(name)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}
	g, ok := v.(Getter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotHasOne, name)
	}
	return g, nil
}

// MutableOf returns the has-one relation name of owner with its write
// operations. It fails with ErrImmutable for a relation registered with
// Config.Immutable.
func MutableOf(owner *orm.Record, name string) (*MutableRelation, error) {
	g, err := Of(owner, name)
	if err != nil {
		return nil, err
	}
	mr, ok := g.(*MutableRelation)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImmutable, name)
	}
	return mr, nil
}
