package repo

import (
	"context"
	"errors"
	"time"

	"github.com/mickamy/hasone/example/model"
	"github.com/mickamy/hasone/hasone"
	"github.com/mickamy/hasone/orm"
)

// ErrNoProfile is returned when a user has no profile.
var ErrNoProfile = errors.New("repo: user has no profile")

// UserRepository stores users and their profiles.
type UserRepository struct {
	users *orm.Model
}

// NewUserRepository registers the user-profile relation on m.
func NewUserRepository(m *orm.Modeller) (*UserRepository, error) {
	users := orm.CreateModelFor[model.User](m)
	profiles := orm.CreateModelFor[model.Profile](m)
	err := hasone.Register(users, hasone.Config{Model: profiles, As: "profile", ForeignKey: "user_id"})
	if err != nil {
		return nil, err
	}
	return &UserRepository{users: users}, nil
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	fields, err := orm.Encode(u)
	if err != nil {
		return err
	}
	rec, err := r.users.Create(ctx, fields)
	if err != nil {
		return err
	}
	return rec.Decode(u)
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (model.User, error) {
	var u model.User
	rec, err := r.record(ctx, id)
	if err != nil {
		return u, err
	}
	return u, rec.Decode(&u)
}

// Profile returns the user's profile or ErrNoProfile.
func (r *UserRepository) Profile(ctx context.Context, userID int) (model.Profile, error) {
	var p model.Profile
	rel, err := r.profile(ctx, userID)
	if err != nil {
		return p, err
	}
	rec, err := rel.Get(ctx)
	if err != nil {
		return p, err
	}
	if rec == nil {
		return p, ErrNoProfile
	}
	return p, rec.Decode(&p)
}

// SaveProfile creates the user's profile or overwrites the existing one.
func (r *UserRepository) SaveProfile(ctx context.Context, userID int, p *model.Profile) error {
	rel, err := r.profile(ctx, userID)
	if err != nil {
		return err
	}
	fields, err := orm.Encode(p)
	if err != nil {
		return err
	}
	rec, err := rel.CreateOrUpdate(ctx, fields)
	if err != nil {
		return err
	}
	return rec.Decode(p)
}

// DeleteProfile removes the user's profile, if any.
func (r *UserRepository) DeleteProfile(ctx context.Context, userID int) error {
	rel, err := r.profile(ctx, userID)
	if err != nil {
		return err
	}
	_, err = rel.Remove(ctx)
	return err
}

func (r *UserRepository) record(ctx context.Context, id int) (*orm.Record, error) {
	rec, err := r.users.FindOne(ctx, orm.Fields{orm.PrimaryKey: id})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, orm.ErrNotFound
	}
	return rec, nil
}

func (r *UserRepository) profile(ctx context.Context, userID int) (*hasone.MutableRelation, error) {
	rec, err := r.record(ctx, userID)
	if err != nil {
		return nil, err
	}
	return hasone.MutableOf(rec, "profile")
}
