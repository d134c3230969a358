package orm

import "errors"

var (
	// ErrNotFound is returned when a row expected to exist is missing.
	ErrNotFound = errors.New("orm: not found")

	// ErrDuplicateKey is returned by Driver.Insert when a row with the same
	// primary key or unique value exists.
	ErrDuplicateKey = errors.New("orm: duplicate key")

	// ErrNoPrimaryKey is returned when an operation needs a persisted record
	// but the record has no primary key yet.
	ErrNoPrimaryKey = errors.New("orm: record has no primary key")

	// ErrUnknownRelation is returned when a record is asked for a relation
	// its model never defined.
	ErrUnknownRelation = errors.New("orm: unknown relation")

	// ErrRelationExists is returned when a relation name is defined twice on
	// the same model.
	ErrRelationExists = errors.New("orm: relation already defined")
)
