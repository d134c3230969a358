package orm

import "context"

// Driver is a persistence backend. Models call into it for every read and
// write; it owns query execution, id generation and storage.
type Driver interface {
	// Find returns the rows of table whose columns equal every entry of
	// filter, in a stable order. A limit of zero or less means no limit.
	Find(ctx context.Context, table string, filter Fields, limit int) ([]Fields, error)

	// Insert stores fields as a new row and returns its primary key. If
	// fields already carries a primary key, the driver uses it; a key that
	// is taken fails with ErrDuplicateKey.
	Insert(ctx context.Context, table string, fields Fields) (any, error)

	// Update sets the non-key columns of fields on the row identified by
	// id. Other columns keep their values. A missing row fails with
	// ErrNotFound.
	Update(ctx context.Context, table string, id any, fields Fields) error

	// Delete removes the row identified by id. A missing row fails with
	// ErrNotFound.
	Delete(ctx context.Context, table string, id any) error
}
