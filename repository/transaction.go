package repository

import (
	"context"

	"github.com/fulldump/polydb/objectdb"
)

// Transaction runs fn against a transactional view of the repository. The
// view is a shallow copy whose database handle is rebound to the
// transaction; everything else is shared with the root. If fn returns an
// error every store effect is rolled back atomically. Nested calls are
// flat: a Transaction on a view invokes fn directly on it, reusing the
// outermost transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(view *Repository) error) error {

	if r.IsInsideTransaction() {
		return fn(r)
	}

	err := r.initialize(ctx)
	if err != nil {
		return err
	}

	return r.root.database.Transaction(ctx, func(tx *objectdb.Tx) error {
		view := *r
		view.db = tx
		return fn(&view)
	})
}

// IsInsideTransaction reports whether this handle is a transactional view.
// The test is identity against the root repository: views are the only
// handles that are not their own root.
func (r *Repository) IsInsideTransaction() bool {
	return r != r.root
}
