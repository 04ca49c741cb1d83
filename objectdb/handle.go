package objectdb

import "context"

// Handle is the operation surface shared by Database and Tx. The
// repository layer talks to the database exclusively through it, so a
// transactional view only needs to rebind one field.
type Handle interface {
	Store() Store
	GetItem(ctx context.Context, className, key string, options *GetOptions) (*Record, error)
	GetItems(ctx context.Context, className string, keys []string, options *GetOptions) ([]*Record, error)
	PutItem(ctx context.Context, classNames []string, key string, value map[string]any, options *PutOptions) error
	DeleteItem(ctx context.Context, className, key string, options *DeleteOptions) (bool, error)
	FindItems(ctx context.Context, className string, options *FindOptions) ([]*Record, error)
	CountItems(ctx context.Context, className string, options *FindOptions) (int, error)
	ForEachItems(ctx context.Context, className string, options *FindOptions, fn func(record *Record) error) error
}

var _ Handle = (*Database)(nil)
var _ Handle = (*Tx)(nil)
