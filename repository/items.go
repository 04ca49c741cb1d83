package repository

import (
	"context"
	"runtime"

	"github.com/fulldump/polydb/objectdb"
)

// respirationRate is how many items a bulk operation processes between
// cooperative yields, so long batches do not starve other goroutines.
const respirationRate = 250

var respire = func(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// GetItem fetches the item by its class and primary key. When the stored
// item belongs to a derived class the result is materialized through that
// class, not the one the call was addressed to; otherwise the given item is
// refreshed in place and returned.
func (r *Repository) GetItem(ctx context.Context, item Item, options *GetOptions) (Item, error) {
	err := r.initialize(ctx)
	if err != nil {
		return nil, err
	}

	className := item.Class().Name

	record, err := r.db.GetItem(ctx, className, item.PrimaryKeyValue(), options)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	if record.Classes[0] == className {
		item.ReplaceValue(record.Value)
		item.markSaved()
		return item, nil
	}

	collection, err := r.createCollectionFromItemClassName(record.Classes[0], nil)
	if err != nil {
		return nil, err
	}

	return collection.unserialize(record), nil
}

// PutItem writes the item under every class of its chain. A new item
// forces errorIfExists so that a duplicate primary key fails instead of
// silently overwriting.
func (r *Repository) PutItem(ctx context.Context, item Item, options *PutOptions) error {
	err := r.initialize(ctx)
	if err != nil {
		return err
	}

	putOptions := objectdb.PutOptions{CreateIfMissing: true}
	if options != nil {
		putOptions = *options
	}
	if item.IsNew() {
		putOptions.ErrorIfExists = true
		putOptions.CreateIfMissing = true
	}

	value, err := item.Serialize()
	if err != nil {
		return err
	}

	err = r.db.PutItem(ctx, item.ClassNames(), item.PrimaryKeyValue(), value, &putOptions)
	if err != nil {
		return err
	}

	item.markSaved()
	r.emit(DidPutItem, item)

	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, item Item, options *DeleteOptions) (bool, error) {
	err := r.initialize(ctx)
	if err != nil {
		return false, err
	}

	deleted, err := r.db.DeleteItem(ctx, item.Class().Name, item.PrimaryKeyValue(), options)
	if err != nil {
		return false, err
	}

	if deleted {
		r.emit(DidDeleteItem, item)
	}

	return deleted, nil
}

// GetItems bulk-fetches items sharing one collection class. Each result is
// materialized at its own most-derived class. With errorIfMissing disabled,
// absent keys yield nil entries.
func (r *Repository) GetItems(ctx context.Context, items []Item, options *GetOptions) ([]Item, error) {
	if len(items) == 0 {
		return []Item{}, nil
	}

	err := r.initialize(ctx)
	if err != nil {
		return nil, err
	}

	className := items[0].Class().Name
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.PrimaryKeyValue())
	}

	records, err := r.db.GetItems(ctx, className, keys, options)
	if err != nil {
		return nil, err
	}

	return r.unserializeRecords(ctx, records)
}

func (r *Repository) FindItems(ctx context.Context, collection *Collection, options *FindOptions) ([]Item, error) {
	err := r.initialize(ctx)
	if err != nil {
		return nil, err
	}

	records, err := r.db.FindItems(ctx, collection.class.Name, options)
	if err != nil {
		return nil, err
	}

	return r.unserializeRecords(ctx, records)
}

func (r *Repository) CountItems(ctx context.Context, collection *Collection, options *FindOptions) (int, error) {
	err := r.initialize(ctx)
	if err != nil {
		return 0, err
	}

	return r.db.CountItems(ctx, collection.class.Name, options)
}

// ForEachItems streams matching items through fn, one at a time: the next
// record is not requested until fn returns. Errors from fn propagate
// unchanged.
func (r *Repository) ForEachItems(ctx context.Context, collection *Collection, options *FindOptions, fn func(item Item) error) error {
	err := r.initialize(ctx)
	if err != nil {
		return err
	}

	cache := map[string]*Collection{}
	processed := 0

	return r.db.ForEachItems(ctx, collection.class.Name, options, func(record *objectdb.Record) error {
		item, err := r.unserializeWithCache(record, cache)
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}

		processed++
		if processed%respirationRate == 0 {
			return respire(ctx)
		}
		return nil
	})
}

// FindAndDeleteItems deletes every item matched by the scan and returns how
// many were actually deleted. Deletes are independent store operations:
// wrap the call in a Transaction when atomicity across items is needed.
func (r *Repository) FindAndDeleteItems(ctx context.Context, collection *Collection, options *FindOptions) (int, error) {
	count := 0

	err := r.ForEachItems(ctx, collection, options, func(item Item) error {
		deleted, err := r.DeleteItem(ctx, item, &DeleteOptions{ErrorIfMissing: false})
		if err != nil {
			return err
		}
		if deleted {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	return count, nil
}

func (r *Repository) unserializeRecords(ctx context.Context, records []*objectdb.Record) ([]Item, error) {

	cache := map[string]*Collection{}
	items := make([]Item, 0, len(records))

	for i, record := range records {
		if record == nil {
			items = append(items, nil)
		} else {
			item, err := r.unserializeWithCache(record, cache)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}

		if (i+1)%respirationRate == 0 {
			err := respire(ctx)
			if err != nil {
				return nil, err
			}
		}
	}

	return items, nil
}

func (r *Repository) unserializeWithCache(record *objectdb.Record, cache map[string]*Collection) (Item, error) {
	collection, err := r.createCollectionFromItemClassName(record.Classes[0], cache)
	if err != nil {
		return nil, err
	}
	return collection.unserialize(record), nil
}
