package objectdb

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// Record is what the database hands back for an item: the class chain
// (most-derived first) and the value bag. Both are copies.
type Record struct {
	Classes []string       `json:"classes"`
	Key     string         `json:"key"`
	Value   map[string]any `json:"value"`
}

func (r *row) record() *Record {
	return &Record{
		Classes: slices.Clone(r.Classes),
		Key:     r.Key,
		Value:   maps.Clone(r.Values),
	}
}

func (db *Database) GetItem(ctx context.Context, className, key string, options *GetOptions) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if err := db.ready(); err != nil {
		return nil, err
	}

	return db.getItemLocked(className, key, options.orDefault())
}

func (db *Database) GetItems(ctx context.Context, className string, keys []string, options *GetOptions) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if err := db.ready(); err != nil {
		return nil, err
	}

	return db.getItemsLocked(className, keys, options.orDefault())
}

func (db *Database) PutItem(ctx context.Context, classNames []string, key string, value map[string]any, options *PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.ready(); err != nil {
		return err
	}

	undo, err := db.putItemLocked(classNames, key, value, options.orDefault())
	if err != nil {
		return err
	}

	err = db.appendCommand("put", &putPayload{Classes: classNames, Key: key, Value: value})
	if err != nil {
		undo()
		return err
	}

	return nil
}

func (db *Database) DeleteItem(ctx context.Context, className, key string, options *DeleteOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.ready(); err != nil {
		return false, err
	}

	deleted, undo, err := db.deleteItemLocked(className, key, options.orDefault())
	if err != nil || !deleted {
		return deleted, err
	}

	err = db.appendCommand("delete", &deletePayload{Class: className, Key: key})
	if err != nil {
		undo()
		return false, err
	}

	return true, nil
}

// EnsureIndex declares an ordered index on a class. Existing rows are
// indexed immediately; the declaration is idempotent.
func (db *Database) EnsureIndex(ctx context.Context, className string, options *IndexOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.ready(); err != nil {
		return err
	}

	created, err := db.ensureIndexLocked(className, options)
	if err != nil || !created {
		return err
	}

	return db.appendCommand("index", &indexPayload{Class: className, Options: options})
}

func (db *Database) getItemLocked(className, key string, options *GetOptions) (*Record, error) {

	var r *row
	if cs, exists := db.classes[className]; exists {
		r = cs.rows[key]
	}

	if r == nil {
		if options.ErrorIfMissing {
			return nil, fmt.Errorf("%w: class '%s' has no item '%s'", ErrorNotFound, className, key)
		}
		return nil, nil
	}

	return r.record(), nil
}

func (db *Database) getItemsLocked(className string, keys []string, options *GetOptions) ([]*Record, error) {

	records := make([]*Record, 0, len(keys))
	for _, key := range keys {
		record, err := db.getItemLocked(className, key, options)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

func (db *Database) putItemLocked(classNames []string, key string, value map[string]any, options *PutOptions) (undo func(), err error) {

	if len(classNames) == 0 {
		return nil, fmt.Errorf("class chain is empty")
	}

	primary := db.ensureClass(classNames[0])
	existing := primary.rows[key]

	if existing != nil && options.ErrorIfExists {
		return nil, fmt.Errorf("%w: class '%s' already has item '%s'", ErrorAlreadyExists, classNames[0], key)
	}
	if existing == nil && !options.CreateIfMissing {
		return nil, fmt.Errorf("%w: class '%s' has no item '%s'", ErrorNotFound, classNames[0], key)
	}

	newRow := &row{
		Classes: slices.Clone(classNames),
		Key:     key,
		Values:  maps.Clone(value),
	}

	if existing != nil {
		db.detachRow(existing)
	}

	err = db.attachRow(newRow)
	if err != nil {
		if existing != nil {
			db.attachRow(existing)
		}
		return nil, err
	}

	undo = func() {
		db.detachRow(newRow)
		if existing != nil {
			db.attachRow(existing)
		}
	}

	return undo, nil
}

func (db *Database) deleteItemLocked(className, key string, options *DeleteOptions) (deleted bool, undo func(), err error) {

	var r *row
	if cs, exists := db.classes[className]; exists {
		r = cs.rows[key]
	}

	if r == nil {
		if options.ErrorIfMissing {
			return false, nil, fmt.Errorf("%w: class '%s' has no item '%s'", ErrorNotFound, className, key)
		}
		return false, nil, nil
	}

	db.detachRow(r)

	return true, func() { db.attachRow(r) }, nil
}

func (db *Database) ensureIndexLocked(className string, options *IndexOptions) (created bool, err error) {

	cs := db.ensureClass(className)

	if _, exists := cs.indexes[options.name()]; exists {
		return false, nil
	}

	index := NewIndexBTree(options)
	for _, r := range cs.rows {
		err := index.AddRow(r)
		if err != nil {
			return false, fmt.Errorf("index row: %w, key: %s", err, r.Key)
		}
	}
	cs.indexes[options.name()] = index

	return true, nil
}

// attachRow registers a row under every class of its chain. Conflicts are
// checked across all classes before any structure is touched.
func (db *Database) attachRow(r *row) error {

	for _, name := range r.Classes {
		cs := db.ensureClass(name)
		if other, exists := cs.rows[r.Key]; exists && other != r {
			return fmt.Errorf("%w: class '%s' already has item '%s'", ErrorAlreadyExists, name, r.Key)
		}
		for _, index := range cs.indexes {
			if err := index.Check(r); err != nil {
				return err
			}
		}
	}

	for _, name := range r.Classes {
		cs := db.ensureClass(name)
		cs.rows[r.Key] = r
		cs.keys.ReplaceOrInsert(r.Key)
		for _, index := range cs.indexes {
			err := index.AddRow(r)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (db *Database) detachRow(r *row) {
	for _, name := range r.Classes {
		cs, exists := db.classes[name]
		if !exists {
			continue
		}
		delete(cs.rows, r.Key)
		cs.keys.Delete(r.Key)
		for _, index := range cs.indexes {
			index.RemoveRow(r)
		}
	}
}
