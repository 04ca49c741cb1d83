package objectdb

import (
	"context"
)

// Tx is the transactional handle passed to Database.Transaction. Memory
// effects apply immediately; journal commands are buffered until commit and
// undone in reverse on rollback. A Tx is not safe for concurrent use.
type Tx struct {
	db      *Database
	pending []*Command
	undo    []func()
}

func (tx *Tx) push(name string, payload any, undo func()) error {
	command, err := newCommand(name, payload)
	if err != nil {
		undo()
		return err
	}
	tx.pending = append(tx.pending, command)
	tx.undo = append(tx.undo, undo)
	return nil
}

func (tx *Tx) commit() error {
	for _, command := range tx.pending {
		err := tx.db.storage.Append(command)
		if err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.pending = nil
}

func (tx *Tx) GetItem(ctx context.Context, className, key string, options *GetOptions) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.db.getItemLocked(className, key, options.orDefault())
}

func (tx *Tx) GetItems(ctx context.Context, className string, keys []string, options *GetOptions) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.db.getItemsLocked(className, keys, options.orDefault())
}

func (tx *Tx) PutItem(ctx context.Context, classNames []string, key string, value map[string]any, options *PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	undo, err := tx.db.putItemLocked(classNames, key, value, options.orDefault())
	if err != nil {
		return err
	}

	return tx.push("put", &putPayload{Classes: classNames, Key: key, Value: value}, undo)
}

func (tx *Tx) DeleteItem(ctx context.Context, className, key string, options *DeleteOptions) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	deleted, undo, err := tx.db.deleteItemLocked(className, key, options.orDefault())
	if err != nil || !deleted {
		return deleted, err
	}

	err = tx.push("delete", &deletePayload{Class: className, Key: key}, undo)
	if err != nil {
		return false, err
	}

	return true, nil
}

func (tx *Tx) FindItems(ctx context.Context, className string, options *FindOptions) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tx.db.findLocked(className, options.orDefault())
}

func (tx *Tx) CountItems(ctx context.Context, className string, options *FindOptions) (int, error) {
	records, err := tx.FindItems(ctx, className, options)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (tx *Tx) ForEachItems(ctx context.Context, className string, options *FindOptions, fn func(record *Record) error) error {
	options = options.orDefault()

	records, err := tx.FindItems(ctx, className, options)
	if err != nil {
		return err
	}

	return forEachRecords(ctx, records, options.BatchSize, fn)
}

// Store returns the transactional view of the low-level key/value store.
func (tx *Tx) Store() Store {
	return &txStore{tx: tx}
}

type txStore struct {
	tx *Tx
}

func (s *txStore) Get(key []string, options *GetOptions) (any, error) {
	return s.tx.db.kvGetLocked(key, options.orDefault())
}

func (s *txStore) Put(key []string, value any, options *PutOptions) error {
	undo, err := s.tx.db.kvPutLocked(key, value, options.orDefault())
	if err != nil {
		return err
	}
	return s.tx.push("set", &setPayload{Key: key, Value: value}, undo)
}

func (s *txStore) Delete(key []string, options *DeleteOptions) (bool, error) {
	deleted, undo, err := s.tx.db.kvDeleteLocked(key, options.orDefault())
	if err != nil || !deleted {
		return deleted, err
	}

	err = s.tx.push("unset", &unsetPayload{Key: key}, undo)
	if err != nil {
		return false, err
	}

	return true, nil
}
