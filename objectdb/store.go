package objectdb

import (
	"fmt"
	"strings"
)

// Store is the low-level key/value store under the object database. Keys
// are composite; the repository metadata record lives here.
type Store interface {
	Get(key []string, options *GetOptions) (any, error)
	Put(key []string, value any, options *PutOptions) error
	Delete(key []string, options *DeleteOptions) (bool, error)
}

func encodeKey(key []string) string {
	return strings.Join(key, "\x1f")
}

func (db *Database) kvGetLocked(key []string, options *GetOptions) (any, error) {
	value, exists := db.kv[encodeKey(key)]
	if !exists {
		if options.ErrorIfMissing {
			return nil, fmt.Errorf("%w: key '%s'", ErrorNotFound, strings.Join(key, "/"))
		}
		return nil, nil
	}
	return value, nil
}

func (db *Database) kvPutLocked(key []string, value any, options *PutOptions) (undo func(), err error) {
	encoded := encodeKey(key)
	previous, exists := db.kv[encoded]

	if exists && options.ErrorIfExists {
		return nil, fmt.Errorf("%w: key '%s'", ErrorAlreadyExists, strings.Join(key, "/"))
	}
	// ErrorIfExists asks for a key that is not there yet, so it implies
	// creation.
	if !exists && !options.CreateIfMissing && !options.ErrorIfExists {
		return nil, fmt.Errorf("%w: key '%s'", ErrorNotFound, strings.Join(key, "/"))
	}

	db.kv[encoded] = value

	return func() {
		if exists {
			db.kv[encoded] = previous
		} else {
			delete(db.kv, encoded)
		}
	}, nil
}

func (db *Database) kvDeleteLocked(key []string, options *DeleteOptions) (deleted bool, undo func(), err error) {
	encoded := encodeKey(key)
	previous, exists := db.kv[encoded]

	if !exists {
		if options.ErrorIfMissing {
			return false, nil, fmt.Errorf("%w: key '%s'", ErrorNotFound, strings.Join(key, "/"))
		}
		return false, nil, nil
	}

	delete(db.kv, encoded)

	return true, func() { db.kv[encoded] = previous }, nil
}

// dbStore autocommits each operation.
type dbStore struct {
	db *Database
}

// Store returns the low-level key/value store of the database.
func (db *Database) Store() Store {
	return &dbStore{db: db}
}

func (s *dbStore) Get(key []string, options *GetOptions) (any, error) {
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()

	if err := s.db.ready(); err != nil {
		return nil, err
	}

	return s.db.kvGetLocked(key, options.orDefault())
}

func (s *dbStore) Put(key []string, value any, options *PutOptions) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	if err := s.db.ready(); err != nil {
		return err
	}

	undo, err := s.db.kvPutLocked(key, value, options.orDefault())
	if err != nil {
		return err
	}

	err = s.db.appendCommand("set", &setPayload{Key: key, Value: value})
	if err != nil {
		undo()
		return err
	}

	return nil
}

func (s *dbStore) Delete(key []string, options *DeleteOptions) (bool, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	if err := s.db.ready(); err != nil {
		return false, err
	}

	deleted, undo, err := s.db.kvDeleteLocked(key, options.orDefault())
	if err != nil || !deleted {
		return deleted, err
	}

	err = s.db.appendCommand("unset", &unsetPayload{Key: key})
	if err != nil {
		undo()
		return false, err
	}

	return true, nil
}
