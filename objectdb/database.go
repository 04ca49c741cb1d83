package objectdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/fulldump/polydb/utils"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

// journalVersion is the storage format of the command journal. Journals
// written before the header command was introduced are migrated on open.
const journalVersion = 1

type Config struct {
	Url string `usage:"connection url: file://<dir> or sqlite://<path>"`
}

// Database is an object database: per-class keyed rows with ordered
// secondary indexes, plus a low-level key/value store. All state lives in
// memory and is rebuilt from the command journal on open.
type Database struct {
	config  *Config
	mutex   sync.RWMutex
	lock    sync.Mutex // database-wide lock, see LockDatabase
	storage Storage
	classes map[string]*classStore
	kv      map[string]any
	emitter *utils.Emitter
	status  string
}

type classStore struct {
	name    string
	rows    map[string]*row
	keys    *btree.BTreeG[string]
	indexes map[string]*IndexBTree
}

// row is shared by every classStore of its class chain. Classes[0] is the
// most-derived class owning the row.
type row struct {
	Classes []string
	Key     string
	Values  map[string]any
}

func NewDatabase(config *Config) *Database {
	return &Database{
		config:  config,
		classes: map[string]*classStore{},
		kv:      map[string]any{},
		emitter: utils.NewEmitter(),
		status:  StatusOpening,
	}
}

func (db *Database) GetStatus() string {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return db.status
}

func (db *Database) On(event utils.Event, handler func(payload any)) {
	db.emitter.On(event, handler)
}

// InitializeObjectDatabase opens the storage and replays the journal into
// memory. It is idempotent.
func (db *Database) InitializeObjectDatabase() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.status == StatusOperating {
		return nil
	}

	storage, err := openStorage(db.config.Url)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	db.storage = storage

	header := (*headerPayload)(nil)
	commands := 0
	err = storage.Load(func(command *Command) error {
		commands++
		if command.Name == "header" {
			header = &headerPayload{}
			json.Unmarshal(command.Payload, header)
			if header.Version > journalVersion {
				return fmt.Errorf("journal version %d is not supported", header.Version)
			}
			return nil
		}
		return db.replayCommand(command)
	})
	if err != nil {
		storage.Close()
		db.storage = nil
		db.status = StatusClosing
		return fmt.Errorf("load journal: %w", err)
	}

	if header == nil {
		if commands > 0 {
			// legacy headerless journal
			db.emitter.Emit(MigrationDidStart, db.config.Url)
			err = db.appendCommand("header", &headerPayload{Version: journalVersion})
			db.emitter.Emit(MigrationDidStop, db.config.Url)
		} else {
			err = db.appendCommand("header", &headerPayload{Version: journalVersion})
		}
		if err != nil {
			return err
		}
	} else if header.Version < journalVersion {
		db.emitter.Emit(UpgradeDidStart, header.Version)
		// stepwise format upgrades go here
		err = db.appendCommand("header", &headerPayload{Version: journalVersion})
		db.emitter.Emit(UpgradeDidStop, journalVersion)
		if err != nil {
			return err
		}
	}

	db.status = StatusOperating

	return nil
}

// DestroyObjectDatabase drops the journal and clears all in-memory state.
// The database can be initialized again afterwards.
func (db *Database) DestroyObjectDatabase() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.status != StatusOperating {
		return fmt.Errorf("database is %s", db.status)
	}

	db.status = StatusClosing
	err := db.storage.Drop()
	if err != nil {
		return fmt.Errorf("drop storage: %w", err)
	}

	db.storage = nil
	db.classes = map[string]*classStore{}
	db.kv = map[string]any{}
	db.status = StatusOpening

	return nil
}

func (db *Database) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.storage == nil {
		return nil
	}

	db.status = StatusClosing
	err := db.storage.Close()
	db.storage = nil
	return err
}

// LockDatabase takes the database-wide lock. It serializes upgrades, not
// regular operations.
func (db *Database) LockDatabase() {
	db.lock.Lock()
}

func (db *Database) UnlockDatabase() {
	db.lock.Unlock()
}

// Transaction runs fn against a transactional handle. On error every effect
// of fn is rolled back and nothing reaches the journal.
func (db *Database) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.status != StatusOperating {
		return fmt.Errorf("database is %s", db.status)
	}

	tx := &Tx{db: db}

	err := fn(tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tx.rollback()
		return err
	}

	return tx.commit()
}

func (db *Database) replayCommand(command *Command) error {

	switch command.Name {
	case "put":
		params := &putPayload{}
		err := json.Unmarshal(command.Payload, params)
		if err != nil {
			return fmt.Errorf("decode put: %w", err)
		}
		_, err = db.putItemLocked(params.Classes, params.Key, params.Value, &PutOptions{CreateIfMissing: true})
		if err != nil {
			fmt.Printf("WARNING: replay put '%s': %s\n", params.Key, err.Error())
		}
	case "delete":
		params := &deletePayload{}
		err := json.Unmarshal(command.Payload, params)
		if err != nil {
			return fmt.Errorf("decode delete: %w", err)
		}
		_, _, err = db.deleteItemLocked(params.Class, params.Key, &DeleteOptions{ErrorIfMissing: false})
		if err != nil {
			fmt.Printf("WARNING: replay delete '%s': %s\n", params.Key, err.Error())
		}
	case "index":
		params := &indexPayload{}
		err := json.Unmarshal(command.Payload, params)
		if err != nil {
			return fmt.Errorf("decode index: %w", err)
		}
		_, err = db.ensureIndexLocked(params.Class, params.Options)
		if err != nil {
			fmt.Printf("WARNING: replay index '%s': %s\n", params.Options.name(), err.Error())
		}
	case "set":
		params := &setPayload{}
		err := json.Unmarshal(command.Payload, params)
		if err != nil {
			return fmt.Errorf("decode set: %w", err)
		}
		db.kv[encodeKey(params.Key)] = params.Value
	case "unset":
		params := &unsetPayload{}
		err := json.Unmarshal(command.Payload, params)
		if err != nil {
			return fmt.Errorf("decode unset: %w", err)
		}
		delete(db.kv, encodeKey(params.Key))
	default:
		fmt.Printf("WARNING: unknown command '%s'\n", command.Name)
	}

	return nil
}

func (db *Database) appendCommand(name string, payload any) error {
	command, err := newCommand(name, payload)
	if err != nil {
		return err
	}
	return db.storage.Append(command)
}

func newClassStore(name string) *classStore {
	return &classStore{
		name:    name,
		rows:    map[string]*row{},
		keys:    btree.NewG(32, func(a, b string) bool { return a < b }),
		indexes: map[string]*IndexBTree{},
	}
}

func (db *Database) ensureClass(name string) *classStore {
	cs, exists := db.classes[name]
	if !exists {
		cs = newClassStore(name)
		db.classes[name] = cs
	}
	return cs
}

// ClassNames lists, sorted, every class a put or an index declaration has
// touched. A class stays listed after all its rows are deleted.
func (db *Database) ClassNames() []string {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return utils.GetKeys(db.classes)
}

func (db *Database) ready() error {
	if db.status != StatusOperating {
		return fmt.Errorf("database is %s", db.status)
	}
	return nil
}
