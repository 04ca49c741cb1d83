package repository

import (
	"context"
	"log"
	"sync"

	"github.com/fulldump/polydb/objectdb"
	"github.com/fulldump/polydb/utils"
)

// Repository is a typed, polymorphic object store layered over an object
// database. Collections are declared as classes; an item stored in a
// derived collection is discoverable through any of its base collections.
//
// A Repository value handed to a Transaction callback is a view: it shares
// every field with its root except the database handle, which is rebound to
// the transactional one. Views are only minted by Transaction; even a
// struct copy of a view still points at the same root, so the transactional
// status test stays reliable.
type Repository struct {
	Name        string
	Url         string
	Collections []*Class

	root     *Repository
	database *objectdb.Database
	db       objectdb.Handle

	classes map[string]*Class
	ordered []*Class
	emitter *utils.Emitter

	initMutex          *sync.Mutex
	repositoryId       string
	hasBeenInitialized bool
	isInitializing     bool
}

func NewRepository(name, url string, collections ...*Class) *Repository {

	r := &Repository{
		Name:        name,
		Url:         url,
		Collections: collections,
		classes:     map[string]*Class{},
		emitter:     utils.NewEmitter(),
		initMutex:   &sync.Mutex{},
	}
	r.root = r

	for _, class := range collections {
		r.registerClass(class)
	}

	return r
}

func (r *Repository) registerClass(class *Class) {
	if class == nil {
		return
	}
	if _, exists := r.classes[class.Name]; exists {
		return
	}
	r.classes[class.Name] = class
	r.ordered = append(r.ordered, class)

	for _, base := range class.Include {
		r.registerClass(base)
	}
}

func (r *Repository) On(event utils.Event, handler func(payload any)) {
	r.root.emitter.On(event, handler)
}

func (r *Repository) emit(event utils.Event, payload any) {
	r.root.emitter.Emit(event, payload)
}

// RootCollectionClass returns the class included by every registered
// collection class, or nil when the registered classes share no root.
func (r *Repository) RootCollectionClass() *Class {
	root := r.root

	for _, candidate := range root.ordered {
		isRoot := true
		for _, class := range root.ordered {
			if class != candidate && !class.includes(candidate) {
				isRoot = false
				break
			}
		}
		if isRoot {
			return candidate
		}
	}

	return nil
}

// objectDatabase lazily builds the engine handle. There is exactly one per
// repository; engine events are forwarded to the repository emitter once,
// here.
func (r *Repository) objectDatabase() *objectdb.Database {
	root := r.root

	if root.database == nil {
		root.database = objectdb.NewDatabase(&objectdb.Config{Url: root.Url})
		root.db = root.database

		for _, event := range []utils.Event{
			objectdb.UpgradeDidStart,
			objectdb.UpgradeDidStop,
			objectdb.MigrationDidStart,
			objectdb.MigrationDidStop,
		} {
			event := event
			root.database.On(event, func(payload any) {
				root.emitter.Emit(event, payload)
			})
		}
	}

	return root.database
}

// initialize is idempotent and safe against re-entrant calls. Operations
// running inside a transactional view were initialized before the view was
// created, so reaching the transactional check here means a cold repository
// is being initialized from within a transaction, which cannot work: the
// creation of the repository record would not be isolated from fn.
func (r *Repository) initialize(ctx context.Context) error {
	root := r.root

	if root.hasBeenInitialized {
		return nil
	}
	if root.isInitializing {
		return nil
	}
	if r.IsInsideTransaction() {
		return ErrorInitInsideTransaction
	}

	root.initMutex.Lock()
	defer root.initMutex.Unlock()

	if root.hasBeenInitialized {
		return nil
	}

	root.isInitializing = true
	defer func() { root.isInitializing = false }()

	db := root.objectDatabase()
	err := db.InitializeObjectDatabase()
	if err != nil {
		return err
	}

	created, err := root.createRepositoryIfDoesNotExist(ctx)
	if err != nil {
		return err
	}

	if !created {
		db.LockDatabase()
		err = root.upgradeRepository(ctx)
		db.UnlockDatabase()
		if err != nil {
			return err
		}
	}

	err = root.ensureIndexes(ctx)
	if err != nil {
		return err
	}

	root.hasBeenInitialized = true
	root.emitter.Emit(DidInitialize, root.Name)

	return nil
}

func (r *Repository) createRepositoryIfDoesNotExist(ctx context.Context) (created bool, err error) {
	root := r.root

	err = root.database.Transaction(ctx, func(tx *objectdb.Tx) error {

		record, err := loadRepositoryRecord(tx.Store(), root.Name, false)
		if err != nil {
			return err
		}
		if record != nil {
			return nil
		}

		record = &Record{
			Name:    root.Name,
			Version: Version,
			Id:      utils.RandomId(16),
		}
		err = saveRepositoryRecord(tx.Store(), record, true)
		if err != nil {
			return err
		}

		root.emitter.Emit(DidCreate, record)
		log.Printf("repository '%s' created with id %s", root.Name, record.Id)
		created = true

		return nil
	})

	return created, err
}

func (r *Repository) upgradeRepository(ctx context.Context) error {
	root := r.root

	return root.database.Transaction(ctx, func(tx *objectdb.Tx) error {

		record, err := loadRepositoryRecord(tx.Store(), root.Name, true)
		if err != nil {
			return err
		}

		if record.Version == Version {
			return nil
		}
		if record.Version > Version {
			return ErrorCannotDowngrade
		}

		root.emitter.Emit(objectdb.UpgradeDidStart, record.Version)

		if record.Version < 2 {
			// reserved for the version 2 upgrade
		}

		record.Version = Version
		err = saveRepositoryRecord(tx.Store(), record, false)
		if err != nil {
			return err
		}

		log.Printf("repository '%s' upgraded to version %d", root.Name, Version)
		root.emitter.Emit(objectdb.UpgradeDidStop, record.Version)

		return nil
	})
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	root := r.root

	for _, class := range root.ordered {
		for _, options := range class.Indexes {
			err := root.database.EnsureIndex(ctx, class.Name, options)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// GetRepositoryId returns the opaque identifier generated when the
// repository record was first created. It is memoized for the lifetime of
// the repository.
func (r *Repository) GetRepositoryId(ctx context.Context) (string, error) {
	err := r.initialize(ctx)
	if err != nil {
		return "", err
	}

	root := r.root
	if root.repositoryId != "" {
		return root.repositoryId, nil
	}

	record, err := loadRepositoryRecord(r.db.Store(), root.Name, true)
	if err != nil {
		return "", err
	}

	root.repositoryId = record.Id
	return root.repositoryId, nil
}

// DestroyRepository drops the object database. The repository must be
// initialized and quiesced: concurrent operations during destroy are
// undefined.
func (r *Repository) DestroyRepository(ctx context.Context) error {
	root := r.root

	if !root.hasBeenInitialized {
		return ErrorNotInitialized
	}

	root.emitter.Emit(WillDestroy, root.Name)

	err := root.database.DestroyObjectDatabase()
	if err != nil {
		return err
	}

	root.hasBeenInitialized = false
	root.repositoryId = ""
	log.Printf("repository '%s' destroyed", root.Name)

	root.emitter.Emit(DidDestroy, root.Name)

	return nil
}
