package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/fulldump/polydb/objectdb"
	"github.com/fulldump/polydb/utils"
)

// Collection is a class bound to a repository handle. Collections created
// inside a transaction operate on the transactional handle.
type Collection struct {
	repository *Repository
	class      *Class
}

// CreateCollection resolves a registered class name into a collection.
func (r *Repository) CreateCollection(name string) (*Collection, error) {
	return r.createCollectionFromItemClassName(name, nil)
}

// createCollectionFromItemClassName resolves a class name to a fresh
// collection. The optional cache memoizes within a single bulk call: one
// collection per class name per call.
func (r *Repository) createCollectionFromItemClassName(name string, cache map[string]*Collection) (*Collection, error) {

	if cache != nil {
		if collection, exists := cache[name]; exists {
			return collection, nil
		}
	}

	class, exists := r.root.classes[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s' is not registered, must be [%s]",
			ErrorUnknownClass, name, strings.Join(utils.GetKeys(r.root.classes), "|"))
	}

	collection := &Collection{
		repository: r,
		class:      class,
	}

	if cache != nil {
		cache[name] = collection
	}

	return collection, nil
}

func (c *Collection) Class() *Class {
	return c.class
}

func (c *Collection) Name() string {
	return c.class.Name
}

// NewItem builds a new, unsaved document of the collection's class.
func (c *Collection) NewItem(values map[string]any) *Document {
	return NewDocument(c.class, values)
}

// probe builds a throwaway item carrying only the primary key, for
// operations addressed by key.
func (c *Collection) probe(key string) *Document {
	return NewDocument(c.class, map[string]any{c.class.PrimaryKey: key})
}

func (c *Collection) unserialize(record *objectdb.Record) Item {
	return newStoredDocument(c.class, record.Value)
}

func (c *Collection) GetItem(ctx context.Context, key string, options *GetOptions) (Item, error) {
	return c.repository.GetItem(ctx, c.probe(key), options)
}

func (c *Collection) PutItem(ctx context.Context, item Item, options *PutOptions) error {
	return c.repository.PutItem(ctx, item, options)
}

func (c *Collection) DeleteItem(ctx context.Context, item Item, options *DeleteOptions) (bool, error) {
	return c.repository.DeleteItem(ctx, item, options)
}

// DeleteItemByKey deletes by primary key without materializing the item.
func (c *Collection) DeleteItemByKey(ctx context.Context, key string, options *DeleteOptions) (bool, error) {
	return c.repository.DeleteItem(ctx, c.probe(key), options)
}

func (c *Collection) GetItems(ctx context.Context, keys []string, options *GetOptions) ([]Item, error) {
	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		items = append(items, c.probe(key))
	}
	return c.repository.GetItems(ctx, items, options)
}

func (c *Collection) FindItems(ctx context.Context, options *FindOptions) ([]Item, error) {
	return c.repository.FindItems(ctx, c, options)
}

func (c *Collection) CountItems(ctx context.Context, options *FindOptions) (int, error) {
	return c.repository.CountItems(ctx, c, options)
}

func (c *Collection) ForEachItems(ctx context.Context, options *FindOptions, fn func(item Item) error) error {
	return c.repository.ForEachItems(ctx, c, options, fn)
}

func (c *Collection) FindAndDeleteItems(ctx context.Context, options *FindOptions) (int, error) {
	return c.repository.FindAndDeleteItems(ctx, c, options)
}
