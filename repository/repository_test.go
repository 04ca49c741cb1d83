package repository

import (
	"context"
	"errors"
	"testing"

	. "github.com/fulldump/biff"

	"github.com/fulldump/polydb/objectdb"
)

func TestPutGetDelete(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		// Setup
		f := newFixture(dir)

		// Run
		err := f.people.PutItem(ctx, f.people.NewItem(map[string]any{"id": "m", "firstName": "Manu", "age": 42}), nil)
		AssertNil(err)

		// Check
		item, err := f.people.GetItem(ctx, "m", nil)
		AssertNil(err)
		AssertEqualJson(item.(*Document).Get("firstName"), "Manu")
		AssertEqualJson(item.(*Document).Get("age"), 42)
		AssertEqual(item.IsNew(), false)

		deleted, err := f.people.DeleteItem(ctx, item, nil)
		AssertNil(err)
		AssertEqual(deleted, true)

		item, err = f.people.GetItem(ctx, "m", &GetOptions{ErrorIfMissing: false})
		AssertNil(err)
		AssertNil(item)
	})
}

func TestPutNewItemTwice(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)

		err := f.people.PutItem(ctx, f.people.NewItem(map[string]any{"id": "m"}), nil)
		AssertNil(err)

		// a second new item on the same key must not overwrite
		err = f.people.PutItem(ctx, f.people.NewItem(map[string]any{"id": "m"}), nil)
		AssertEqual(errors.Is(err, objectdb.ErrorAlreadyExists), true)
	})
}

func TestUpdateExistingItem(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		f.people.PutItem(ctx, f.people.NewItem(map[string]any{"id": "m", "firstName": "Manu"}), nil)

		item, _ := f.people.GetItem(ctx, "m", nil)
		doc := item.(*Document)
		doc.Set("firstName", "Manuel")
		err := f.people.PutItem(ctx, doc, nil)
		AssertNil(err)

		item, _ = f.people.GetItem(ctx, "m", nil)
		AssertEqualJson(item.(*Document).Get("firstName"), "Manuel")
	})
}

func TestDeleteMissingItem(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		f.repo.GetRepositoryId(ctx) // force initialization

		_, err := f.people.DeleteItemByKey(ctx, "nope", nil)
		AssertEqual(errors.Is(err, objectdb.ErrorNotFound), true)

		deleted, err := f.people.DeleteItemByKey(ctx, "nope", &DeleteOptions{ErrorIfMissing: false})
		AssertNil(err)
		AssertEqual(deleted, false)
	})
}

func TestPolymorphicGet(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		// Setup
		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		// Run: ask for a person through the base collection
		item, err := f.accounts.GetItem(ctx, "bbb", nil)

		// Check: materialized at its most-derived class
		AssertNil(err)
		AssertEqual(item.Class().Name, "People")
		AssertEqualJson(item.(*Document).Get("lastName"), "Daniel")
	})
}

func TestPolymorphicGetItems(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		items, err := f.accounts.GetItems(ctx, []string{"aaa", "ccc"}, nil)
		AssertNil(err)
		AssertEqual(len(items), 2)
		AssertEqual(items[0].Class().Name, "Accounts")
		AssertEqual(items[1].Class().Name, "Companies")
	})
}

func TestFindItemsOrder(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		items, err := f.people.FindItems(ctx, &FindOptions{Order: []string{"accountNumber"}})
		AssertNil(err)

		numbers := []any{}
		for _, item := range items {
			numbers = append(numbers, item.(*Document).Get("accountNumber"))
		}
		AssertEqualJson(numbers, []any{888, 3246, 55498})
	})
}

func TestFindItemsQuery(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		items, err := f.accounts.FindItems(ctx, &FindOptions{Query: map[string]any{"country": "USA"}})
		AssertNil(err)
		AssertEqualJson(itemIds(items), []string{"bbb", "ddd"})

		items, err = f.companies.FindItems(ctx, &FindOptions{Query: map[string]any{"country": "UK"}})
		AssertNil(err)
		AssertEqualJson(itemIds(items), []string{})
	})
}

func TestCountItems(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		total, err := f.people.CountItems(ctx, nil)
		AssertNil(err)
		AssertEqual(total, 3)

		total, err = f.accounts.CountItems(ctx, &FindOptions{Query: map[string]any{"country": "France"}})
		AssertNil(err)
		AssertEqual(total, 3)
	})
}

func TestFindAndDeleteItems(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		// Setup
		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		// Run
		count, err := f.accounts.FindAndDeleteItems(ctx, &FindOptions{Query: map[string]any{"country": "France"}, BatchSize: 2})

		// Check
		AssertNil(err)
		AssertEqual(count, 3)

		items, _ := f.accounts.FindItems(ctx, nil)
		AssertEqualJson(itemIds(items), []string{"bbb", "ccc", "ddd"})

		// a re-run has nothing left to delete
		count, err = f.accounts.FindAndDeleteItems(ctx, &FindOptions{Query: map[string]any{"country": "France"}, BatchSize: 2})
		AssertNil(err)
		AssertEqual(count, 0)
	})
}

func TestForEachItems(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		visited := []string{}
		err := f.people.ForEachItems(ctx, nil, func(item Item) error {
			visited = append(visited, item.PrimaryKeyValue())
			return nil
		})
		AssertNil(err)
		AssertEqualJson(visited, []string{"bbb", "ddd", "eee"})
	})
}

func TestForEachItemsUserError(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)
		AssertNil(f.seed(ctx))

		boom := errors.New("boom")
		err := f.people.ForEachItems(ctx, nil, func(item Item) error {
			return boom
		})
		AssertEqual(errors.Is(err, boom), true)
	})
}

func TestInitializeIdempotence(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)

		initializations := 0
		f.repo.On(DidInitialize, func(payload any) { initializations++ })
		creations := 0
		f.repo.On(DidCreate, func(payload any) { creations++ })

		f.repo.GetRepositoryId(ctx)
		f.seed(ctx)
		f.people.CountItems(ctx, nil)

		AssertEqual(initializations, 1)
		AssertEqual(creations, 1)
	})
}

func TestRepositoryIdStability(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		// Setup
		f := newFixture(dir)
		id, err := f.repo.GetRepositoryId(ctx)
		AssertNil(err)
		AssertEqual(len(id), 16)

		again, _ := f.repo.GetRepositoryId(ctx)
		AssertEqual(again, id)

		// Run: reopen against the same store
		other := newFixture(dir)
		reopened, err := other.repo.GetRepositoryId(ctx)

		// Check
		AssertNil(err)
		AssertEqual(reopened, id)
	})
}

func TestPutAndDeleteEvents(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)

		puts := 0
		f.repo.On(DidPutItem, func(payload any) { puts++ })
		deletes := 0
		f.repo.On(DidDeleteItem, func(payload any) { deletes++ })

		AssertNil(f.seed(ctx))
		f.people.DeleteItemByKey(ctx, "bbb", nil)
		f.people.DeleteItemByKey(ctx, "nope", &DeleteOptions{ErrorIfMissing: false})

		AssertEqual(puts, 6)
		AssertEqual(deletes, 1)
	})
}

func TestDestroyRepository(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		f := newFixture(dir)

		// destroy requires a quiesced, initialized repository
		err := f.repo.DestroyRepository(ctx)
		AssertEqual(errors.Is(err, ErrorNotInitialized), true)

		AssertNil(f.seed(ctx))

		events := []string{}
		f.repo.On(WillDestroy, func(payload any) { events = append(events, "willDestroy") })
		f.repo.On(DidDestroy, func(payload any) { events = append(events, "didDestroy") })

		err = f.repo.DestroyRepository(ctx)
		AssertNil(err)
		AssertEqualJson(events, []string{"willDestroy", "didDestroy"})

		// a fresh initialization builds a brand new repository
		id, err := f.repo.GetRepositoryId(ctx)
		AssertNil(err)
		AssertEqual(len(id), 16)

		total, _ := f.people.CountItems(ctx, nil)
		AssertEqual(total, 0)
	})
}

func TestUnknownClass(t *testing.T) {
	Environment(func(dir string) {

		f := newFixture(dir)

		_, err := f.repo.CreateCollection("Ghosts")
		AssertEqual(errors.Is(err, ErrorUnknownClass), true)
	})
}

func TestRootCollectionClass(t *testing.T) {
	Environment(func(dir string) {

		f := newFixture(dir)

		root := f.repo.RootCollectionClass()
		AssertNotNil(root)
		AssertEqual(root.Name, "Accounts")
	})
}
