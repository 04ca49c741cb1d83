package objectdb

import (
	"context"
	"errors"
	"testing"

	. "github.com/fulldump/biff"
)

var accountChain = []string{"Accounts"}

func seedAccounts(db *Database) {
	ctx := context.Background()
	db.PutItem(ctx, accountChain, "aaa", map[string]any{"id": "aaa", "country": "France", "accountNumber": 12345}, nil)
	db.PutItem(ctx, accountChain, "bbb", map[string]any{"id": "bbb", "country": "USA", "accountNumber": 3246}, nil)
	db.PutItem(ctx, accountChain, "ccc", map[string]any{"id": "ccc", "country": "Spain", "accountNumber": 7161}, nil)
	db.PutItem(ctx, accountChain, "ddd", map[string]any{"id": "ddd", "country": "USA", "accountNumber": 55498}, nil)
}

func findKeys(records []*Record) []string {
	keys := []string{}
	for _, record := range records {
		keys = append(keys, record.Key)
	}
	return keys
}

func TestFindPrimaryKeyOrder(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		records, err := db.FindItems(ctx, "Accounts", nil)
		AssertNil(err)
		AssertEqualJson(findKeys(records), []string{"aaa", "bbb", "ccc", "ddd"})

		records, _ = db.FindItems(ctx, "Accounts", &FindOptions{Reverse: true})
		AssertEqualJson(findKeys(records), []string{"ddd", "ccc", "bbb", "aaa"})
	})
}

func TestFindOrderByField(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		// no index on accountNumber: sorted scan
		records, err := db.FindItems(ctx, "Accounts", &FindOptions{Order: []string{"accountNumber"}})
		AssertNil(err)
		AssertEqualJson(findKeys(records), []string{"bbb", "ccc", "aaa", "ddd"})

		// descending
		records, _ = db.FindItems(ctx, "Accounts", &FindOptions{Order: []string{"-accountNumber"}})
		AssertEqualJson(findKeys(records), []string{"ddd", "aaa", "ccc", "bbb"})
	})
}

func TestFindOrderByIndexedField(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		db.EnsureIndex(ctx, "Accounts", &IndexOptions{Fields: []string{"accountNumber"}})
		seedAccounts(db)

		records, err := db.FindItems(ctx, "Accounts", &FindOptions{Order: []string{"accountNumber"}})
		AssertNil(err)
		AssertEqualJson(findKeys(records), []string{"bbb", "ccc", "aaa", "ddd"})

		records, _ = db.FindItems(ctx, "Accounts", &FindOptions{Order: []string{"accountNumber"}, Reverse: true})
		AssertEqualJson(findKeys(records), []string{"ddd", "aaa", "ccc", "bbb"})
	})
}

func TestFindQuery(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		records, err := db.FindItems(ctx, "Accounts", &FindOptions{Query: map[string]any{"country": "USA"}})
		AssertNil(err)
		AssertEqualJson(findKeys(records), []string{"bbb", "ddd"})

		records, _ = db.FindItems(ctx, "Accounts", &FindOptions{Query: map[string]any{"country": "UK"}})
		AssertEqualJson(findKeys(records), []string{})
	})
}

func TestFindLimit(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		records, err := db.FindItems(ctx, "Accounts", &FindOptions{Limit: 2})
		AssertNil(err)
		AssertEqualJson(findKeys(records), []string{"aaa", "bbb"})
	})
}

func TestFindBounds(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		// bounds on the primary key
		records, _ := db.FindItems(ctx, "Accounts", &FindOptions{Start: "bbb", End: "ccc"})
		AssertEqualJson(findKeys(records), []string{"bbb", "ccc"})

		records, _ = db.FindItems(ctx, "Accounts", &FindOptions{StartAfter: "bbb", EndBefore: "ddd"})
		AssertEqualJson(findKeys(records), []string{"ccc"})

		// bounds on the order key
		records, _ = db.FindItems(ctx, "Accounts", &FindOptions{Order: []string{"accountNumber"}, Start: 7000, End: 13000})
		AssertEqualJson(findKeys(records), []string{"ccc", "aaa"})
	})
}

func TestFindUnknownClass(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()

		records, err := db.FindItems(ctx, "Ghosts", nil)
		AssertNil(err)
		AssertEqualJson(findKeys(records), []string{})

		total, err := db.CountItems(ctx, "Ghosts", nil)
		AssertNil(err)
		AssertEqual(total, 0)
	})
}

func TestCountItems(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		total, err := db.CountItems(ctx, "Accounts", nil)
		AssertNil(err)
		AssertEqual(total, 4)

		total, _ = db.CountItems(ctx, "Accounts", &FindOptions{Query: map[string]any{"country": "USA"}})
		AssertEqual(total, 2)
	})
}

func TestForEachItemsBackpressure(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		// each callback completes before the next record is handed over,
		// and deleting the visited row mid-scan is safe
		visited := []string{}
		err := db.ForEachItems(ctx, "Accounts", &FindOptions{BatchSize: 2}, func(record *Record) error {
			visited = append(visited, record.Key)
			_, err := db.DeleteItem(ctx, "Accounts", record.Key, nil)
			return err
		})
		AssertNil(err)
		AssertEqualJson(visited, []string{"aaa", "bbb", "ccc", "ddd"})

		total, _ := db.CountItems(ctx, "Accounts", nil)
		AssertEqual(total, 0)
	})
}

func TestForEachItemsUserError(t *testing.T) {
	Environment(func(dir string) {
		ctx := context.Background()

		db := openTestDatabase("file://" + dir)
		defer db.Close()
		seedAccounts(db)

		boom := errors.New("user handler failed")
		err := db.ForEachItems(ctx, "Accounts", nil, func(record *Record) error {
			return boom
		})
		AssertEqual(errors.Is(err, boom), true)
	})
}
