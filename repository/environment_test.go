package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fulldump/polydb/objectdb"
)

func Environment(f func(dir string)) {
	dir := fmt.Sprintf("temp-%v", time.Now().UnixNano())
	defer os.RemoveAll(dir)

	f(dir)
}

// fixture is the Accounts/People/Companies class DAG: people and companies
// are accounts too.
type fixture struct {
	repo      *Repository
	accounts  *Collection
	people    *Collection
	companies *Collection
}

func testClasses() []*Class {
	accounts := &Class{
		Name:       "Accounts",
		PrimaryKey: "id",
		Indexes: []*objectdb.IndexOptions{
			{Fields: []string{"accountNumber"}},
		},
	}
	people := &Class{
		Name:       "People",
		PrimaryKey: "id",
		Include:    []*Class{accounts},
	}
	companies := &Class{
		Name:       "Companies",
		PrimaryKey: "id",
		Include:    []*Class{accounts},
	}
	return []*Class{accounts, people, companies}
}

func newFixture(dir string) *fixture {
	repo := NewRepository("testing", "file://"+dir, testClasses()...)

	accounts, _ := repo.CreateCollection("Accounts")
	people, _ := repo.CreateCollection("People")
	companies, _ := repo.CreateCollection("Companies")

	return &fixture{
		repo:      repo,
		accounts:  accounts,
		people:    people,
		companies: companies,
	}
}

// seed inserts six items across the three collections.
func (f *fixture) seed(ctx context.Context) error {

	items := []struct {
		collection *Collection
		values     map[string]any
	}{
		{f.accounts, map[string]any{"id": "aaa", "country": "France", "accountNumber": 12345}},
		{f.people, map[string]any{"id": "bbb", "firstName": "Manu", "lastName": "Daniel", "country": "USA", "accountNumber": 3246}},
		{f.companies, map[string]any{"id": "ccc", "name": "Sparkle", "country": "Spain", "accountNumber": 7161}},
		{f.people, map[string]any{"id": "ddd", "firstName": "Sara", "lastName": "Jones", "country": "USA", "accountNumber": 55498}},
		{f.people, map[string]any{"id": "eee", "firstName": "Ana", "lastName": "Diaz", "country": "France", "accountNumber": 888}},
		{f.companies, map[string]any{"id": "fff", "name": "Croissant", "country": "France", "accountNumber": 554}},
	}

	for _, i := range items {
		err := i.collection.PutItem(ctx, i.collection.NewItem(i.values), nil)
		if err != nil {
			return err
		}
	}

	return nil
}

func itemIds(items []Item) []string {
	ids := []string{}
	for _, item := range items {
		ids = append(ids, item.PrimaryKeyValue())
	}
	return ids
}
