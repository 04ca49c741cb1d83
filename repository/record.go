package repository

import (
	"fmt"

	"github.com/fulldump/polydb/objectdb"
	"github.com/fulldump/polydb/utils"
)

// Version is the current repository record format.
const Version = 1

const recordKey = "$Repository"

// Record is the singleton metadata record persisted under
// [name, "$Repository"] in the low-level store.
type Record struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	Id      string `json:"id"`
}

func loadRepositoryRecord(store objectdb.Store, name string, errorIfMissing bool) (*Record, error) {

	value, err := store.Get([]string{name, recordKey}, &objectdb.GetOptions{ErrorIfMissing: errorIfMissing})
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	record := &Record{}
	err = utils.Remarshal(value, record)
	if err != nil {
		return nil, fmt.Errorf("decode repository record: %w", err)
	}

	return record, nil
}

func saveRepositoryRecord(store objectdb.Store, record *Record, errorIfExists bool) error {

	value := map[string]any{}
	err := utils.Remarshal(record, &value)
	if err != nil {
		return fmt.Errorf("encode repository record: %w", err)
	}

	return store.Put([]string{record.Name, recordKey}, value, &objectdb.PutOptions{
		ErrorIfExists:   errorIfExists,
		CreateIfMissing: !errorIfExists,
	})
}
