package objectdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/SierraSoftworks/connor"

	"github.com/fulldump/polydb/utils"
)

func (db *Database) FindItems(ctx context.Context, className string, options *FindOptions) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if err := db.ready(); err != nil {
		return nil, err
	}

	return db.findLocked(className, options.orDefault())
}

func (db *Database) CountItems(ctx context.Context, className string, options *FindOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if err := db.ready(); err != nil {
		return 0, err
	}

	records, err := db.findLocked(className, options.orDefault())
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// ForEachItems calls fn once per matching record and waits for it before
// handing over the next one. The scan is a snapshot: rows inserted while fn
// runs are not visited, rows already deleted are. BatchSize > 0 yields the
// processor between batches.
func (db *Database) ForEachItems(ctx context.Context, className string, options *FindOptions, fn func(record *Record) error) error {
	options = options.orDefault()

	records, err := db.FindItems(ctx, className, options)
	if err != nil {
		return err
	}

	return forEachRecords(ctx, records, options.BatchSize, fn)
}

func forEachRecords(ctx context.Context, records []*Record, batchSize int, fn func(record *Record) error) error {
	for i, record := range records {
		if batchSize > 0 && i > 0 && i%batchSize == 0 {
			runtime.Gosched()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(record)
		if err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) findLocked(className string, options *FindOptions) ([]*Record, error) {

	cs, exists := db.classes[className]
	if !exists {
		return []*Record{}, nil
	}

	filter := map[string]any{}
	if len(options.Query) > 0 {
		err := utils.Remarshal(options.Query, &filter)
		if err != nil {
			return nil, fmt.Errorf("remarshal query: %w", err)
		}
	}

	records := []*Record{}
	limit := options.Limit

	var matchErr error
	visit := func(r *row) bool {
		if limit > 0 && len(records) == limit {
			return false
		}

		if len(filter) > 0 {
			match, err := connor.Match(filter, r.Values)
			if err != nil {
				matchErr = fmt.Errorf("match: %w", err)
				return false
			}
			if !match {
				return true
			}
		}

		within, beyond := checkBounds(rangeValue(r, options.Order), options)
		if !within {
			return !beyond
		}

		records = append(records, r.record())
		return true
	}

	if index := cs.indexByFields(options.Order); index != nil {
		index.Traverse(options.Reverse, visit)
	} else if len(options.Order) > 0 {
		for _, r := range sortRows(cs, options) {
			if !visit(r) {
				break
			}
		}
	} else {
		iterator := func(key string) bool { return visit(cs.rows[key]) }
		if options.Reverse {
			cs.keys.Descend(iterator)
		} else {
			cs.keys.Ascend(iterator)
		}
	}

	if matchErr != nil {
		return nil, matchErr
	}

	return records, nil
}

func (cs *classStore) indexByFields(fields []string) *IndexBTree {
	if len(fields) == 0 {
		return nil
	}
	return cs.indexes[strings.Join(fields, ",")]
}

func sortRows(cs *classStore, options *FindOptions) []*row {

	rows := make([]*row, 0, len(cs.rows))
	cs.keys.Ascend(func(key string) bool {
		rows = append(rows, cs.rows[key])
		return true
	})

	sort.SliceStable(rows, func(i, j int) bool {
		for _, field := range options.Order {
			name := strings.TrimPrefix(field, "-")
			c := compareValues(rows[i].Values[name], rows[j].Values[name])
			if c == 0 {
				continue
			}
			if strings.HasPrefix(field, "-") {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	if options.Reverse {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}

	return rows
}

// rangeValue is the value the Start/End bounds apply to: the first order
// field, or the primary key when no order is given.
func rangeValue(r *row, order []string) any {
	if len(order) == 0 {
		return r.Key
	}
	return r.Values[strings.TrimPrefix(order[0], "-")]
}

// checkBounds reports whether v falls within the find bounds, and whether
// it is past the upper one (so an ordered traversal may stop early).
func checkBounds(v any, options *FindOptions) (within bool, beyond bool) {
	// a "-" first order field runs the traversal from high to low
	descending := options.Reverse
	if len(options.Order) > 0 && strings.HasPrefix(options.Order[0], "-") {
		descending = !descending
	}

	if options.Start != nil && compareValues(v, options.Start) < 0 {
		return false, false
	}
	if options.StartAfter != nil && compareValues(v, options.StartAfter) <= 0 {
		return false, false
	}
	if options.End != nil && compareValues(v, options.End) > 0 {
		return false, !descending
	}
	if options.EndBefore != nil && compareValues(v, options.EndBefore) >= 0 {
		return false, !descending
	}
	return true, false
}
