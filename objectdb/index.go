package objectdb

import (
	"fmt"
	"strings"

	"github.com/google/btree"
)

// IndexOptions declares an ordered index over one or more fields. A leading
// "-" on a field name inverts its order. Sparse indexes skip rows missing a
// field; unique indexes reject two rows with the same values.
type IndexOptions struct {
	Fields []string `json:"fields"`
	Sparse bool     `json:"sparse"`
	Unique bool     `json:"unique"`
}

func (o *IndexOptions) name() string {
	return strings.Join(o.Fields, ",")
}

type IndexBTree struct {
	Options *IndexOptions
	Btree   *btree.BTreeG[*rowOrdered]
}

type rowOrdered struct {
	row    *row
	values []any
}

func NewIndexBTree(options *IndexOptions) *IndexBTree {

	index := btree.NewG(32, func(a, b *rowOrdered) bool {

		for i, valA := range a.values {
			valB := b.values[i]

			c := compareValues(valA, valB)
			if c == 0 {
				continue
			}

			if strings.HasPrefix(options.Fields[i], "-") {
				return c > 0
			}
			return c < 0
		}

		// rows with equal values are ordered by primary key
		return a.key() < b.key()
	})

	return &IndexBTree{
		Options: options,
		Btree:   index,
	}
}

func (o *rowOrdered) key() string {
	if o.row == nil {
		return ""
	}
	return o.row.Key
}

// rowValues returns the indexed values of r, or ok=false when a sparse index
// should skip the row.
func (b *IndexBTree) rowValues(r *row) (values []any, ok bool, err error) {
	for _, field := range b.Options.Fields {
		field = strings.TrimPrefix(field, "-")
		value, exists := r.Values[field]
		if !exists {
			if b.Options.Sparse {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("field `%s` is indexed and mandatory", field)
		}
		values = append(values, value)
	}
	return values, true, nil
}

// Check validates r against the index without mutating it: mandatory
// fields must be present and unique values must not collide. An empty
// pivot key sorts before any row with the same values.
func (b *IndexBTree) Check(r *row) error {
	values, ok, err := b.rowValues(r)
	if err != nil {
		return err
	}
	if !ok || !b.Options.Unique {
		return nil
	}

	conflict := false
	b.Btree.AscendGreaterOrEqual(&rowOrdered{values: values}, func(item *rowOrdered) bool {
		for i, value := range values {
			if compareValues(value, item.values[i]) != 0 {
				return false
			}
		}
		conflict = item.key() != r.Key
		return false
	})

	if conflict {
		pairs := []string{}
		for i, field := range b.Options.Fields {
			pairs = append(pairs, fmt.Sprint(field, ":", values[i]))
		}
		return fmt.Errorf("%w: key (%s)", ErrorAlreadyExists, strings.Join(pairs, ","))
	}

	return nil
}

func (b *IndexBTree) AddRow(r *row) error {
	values, ok, err := b.rowValues(r)
	if err != nil || !ok {
		return err
	}

	b.Btree.ReplaceOrInsert(&rowOrdered{
		row:    r,
		values: values,
	})

	return nil
}

func (b *IndexBTree) RemoveRow(r *row) {
	values, ok, err := b.rowValues(r)
	if err != nil || !ok {
		return
	}

	b.Btree.Delete(&rowOrdered{
		row:    r,
		values: values,
	})
}

func (b *IndexBTree) Traverse(reverse bool, f func(r *row) bool) {
	iterator := func(item *rowOrdered) bool {
		return f(item.row)
	}

	if reverse {
		b.Btree.Descend(iterator)
	} else {
		b.Btree.Ascend(iterator)
	}
}
