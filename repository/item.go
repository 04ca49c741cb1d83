package repository

import (
	"fmt"
	"maps"

	"github.com/fulldump/polydb/utils"
)

// Item is the capability the repository needs from stored objects. The
// repository never looks inside the value bag; it moves items between the
// object database and client code.
type Item interface {
	Class() *Class
	ClassNames() []string
	PrimaryKeyValue() string
	IsNew() bool
	Serialize() (map[string]any, error)
	ReplaceValue(value map[string]any)

	markSaved()
}

// Document is the default Item: a property bag bound to a class. A missing
// primary key is generated at construction.
type Document struct {
	class  *Class
	values map[string]any
	isNew  bool
}

func NewDocument(class *Class, values map[string]any) *Document {
	values = maps.Clone(values)
	if values == nil {
		values = map[string]any{}
	}

	if class.PrimaryKey != "" {
		if _, exists := values[class.PrimaryKey]; !exists {
			values[class.PrimaryKey] = utils.RandomId(16)
		}
	}

	return &Document{
		class:  class,
		values: values,
		isNew:  true,
	}
}

// newStoredDocument materializes a document already present in the object
// database.
func newStoredDocument(class *Class, values map[string]any) *Document {
	return &Document{
		class:  class,
		values: values,
		isNew:  false,
	}
}

func (d *Document) Class() *Class {
	return d.class
}

func (d *Document) ClassNames() []string {
	return d.class.ClassNames()
}

func (d *Document) PrimaryKeyValue() string {
	value, exists := d.values[d.class.PrimaryKey]
	if !exists || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func (d *Document) IsNew() bool {
	return d.isNew
}

// Serialize returns a JSON-shaped copy of the values, so that what lives in
// memory matches what a journal replay would rebuild.
func (d *Document) Serialize() (map[string]any, error) {
	out := map[string]any{}
	err := utils.Remarshal(d.values, &out)
	if err != nil {
		return nil, fmt.Errorf("serialize item: %w", err)
	}
	return out, nil
}

func (d *Document) ReplaceValue(value map[string]any) {
	d.values = value
}

func (d *Document) markSaved() {
	d.isNew = false
}

func (d *Document) Get(field string) any {
	return d.values[field]
}

func (d *Document) Set(field string, value any) {
	d.values[field] = value
}
