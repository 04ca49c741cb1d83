package repository

import (
	"github.com/fulldump/polydb/objectdb"
)

// Class describes a collection: its item class name, the field holding the
// primary key, the base classes it includes, and its secondary indexes.
// Inclusion forms a DAG: an item of a derived class is also an item of
// every included class.
type Class struct {
	Name       string
	PrimaryKey string
	Include    []*Class
	Indexes    []*objectdb.IndexOptions
}

// Chain returns the class and its transitively included classes,
// most-derived first, keeping only classes that own a primary key.
// Diamond inclusion is deduplicated.
func (c *Class) Chain() []*Class {
	seen := map[string]bool{}
	chain := []*Class{}

	var walk func(class *Class)
	walk = func(class *Class) {
		if class == nil || seen[class.Name] {
			return
		}
		seen[class.Name] = true
		if class.PrimaryKey != "" {
			chain = append(chain, class)
		}
		for _, base := range class.Include {
			walk(base)
		}
	}
	walk(c)

	return chain
}

// ClassNames is the chain as names, the shape the object database stores.
func (c *Class) ClassNames() []string {
	names := []string{}
	for _, class := range c.Chain() {
		names = append(names, class.Name)
	}
	return names
}

func (c *Class) includes(other *Class) bool {
	for _, class := range c.Chain() {
		if class == other {
			return true
		}
	}
	return false
}
