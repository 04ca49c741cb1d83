package repository

import "github.com/fulldump/polydb/objectdb"

// Operation options are passed verbatim to the object database.
type GetOptions = objectdb.GetOptions
type PutOptions = objectdb.PutOptions
type DeleteOptions = objectdb.DeleteOptions
type FindOptions = objectdb.FindOptions
