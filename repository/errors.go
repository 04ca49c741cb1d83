package repository

import "errors"

var ErrorUnknownClass = errors.New("unknown class")
var ErrorInitInsideTransaction = errors.New("cannot initialize inside a transaction")
var ErrorCannotDowngrade = errors.New("cannot downgrade")
var ErrorNotInitialized = errors.New("repository is not initialized")
