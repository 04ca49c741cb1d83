package repository

import "github.com/fulldump/polydb/utils"

const (
	DidCreate     utils.Event = "didCreate"
	DidInitialize utils.Event = "didInitialize"
	WillDestroy   utils.Event = "willDestroy"
	DidDestroy    utils.Event = "didDestroy"
	DidPutItem    utils.Event = "didPutItem"
	DidDeleteItem utils.Event = "didDeleteItem"
)
