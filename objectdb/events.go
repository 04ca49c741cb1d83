package objectdb

import "github.com/fulldump/polydb/utils"

const (
	UpgradeDidStart   utils.Event = "upgradeDidStart"
	UpgradeDidStop    utils.Event = "upgradeDidStop"
	MigrationDidStart utils.Event = "migrationDidStart"
	MigrationDidStop  utils.Event = "migrationDidStop"
)
