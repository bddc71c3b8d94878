package models

import (
	"github.com/mmdatafocus/production_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()

	return db.AutoMigrate(
		&User{}, &Machine{},
		&ProductionOrder{}, &ProductionReading{},
		&StopReason{}, &Stoppage{},
		&SyncLogEntry{},
	)
}
