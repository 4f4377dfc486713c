package models

import (
	"log"

	"github.com/brio2025kalbo/Icafe-Dashboard-POSTGRESQL/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Cafe{},
		&QbToken{},
		&QbAutoSendSetting{},
		&QbReportLog{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
