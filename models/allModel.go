package models

import (
	"bitbucket.org/dojoworks/dojo_backend/config"
)

// MigrateTable runs AutoMigrate for every engine-owned table.
// IMPORTANT: AutoMigrate can run DDL that blocks tables; production
// deployments may run this as a separate job (SKIP_MIGRATIONS=true).
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Mandate{},
		&ChargeEntry{},
		&SepaBatch{},
		&SepaTransaction{},
		&CreditorProfile{},
		&ReferenceSequence{},
		&History{},
	)
	if err != nil {
		panic(err)
	}
}
