package models

import (
	"gorm.io/gorm/clause"
)

// lockForUpdate is the row-lock clause used wherever a read must be stable
// for the rest of the transaction (status transitions, batch assembly).
func lockForUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
