package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ReferenceSequence backs every generated reference with a storage-level
// counter. Uniqueness is a DB invariant (unique scope row + atomic
// increment), never an in-process assumption; values never shrink and are
// never reused, including for revoked mandates.
type ReferenceSequence struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Scope     string    `gorm:"size:100;not null;uniqueIndex" json:"scope"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// nextSequenceValue atomically increments the counter for scope and returns
// the new value. Uses the MySQL LAST_INSERT_ID(expr) idiom so the
// read-after-increment is race-free without a row lock round trip.
func nextSequenceValue(tx *gorm.DB, scope string) (int64, error) {
	err := tx.Exec(
		"INSERT INTO reference_sequences (scope, value, updated_at) VALUES (?, LAST_INSERT_ID(1), NOW()) "+
			"ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1), updated_at = NOW()",
		scope,
	).Error
	if err != nil {
		return 0, err
	}
	var v int64
	if err := tx.Raw("SELECT LAST_INSERT_ID()").Scan(&v).Error; err != nil {
		return 0, err
	}
	return v, nil
}

// NextMandateReference issues a new unique mandate reference for the tenant.
// Format: DM-<TENANT8>-<seq>, SEPA-safe charset, max 35 chars.
func NextMandateReference(tx *gorm.DB, tenantId string) (string, error) {
	seq, err := nextSequenceValue(tx, "mandate:"+tenantId)
	if err != nil {
		return "", err
	}
	return FormatMandateReference(tenantId, seq), nil
}

// NextBatchReference issues a new unique batch reference.
// Format: DD-<YYYYMMDD>-<seq>.
func NextBatchReference(tx *gorm.DB, now time.Time) (string, error) {
	seq, err := nextSequenceValue(tx, "batch")
	if err != nil {
		return "", err
	}
	return FormatBatchReference(now, seq), nil
}

func FormatMandateReference(tenantId string, seq int64) string {
	return fmt.Sprintf("DM-%s-%06d", tenantRefPart(tenantId), seq)
}

func FormatBatchReference(now time.Time, seq int64) string {
	return fmt.Sprintf("DD-%s-%06d", now.UTC().Format("20060102"), seq)
}

// FormatEndToEndId derives the per-transaction end-to-end id from the batch
// reference and the transaction's position in the batch. Pure; uniqueness
// follows from the batch reference being unique.
func FormatEndToEndId(batchReference string, sequenceInBatch int) string {
	return fmt.Sprintf("%s-T%04d", batchReference, sequenceInBatch)
}

// tenantRefPart reduces a tenant id (uuid in production) to the first 8
// SEPA-safe characters so references stay readable on bank statements.
func tenantRefPart(tenantId string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(tenantId) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
		if sb.Len() >= 8 {
			break
		}
	}
	if sb.Len() == 0 {
		return "TENANT"
	}
	return sb.String()
}
