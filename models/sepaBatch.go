package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SepaBatch is an immutable snapshot of one collection run. Content
// (transactions, totals) is frozen the moment status leaves "created";
// everything after that is lifecycle only.
//
// transaction_count and total_amount are always recomputed from the line
// items, never mutated independently.
type SepaBatch struct {
	ID               int               `gorm:"primary_key" json:"id"`
	TenantId         string            `gorm:"size:64;index;not null" json:"tenant_id"`
	BatchReference   string            `gorm:"size:35;not null;uniqueIndex" json:"batch_reference"`
	ExecutionDate    time.Time         `gorm:"not null" json:"execution_date"`
	Status           BatchStatus       `gorm:"size:10;not null;index" json:"status"`
	TransactionCount int               `gorm:"not null" json:"transaction_count"`
	TotalAmount      decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Transactions     []SepaTransaction `gorm:"foreignKey:BatchId" json:"transactions,omitempty"`
	// ExportedXml caches the deterministic pain.008 rendering at first export.
	ExportedXml *string    `gorm:"type:longtext" json:"-"`
	ExportedAt  *time.Time `json:"exported_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SepaTransaction is one direct-debit instruction inside a batch. Mandate
// fields are snapshotted at batch time so a later mandate edit cannot
// retroactively corrupt a submitted file. At most one transaction per
// mandate per batch (unique composite index).
type SepaTransaction struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BatchId      int             `gorm:"not null;index:uniq_batch_mandate,unique" json:"batch_id"`
	MandateId    int             `gorm:"not null;index:uniq_batch_mandate,unique" json:"mandate_id"`
	EndToEndId   string          `gorm:"size:35;not null;uniqueIndex" json:"end_to_end_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	SequenceType SequenceType    `gorm:"size:4;not null" json:"sequence_type"`

	// Mandate snapshot, frozen at batch time.
	DebtorName       string    `gorm:"size:70;not null" json:"debtor_name"`
	DebtorIban       string    `gorm:"size:34;not null" json:"debtor_iban"`
	DebtorBic        string    `gorm:"size:11" json:"debtor_bic"`
	MandateReference string    `gorm:"size:35;not null" json:"mandate_reference"`
	SignatureDate    time.Time `gorm:"not null" json:"signature_date"`

	PurposeText string    `gorm:"size:140" json:"purpose_text"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RecomputeTotals derives count and control sum from the line items.
func (b *SepaBatch) RecomputeTotals() {
	total := decimal.Zero
	for _, t := range b.Transactions {
		total = total.Add(t.Amount)
	}
	b.TransactionCount = len(b.Transactions)
	b.TotalAmount = total
}

// HasSequenceType reports whether any line item carries the given code.
// Drives both the lead-time rule (FRST needs 5 business days) and the
// one-PmtInf-per-sequence-type file layout.
func (b *SepaBatch) HasSequenceType(st SequenceType) bool {
	for _, t := range b.Transactions {
		if t.SequenceType == st {
			return true
		}
	}
	return false
}

// GetBatch loads a batch without line items.
func GetBatch(ctx context.Context, batchId int) (*SepaBatch, error) {
	db := config.GetDB()
	var batch SepaBatch
	if err := db.WithContext(ctx).Where("id = ?", batchId).Take(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// GetBatchWithTransactions loads a batch plus its line items in stable order.
func GetBatchWithTransactions(ctx context.Context, batchId int) (*SepaBatch, error) {
	batch, err := GetBatch(ctx, batchId)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).
		Where("batch_id = ?", batchId).
		Order("id").
		Find(&batch.Transactions).Error
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func ListBatches(ctx context.Context, tenantId string) ([]SepaBatch, error) {
	db := config.GetDB()
	var batches []SepaBatch
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("id DESC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}
