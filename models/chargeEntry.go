package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"github.com/shopspring/decimal"
)

// ChargeEntry is a row of the billing ledger: an amount the contract side of
// the application says is due from a mandate. The CRUD side writes these;
// this engine only selects and reserves them. status + batch_id together are
// the reservation: a row leaves "open" exactly once, atomically, inside the
// batch transaction.
type ChargeEntry struct {
	ID          int             `gorm:"primary_key" json:"id"`
	TenantId    string          `gorm:"size:64;index;not null" json:"tenant_id"`
	MandateId   int             `gorm:"index;not null" json:"mandate_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PurposeText string          `gorm:"size:140" json:"purpose_text"`
	DueDate     time.Time       `gorm:"not null;index" json:"due_date"`
	Status      ChargeStatus    `gorm:"size:10;not null;default:'open';index" json:"status"`
	BatchId     *int            `gorm:"index" json:"batch_id"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewChargeEntry struct {
	TenantId    string          `json:"tenant_id" binding:"required"`
	MandateId   int             `json:"mandate_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	PurposeText string          `json:"purpose_text"`
	DueDate     time.Time       `json:"due_date" binding:"required"`
}

// CreateChargeEntry is the write path the billing collaborator uses (and the
// seed tooling). The engine itself never invents charges.
func CreateChargeEntry(ctx context.Context, input NewChargeEntry) (*ChargeEntry, error) {
	if strings.TrimSpace(input.TenantId) == "" {
		return nil, NewValidationError(ErrCodeMissingTenant, "tenant_id", "tenant id is required")
	}
	if input.MandateId <= 0 {
		return nil, NewValidationError(ErrCodeMissingField, "mandate_id", "mandate id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, NewValidationError(ErrCodeMissingField, "amount", "amount must be positive")
	}
	if input.DueDate.IsZero() {
		return nil, NewValidationError(ErrCodeMissingField, "due_date", "due date is required")
	}

	entry := ChargeEntry{
		TenantId:    input.TenantId,
		MandateId:   input.MandateId,
		Amount:      input.Amount,
		PurposeText: input.PurposeText,
		DueDate:     input.DueDate,
		Status:      ChargeStatusOpen,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
