package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Mandate is a payer's authorization for recurring direct debits.
// Rows are never physically deleted; revoked mandates stay for audit.
// mandate_reference is unique and immutable once signed.
type Mandate struct {
	ID                int             `gorm:"primary_key" json:"id"`
	TenantId          string          `gorm:"size:64;index;not null" json:"tenant_id"`
	AccountHolderName string          `gorm:"size:70;not null" json:"account_holder_name"`
	Iban              string          `gorm:"size:34;not null" json:"iban"`
	Bic               string          `gorm:"size:11" json:"bic"`
	MandateReference  string          `gorm:"size:35;not null;uniqueIndex" json:"mandate_reference"`
	SignatureDate     time.Time       `gorm:"not null" json:"signature_date"`
	Status            MandateStatus   `gorm:"size:10;not null;index" json:"status"`
	RecurringAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"recurring_amount"`
	LastCollectedAt   *time.Time      `json:"last_collected_at"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMandate struct {
	TenantId          string          `json:"tenant_id" binding:"required"`
	AccountHolderName string          `json:"account_holder" binding:"required"`
	Iban              string          `json:"iban" binding:"required"`
	Bic               string          `json:"bic"`
	SignatureDate     time.Time       `json:"signature_date" binding:"required"`
	RecurringAmount   decimal.Decimal `json:"recurring_amount"`
}

// CreateMandate validates the banking details, issues a fresh mandate
// reference and persists the mandate, all in one transaction.
func CreateMandate(ctx context.Context, input NewMandate) (*Mandate, error) {
	if strings.TrimSpace(input.TenantId) == "" {
		return nil, NewValidationError(ErrCodeMissingTenant, "tenant_id", "tenant id is required")
	}
	if strings.TrimSpace(input.AccountHolderName) == "" {
		return nil, NewValidationError(ErrCodeMissingField, "account_holder", "account holder name is required")
	}
	if input.SignatureDate.IsZero() {
		return nil, NewValidationError(ErrCodeMissingField, "signature_date", "signature date is required")
	}
	if reason, err := utils.ValidateIban(input.Iban); err != nil {
		return nil, NewValidationError(ErrCodeInvalidIban, "iban", "%s: %s", reason, err.Error())
	}
	bic := strings.ToUpper(strings.TrimSpace(input.Bic))
	if bic == "" && config.RequireDebtorBic() {
		return nil, NewValidationError(ErrCodeInvalidBic, "bic", "bic is required by deployment policy")
	}
	if bic != "" {
		if err := utils.ValidateBic(bic); err != nil {
			return nil, NewValidationError(ErrCodeInvalidBic, "bic", "%s", err.Error())
		}
	}

	db := config.GetDB()
	var mandate Mandate
	err := db.Transaction(func(tx *gorm.DB) error {
		reference, err := NextMandateReference(tx, input.TenantId)
		if err != nil {
			return err
		}
		mandate = Mandate{
			TenantId:          input.TenantId,
			AccountHolderName: strings.TrimSpace(input.AccountHolderName),
			Iban:              utils.NormalizeIban(input.Iban),
			Bic:               bic,
			MandateReference:  reference,
			SignatureDate:     input.SignatureDate,
			Status:            MandateStatusActive,
			RecurringAmount:   input.RecurringAmount,
		}
		if err := tx.WithContext(ctx).Create(&mandate).Error; err != nil {
			return err
		}
		return createHistory(tx, ctx, input.TenantId, "Create", mandate.ID, "Mandate",
			nil, &mandate, "Mandate "+reference+" created")
	})
	if err != nil {
		return nil, err
	}
	return &mandate, nil
}

// GetMandate loads a single mandate; the tenant guard scopes the query.
func GetMandate(ctx context.Context, mandateId int) (*Mandate, error) {
	db := config.GetDB()
	var mandate Mandate
	if err := db.WithContext(ctx).Where("id = ?", mandateId).Take(&mandate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &mandate, nil
}

func ListMandates(ctx context.Context, tenantId string) ([]Mandate, error) {
	db := config.GetDB()
	var mandates []Mandate
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantId).
		Order("id").
		Find(&mandates).Error
	if err != nil {
		return nil, err
	}
	return mandates, nil
}

// SetMandateStatus applies a status transition if the transition table allows
// it. Illegal moves (revoked -> anything, same-state no-ops) fail with
// IllegalTransition and leave the row untouched.
func SetMandateStatus(ctx context.Context, mandateId int, newStatus MandateStatus) (*Mandate, error) {
	if !newStatus.IsValid() {
		return nil, NewValidationError(ErrCodeMissingField, "status", "unknown mandate status %q", newStatus)
	}

	db := config.GetDB()
	var mandate Mandate
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Clauses(lockForUpdate()).
			Where("id = ?", mandateId).
			Take(&mandate).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		if !mandate.Status.CanTransitionTo(newStatus) {
			return NewStateError(ErrCodeIllegalTransition, "mandate", mandateId,
				"cannot transition from %s to %s", mandate.Status, newStatus)
		}
		before := mandate.Status
		mandate.Status = newStatus
		if err := tx.WithContext(ctx).Model(&Mandate{}).
			Where("id = ?", mandateId).
			Update("status", newStatus).Error; err != nil {
			return err
		}
		return createHistory(tx, ctx, mandate.TenantId, "StatusChange", mandate.ID, "Mandate",
			string(before), string(newStatus),
			"Mandate "+mandate.MandateReference+" "+string(before)+" -> "+string(newStatus))
	})
	if err != nil {
		return nil, err
	}
	return &mandate, nil
}

// MarkMandateCollected stamps last_collected_at. Called by the batch builder
// inside the batch transaction; the stamp is what flips the mandate's next
// collection from FRST to RCUR.
func MarkMandateCollected(tx *gorm.DB, ctx context.Context, mandateId int, at time.Time) error {
	return tx.WithContext(ctx).Model(&Mandate{}).
		Where("id = ?", mandateId).
		Update("last_collected_at", at).Error
}
