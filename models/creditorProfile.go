package models

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreditorProfile holds the tenant's own side of the collection file: the
// dojo is the creditor, its members are the debtors. Without a profile no
// batch can be rendered, so batch creation requires one up front.
type CreditorProfile struct {
	ID           int       `gorm:"primary_key" json:"id"`
	TenantId     string    `gorm:"size:64;not null;uniqueIndex" json:"tenant_id"`
	CreditorName string    `gorm:"size:70;not null" json:"creditor_name"`
	CreditorIban string    `gorm:"size:34;not null" json:"creditor_iban"`
	CreditorBic  string    `gorm:"size:11;not null" json:"creditor_bic"`
	// CreditorId is the SEPA creditor identifier (Gläubiger-ID), e.g. DE98ZZZ09999999999.
	CreditorId string    `gorm:"size:35;not null" json:"creditor_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCreditorProfile struct {
	TenantId     string `json:"tenant_id" binding:"required" validate:"required"`
	CreditorName string `json:"creditor_name" binding:"required" validate:"required,max=70"`
	CreditorIban string `json:"creditor_iban" binding:"required" validate:"required"`
	CreditorBic  string `json:"creditor_bic" binding:"required" validate:"required"`
	CreditorId   string `json:"creditor_id" binding:"required" validate:"required,max=35"`
}

var creditorIdPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{3}[A-Z0-9]+$`)

// UpsertCreditorProfile validates and saves the tenant's creditor data.
// One profile per tenant; repeated calls overwrite.
func UpsertCreditorProfile(ctx context.Context, input NewCreditorProfile) (*CreditorProfile, error) {
	if strings.TrimSpace(input.TenantId) == "" {
		return nil, NewValidationError(ErrCodeMissingTenant, "tenant_id", "tenant id is required")
	}
	if reason, err := utils.ValidateIban(input.CreditorIban); err != nil {
		return nil, NewValidationError(ErrCodeInvalidIban, "creditor_iban", "%s: %s", reason, err.Error())
	}
	bic := strings.ToUpper(strings.TrimSpace(input.CreditorBic))
	if err := utils.ValidateBic(bic); err != nil {
		return nil, NewValidationError(ErrCodeInvalidBic, "creditor_bic", "%s", err.Error())
	}
	creditorId := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input.CreditorId), " ", ""))
	if !creditorIdPattern.MatchString(creditorId) {
		return nil, NewValidationError(ErrCodeMissingField, "creditor_id", "creditor identifier %q is malformed", input.CreditorId)
	}

	profile := CreditorProfile{
		TenantId:     input.TenantId,
		CreditorName: strings.TrimSpace(input.CreditorName),
		CreditorIban: utils.NormalizeIban(input.CreditorIban),
		CreditorBic:  bic,
		CreditorId:   creditorId,
	}
	db := config.GetDB()
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"creditor_name", "creditor_iban", "creditor_bic", "creditor_id", "updated_at"}),
		}).
		Create(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetCreditorProfile loads the tenant's profile; missing profile is a
// MissingCreditorProfile validation error, not a bare not-found.
func GetCreditorProfile(tx *gorm.DB, ctx context.Context, tenantId string) (*CreditorProfile, error) {
	var profile CreditorProfile
	err := tx.WithContext(ctx).Where("tenant_id = ?", tenantId).Take(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewValidationError(ErrCodeMissingCreditorProfile, "tenant_id",
				"tenant %s has no creditor profile; configure it before creating batches", tenantId)
		}
		return nil, err
	}
	return &profile, nil
}
