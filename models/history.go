package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"gorm.io/gorm"
)

// History is the audit trail for mandate and batch state changes. Mandates
// are never deleted and batches never revert, so this table plus the
// snapshots is the full forensic record.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	TenantId      string    `gorm:"size:64;index;not null" json:"tenant_id"`
	ActionType    string    `gorm:"size:20;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:50;index" json:"reference_type"`
	UserId        int       `gorm:"index" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB, ctx context.Context, tenantId string,
	actionType string, referenceId int, referenceType string,
	before interface{}, after interface{}, description string) error {

	history := History{
		TenantId:      tenantId,
		ActionType:    actionType,
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
	}
	if before != nil {
		if s, ok := before.(string); ok {
			history.Before = s
		} else if b, err := json.Marshal(before); err == nil {
			history.Before = string(b)
		}
	}
	if after != nil {
		if s, ok := after.(string); ok {
			history.After = s
		} else if b, err := json.Marshal(after); err == nil {
			history.After = string(b)
		}
	}
	if ctx != nil {
		if userId, ok := utils.GetUserIdFromContext(ctx); ok {
			history.UserId = userId
		}
		if userName, ok := utils.GetUserNameFromContext(ctx); ok {
			history.UserName = userName
		} else if username, ok := utils.GetUsernameFromContext(ctx); ok {
			// Session username is the fallback when no display name was stamped.
			history.UserName = username
		}
	}
	return tx.Create(&history).Error
}

// CreateHistoryRecord writes an audit row inside the caller's transaction.
// Exported for workflow code that runs its own db.Transaction.
func CreateHistoryRecord(tx *gorm.DB, ctx context.Context, tenantId string,
	actionType string, referenceId int, referenceType string,
	before interface{}, after interface{}, description string) error {
	return createHistory(tx, ctx, tenantId, actionType, referenceId, referenceType, before, after, description)
}

func ListHistory(ctx context.Context, referenceType string, referenceId int) ([]History, error) {
	db := config.GetDB()
	var rows []History
	err := db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
