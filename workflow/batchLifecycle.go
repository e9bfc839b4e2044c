package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/iso20022"
	"bitbucket.org/dojoworks/dojo_backend/models"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdvanceBatchStatus moves a batch along its one-way lifecycle
// (exported -> submitted -> executed/failed). The exported step itself is
// reserved for ExportBatchXml; asking for it here is an illegal transition.
func AdvanceBatchStatus(ctx context.Context, logger *logrus.Logger, batchId int, next models.BatchStatus) (*models.SepaBatch, error) {
	if !next.IsValid() {
		return nil, models.NewValidationError(models.ErrCodeMissingField, "status", "unknown batch status %q", next)
	}

	db := config.GetDB()
	var batch models.SepaBatch
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", batchId).
			Take(&batch).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		if next == models.BatchStatusExported || !batch.Status.CanTransitionTo(next) {
			return models.NewStateError(models.ErrCodeIllegalTransition, "SepaBatch", batchId,
				"cannot move batch %s from %s to %s", batch.BatchReference, batch.Status, next)
		}

		previous := batch.Status
		batch.Status = next
		if err := tx.WithContext(ctx).Model(&models.SepaBatch{}).
			Where("id = ?", batchId).
			Update("status", next).Error; err != nil {
			return err
		}
		return models.CreateHistoryRecord(tx, ctx, batch.TenantId, "Update", batch.ID, "SepaBatch",
			string(previous), string(next),
			fmt.Sprintf("Batch %s marked %s", batch.BatchReference, next))
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(logger, "batchLifecycle.go", "AdvanceBatchStatus", "Transaction", batchId, err)
		}
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"field":           "AdvanceBatchStatus",
		"batch_reference": batch.BatchReference,
		"status":          batch.Status,
	}).Info("sepa batch status advanced")
	return &batch, nil
}

// ExportBatchXml renders the batch as a pain.008.001.02 file. The first export
// moves the batch from created to exported and caches the bytes; later calls
// return the cached file unchanged, so the bank always receives identical
// content no matter how often the operator downloads it.
func ExportBatchXml(ctx context.Context, logger *logrus.Logger, batchId int) ([]byte, string, error) {
	if cached, ok := xmlFromRedis(ctx, batchId); ok {
		return []byte(cached.Xml), cached.Filename, nil
	}

	db := config.GetDB()
	var xmlBytes []byte
	var filename string
	err := db.Transaction(func(tx *gorm.DB) error {
		var batch models.SepaBatch
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", batchId).
			Take(&batch).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return err
		}
		filename = batch.BatchReference + ".xml"

		if batch.Status != models.BatchStatusCreated && batch.ExportedXml != nil && !config.DisableXmlCache() {
			xmlBytes = []byte(*batch.ExportedXml)
			return nil
		}

		if err := tx.WithContext(ctx).
			Where("batch_id = ?", batchId).
			Order("id").
			Find(&batch.Transactions).Error; err != nil {
			return err
		}
		creditor, err := models.GetCreditorProfile(tx, ctx, batch.TenantId)
		if err != nil {
			return err
		}
		xmlBytes, err = iso20022.RenderPain008(&batch, creditor)
		if err != nil {
			return err
		}

		if batch.Status != models.BatchStatusCreated {
			// Cache disabled or lost; re-rendered deterministically, nothing to persist.
			return nil
		}

		rendered := string(xmlBytes)
		now := time.Now().UTC()
		if err := tx.WithContext(ctx).Model(&models.SepaBatch{}).
			Where("id = ?", batchId).
			Updates(map[string]interface{}{
				"status":       models.BatchStatusExported,
				"exported_xml": rendered,
				"exported_at":  now,
			}).Error; err != nil {
			return err
		}
		return models.CreateHistoryRecord(tx, ctx, batch.TenantId, "Update", batch.ID, "SepaBatch",
			string(models.BatchStatusCreated), string(models.BatchStatusExported),
			fmt.Sprintf("Batch %s exported as %s", batch.BatchReference, filename))
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(logger, "batchLifecycle.go", "ExportBatchXml", "Transaction", batchId, err)
		}
		return nil, "", err
	}
	xmlToRedis(ctx, logger, batchId, filename, xmlBytes)

	logger.WithFields(logrus.Fields{
		"field":    "ExportBatchXml",
		"batch_id": batchId,
		"filename": filename,
		"size":     len(xmlBytes),
	}).Info("sepa batch xml exported")
	return xmlBytes, filename, nil
}

// cachedXml is the redis payload for an exported file. The database column is
// the source of truth; redis only spares the row lock on repeated downloads.
type cachedXml struct {
	Filename string `json:"filename"`
	Xml      string `json:"xml"`
}

// xmlCacheKey scopes cache entries by tenant so one tenant can never read
// another tenant's file through the cache. No tenant in context, no cache.
func xmlCacheKey(ctx context.Context, batchId int) (string, bool) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return "", false
	}
	return fmt.Sprintf("SepaBatchXml:%s:%d", tenantId, batchId), true
}

func xmlFromRedis(ctx context.Context, batchId int) (cachedXml, bool) {
	if config.DisableXmlCache() {
		return cachedXml{}, false
	}
	key, ok := xmlCacheKey(ctx, batchId)
	if !ok {
		return cachedXml{}, false
	}
	var cached cachedXml
	found, err := config.GetRedisObject(key, &cached)
	if err != nil || !found || cached.Xml == "" {
		return cachedXml{}, false
	}
	return cached, true
}

func xmlToRedis(ctx context.Context, logger *logrus.Logger, batchId int, filename string, xmlBytes []byte) {
	if config.DisableXmlCache() {
		return
	}
	key, ok := xmlCacheKey(ctx, batchId)
	if !ok {
		return
	}
	cached := cachedXml{Filename: filename, Xml: string(xmlBytes)}
	if err := config.SetRedisObject(key, cached, 24*time.Hour); err != nil {
		logger.WithFields(logrus.Fields{
			"field":    "xmlToRedis",
			"batch_id": batchId,
		}).Warn("could not cache exported xml in redis: " + err.Error())
	}
}
