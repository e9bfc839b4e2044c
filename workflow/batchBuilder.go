package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/config"
	"bitbucket.org/dojoworks/dojo_backend/models"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/bsm/redislock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// errNoEligibleCharges aborts (and rolls back) the build transaction when
// nothing survived selection/reservation. Mapped to an empty result, not an
// error: "nothing due" is a normal answer.
var errNoEligibleCharges = errors.New("no eligible charges")

// BuildBatch selects every due, uncollected charge for the tenant and turns
// them into a persisted batch with line items, atomically. Returns (nil, nil)
// when nothing is eligible.
//
// All-or-nothing: a lead-time violation, snapshot problem or store failure
// rolls back the batch, its transactions and every reservation.
func BuildBatch(ctx context.Context, logger *logrus.Logger, tenantId string, executionDate time.Time) (*models.SepaBatch, error) {
	return buildBatchAt(ctx, logger, tenantId, executionDate, time.Now().UTC())
}

func buildBatchAt(ctx context.Context, logger *logrus.Logger, tenantId string, executionDate time.Time, now time.Time) (*models.SepaBatch, error) {
	if tenantId == "" {
		return nil, models.NewValidationError(models.ErrCodeMissingTenant, "tenant_id", "tenant id is required")
	}
	if executionDate.IsZero() {
		return nil, models.NewValidationError(models.ErrCodeMissingField, "execution_date", "execution date is required")
	}

	// Redis lock is a best-effort optimization to avoid two operators racing.
	// Correctness does not depend on it: the conditional reservation UPDATE
	// inside the transaction is the real guard.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "sepa:batch:"+tenantId, 30*time.Second, nil)
		if err != nil {
			if err == redislock.ErrNotObtained {
				logger.WithFields(logrus.Fields{
					"field":     "BuildBatch",
					"tenant_id": tenantId,
				}).Warn("could not obtain redis lock; proceeding without redis lock")
			} else {
				logger.WithFields(logrus.Fields{
					"field":     "BuildBatch",
					"tenant_id": tenantId,
				}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
			}
		} else {
			defer func() {
				if releaseErr := lock.Release(ctx); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
					logger.WithFields(logrus.Fields{
						"field":     "BuildBatch",
						"tenant_id": tenantId,
					}).Warn("failed to release redis lock: " + releaseErr.Error())
				}
			}()
		}
	}

	db := config.GetDB()
	var batch models.SepaBatch
	err := db.Transaction(func(tx *gorm.DB) error {
		// The file cannot be rendered without creditor data; fail before
		// touching the ledger.
		if _, err := models.GetCreditorProfile(tx, ctx, tenantId); err != nil {
			return err
		}

		candidates, err := SelectEligibleCharges(tx, ctx, tenantId, executionDate)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return errNoEligibleCharges
		}

		if err := ValidateLeadTime(now, executionDate, HasFirstCollection(candidates)); err != nil {
			return err
		}

		batchReference, err := models.NextBatchReference(tx, now)
		if err != nil {
			return err
		}
		batch = models.SepaBatch{
			TenantId:       tenantId,
			BatchReference: batchReference,
			ExecutionDate:  executionDate,
			Status:         models.BatchStatusCreated,
		}
		if err := tx.WithContext(ctx).Create(&batch).Error; err != nil {
			return err
		}

		kept := make([]ChargeCandidate, 0, len(candidates))
		for _, cand := range candidates {
			reserved, err := reserveEntries(tx, ctx, batch.ID, cand)
			if err != nil {
				return err
			}
			if !reserved {
				// A concurrent build took this candidate between our select
				// and our update. Exclude silently, per contract.
				logger.WithFields(logrus.Fields{
					"field":      "BuildBatch",
					"tenant_id":  tenantId,
					"mandate_id": cand.MandateId,
				}).Warn("charge already reserved by a concurrent batch; excluding")
				continue
			}
			if err := models.MarkMandateCollected(tx, ctx, cand.MandateId, executionDate); err != nil {
				return err
			}
			kept = append(kept, cand)
		}
		if len(kept) == 0 {
			return errNoEligibleCharges
		}

		transactions := AssembleTransactions(batch.BatchReference, kept)
		if err := validateSnapshots(transactions); err != nil {
			return err
		}
		for i := range transactions {
			transactions[i].BatchId = batch.ID
		}
		if err := tx.WithContext(ctx).Create(&transactions).Error; err != nil {
			return err
		}

		batch.Transactions = transactions
		batch.RecomputeTotals()
		if err := tx.WithContext(ctx).Model(&models.SepaBatch{}).
			Where("id = ?", batch.ID).
			Updates(map[string]interface{}{
				"transaction_count": batch.TransactionCount,
				"total_amount":      batch.TotalAmount,
			}).Error; err != nil {
			return err
		}

		return createBatchHistory(tx, ctx, &batch)
	})
	if errors.Is(err, errNoEligibleCharges) {
		return nil, nil
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			// Unique constraint tripped (batch reference / end-to-end id /
			// one-per-mandate index): the run rolled back cleanly, the
			// operator can simply retry.
			return nil, fmt.Errorf("batch creation conflicted with a concurrent run, retry: %w", err)
		}
		config.LogError(logger, "batchBuilder.go", "BuildBatch", "Transaction", tenantId, err)
		return nil, err
	}

	fields := logrus.Fields{
		"field":             "BuildBatch",
		"tenant_id":         tenantId,
		"batch_reference":   batch.BatchReference,
		"transaction_count": batch.TransactionCount,
		"total_amount":      batch.TotalAmount.StringFixed(2),
	}
	if correlationId, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = correlationId
	}
	logger.WithFields(fields).Info("sepa batch created")
	return &batch, nil
}

// reserveEntries flips a candidate's ledger rows from open to collected,
// stamping the owning batch. Returns false (and undoes its own partial
// stamps) if any row was already taken by a concurrent build.
func reserveEntries(tx *gorm.DB, ctx context.Context, batchId int, cand ChargeCandidate) (bool, error) {
	res := tx.WithContext(ctx).Model(&models.ChargeEntry{}).
		Where("id IN ? AND status = ? AND batch_id IS NULL", cand.EntryIds, models.ChargeStatusOpen).
		Updates(map[string]interface{}{
			"status":   models.ChargeStatusCollected,
			"batch_id": batchId,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == int64(len(cand.EntryIds)) {
		return true, nil
	}
	if res.RowsAffected > 0 {
		// Partial win: release the rows we did stamp so the next run sees them.
		err := tx.WithContext(ctx).Model(&models.ChargeEntry{}).
			Where("batch_id = ? AND id IN ?", batchId, cand.EntryIds).
			Updates(map[string]interface{}{
				"status":   models.ChargeStatusOpen,
				"batch_id": nil,
			}).Error
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

func createBatchHistory(tx *gorm.DB, ctx context.Context, batch *models.SepaBatch) error {
	return models.CreateHistoryRecord(tx, ctx, batch.TenantId, "Create", batch.ID, "SepaBatch",
		nil, batch,
		fmt.Sprintf("Batch %s created: %d transactions, EUR %s",
			batch.BatchReference, batch.TransactionCount, batch.TotalAmount.StringFixed(2)))
}

func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
