package workflow

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ChargeCandidate is the ephemeral selection result: everything the builder
// needs to turn one mandate's due charges into one batch transaction.
type ChargeCandidate struct {
	MandateId   int
	Amount      decimal.Decimal
	PurposeText string
	DueDate     time.Time
	EntryIds    []int
	Mandate     models.Mandate
}

// SelectEligibleCharges returns one candidate per active mandate that has
// open, unreserved charges due on or before the execution date. Multiple due
// entries for a mandate are aggregated into a single candidate (amount
// summed, purpose and due date from the earliest entry) so that a batch
// never carries two transactions for the same mandate.
//
// The returned rows are not yet reserved; reservation is the builder's
// conditional UPDATE inside the same transaction, so a concurrent build
// simply wins or loses per entry.
func SelectEligibleCharges(tx *gorm.DB, ctx context.Context, tenantId string, executionDate time.Time) ([]ChargeCandidate, error) {
	var entries []models.ChargeEntry
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND batch_id IS NULL AND due_date <= ?",
			tenantId, models.ChargeStatusOpen, executionDate).
		Order("due_date, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	mandateIds := make([]int, 0, len(entries))
	seen := map[int]bool{}
	for _, e := range entries {
		if !seen[e.MandateId] {
			seen[e.MandateId] = true
			mandateIds = append(mandateIds, e.MandateId)
		}
	}

	var mandates []models.Mandate
	err = tx.WithContext(ctx).
		Where("tenant_id = ? AND id IN ? AND status = ?", tenantId, mandateIds, models.MandateStatusActive).
		Find(&mandates).Error
	if err != nil {
		return nil, err
	}
	mandateById := make(map[int]models.Mandate, len(mandates))
	for _, m := range mandates {
		mandateById[m.ID] = m
	}

	byMandate := map[int]*ChargeCandidate{}
	for _, e := range entries {
		mandate, ok := mandateById[e.MandateId]
		if !ok {
			// paused/revoked mandate: its charges stay open until it is active again
			continue
		}
		cand, ok := byMandate[e.MandateId]
		if !ok {
			cand = &ChargeCandidate{
				MandateId:   e.MandateId,
				Amount:      decimal.Zero,
				PurposeText: e.PurposeText,
				DueDate:     e.DueDate,
				Mandate:     mandate,
			}
			byMandate[e.MandateId] = cand
		}
		cand.Amount = cand.Amount.Add(e.Amount)
		cand.EntryIds = append(cand.EntryIds, e.ID)
	}

	candidates := make([]ChargeCandidate, 0, len(byMandate))
	for _, cand := range byMandate {
		candidates = append(candidates, *cand)
	}
	// deterministic batch layout regardless of map iteration order
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].MandateId < candidates[j].MandateId })
	return candidates, nil
}

// HasFirstCollection reports whether any candidate's mandate has never been
// collected, which subjects the whole batch to the longer lead time.
func HasFirstCollection(candidates []ChargeCandidate) bool {
	for _, c := range candidates {
		if c.Mandate.LastCollectedAt == nil {
			return true
		}
	}
	return false
}
