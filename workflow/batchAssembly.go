package workflow

import (
	"bitbucket.org/dojoworks/dojo_backend/models"
	"bitbucket.org/dojoworks/dojo_backend/utils"
	"github.com/shopspring/decimal"
)

// SEPA field length caps (EPC implementation guidelines).
const (
	maxNameLen    = 70
	maxPurposeLen = 140
)

// StampSequenceType decides FRST vs RCUR for a mandate: the first collection
// ever produced against a mandate is FRST, everything after is RCUR.
func StampSequenceType(m models.Mandate) models.SequenceType {
	if m.LastCollectedAt == nil {
		return models.SequenceTypeFirst
	}
	return models.SequenceTypeRecurring
}

// AssembleTransactions is the pure core of batch construction: it stamps
// sequence types, snapshots mandate fields and derives end-to-end ids.
// Candidates must already be deduplicated per mandate (the selector's job);
// ordering is preserved so the batch layout is deterministic.
func AssembleTransactions(batchReference string, candidates []ChargeCandidate) []models.SepaTransaction {
	txs := make([]models.SepaTransaction, 0, len(candidates))
	for i, cand := range candidates {
		m := cand.Mandate
		txs = append(txs, models.SepaTransaction{
			MandateId:        m.ID,
			EndToEndId:       models.FormatEndToEndId(batchReference, i+1),
			Amount:           cand.Amount,
			SequenceType:     StampSequenceType(m),
			DebtorName:       utils.SepaText(m.AccountHolderName, maxNameLen),
			DebtorIban:       m.Iban,
			DebtorBic:        m.Bic,
			MandateReference: m.MandateReference,
			SignatureDate:    m.SignatureDate,
			PurposeText:      utils.SepaText(cand.PurposeText, maxPurposeLen),
		})
	}
	return txs
}

// SumAmounts computes the control sum over the assembled line items.
func SumAmounts(txs []models.SepaTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

// validateSnapshots rejects assembled line items the file format could not
// express, before anything is committed. Keeps SerializationError at
// download time what it should be: impossible.
func validateSnapshots(txs []models.SepaTransaction) error {
	for _, t := range txs {
		switch {
		case t.DebtorName == "":
			return models.NewValidationError(models.ErrCodeMissingField, "account_holder_name",
				"mandate %s has no usable account holder name", t.MandateReference)
		case t.DebtorIban == "":
			return models.NewValidationError(models.ErrCodeMissingField, "iban",
				"mandate %s has no IBAN", t.MandateReference)
		case t.MandateReference == "":
			return models.NewValidationError(models.ErrCodeMissingField, "mandate_reference",
				"transaction %s has no mandate reference", t.EndToEndId)
		case t.SignatureDate.IsZero():
			return models.NewValidationError(models.ErrCodeMissingField, "signature_date",
				"mandate %s has no signature date", t.MandateReference)
		case !t.Amount.IsPositive():
			return models.NewValidationError(models.ErrCodeMissingField, "amount",
				"transaction %s has non-positive amount %s", t.EndToEndId, t.Amount.String())
		}
	}
	return nil
}
