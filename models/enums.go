package models

type MandateStatus string

const (
	MandateStatusActive  MandateStatus = "active"
	MandateStatusPaused  MandateStatus = "paused"
	MandateStatusRevoked MandateStatus = "revoked"
)

// mandateTransitions lists the legal status moves. revoked is terminal:
// a revoked mandate stays in the table for audit but can never collect again.
var mandateTransitions = map[MandateStatus][]MandateStatus{
	MandateStatusActive:  {MandateStatusPaused, MandateStatusRevoked},
	MandateStatusPaused:  {MandateStatusActive, MandateStatusRevoked},
	MandateStatusRevoked: {},
}

func (s MandateStatus) IsValid() bool {
	_, ok := mandateTransitions[s]
	return ok
}

func (s MandateStatus) CanTransitionTo(next MandateStatus) bool {
	for _, allowed := range mandateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BatchStatus string

const (
	BatchStatusCreated   BatchStatus = "created"
	BatchStatusExported  BatchStatus = "exported"
	BatchStatusSubmitted BatchStatus = "submitted"
	BatchStatusExecuted  BatchStatus = "executed"
	BatchStatusFailed    BatchStatus = "failed"
)

// batchTransitions is one-directional: no state may revert.
// failed is reachable only by manual operator marking (bank feedback
// ingestion is out of scope), from exported or submitted.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusCreated:   {BatchStatusExported},
	BatchStatusExported:  {BatchStatusSubmitted, BatchStatusFailed},
	BatchStatusSubmitted: {BatchStatusExecuted, BatchStatusFailed},
	BatchStatusExecuted:  {},
	BatchStatusFailed:    {},
}

func (s BatchStatus) IsValid() bool {
	_, ok := batchTransitions[s]
	return ok
}

func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BatchStatus) IsTerminal() bool {
	return len(batchTransitions[s]) == 0
}

// SequenceType is the SEPA sequence code stamped per transaction:
// FRST for a mandate's first collection, RCUR afterwards.
type SequenceType string

const (
	SequenceTypeFirst     SequenceType = "FRST"
	SequenceTypeRecurring SequenceType = "RCUR"
)

type ChargeStatus string

const (
	ChargeStatusOpen      ChargeStatus = "open"
	ChargeStatusCollected ChargeStatus = "collected"
)
