// Package iso20022 renders persisted batches into ISO 20022 payment
// initiation messages. Rendering is pure and deterministic: the same batch
// always yields byte-identical XML, so files can be cached or regenerated
// interchangeably.
package iso20022

import (
	"encoding/xml"
	"fmt"

	"bitbucket.org/dojoworks/dojo_backend/models"
	"github.com/shopspring/decimal"
)

const (
	// Pain008Namespace is the customer direct debit initiation schema.
	Pain008Namespace = "urn:iso:std:iso:20022:tech:xsd:pain.008.001.02"

	currencyEUR = "EUR"
)

// SerializationError means a persisted transaction carries a snapshot the
// schema cannot express (empty required field). That is a data-integrity
// bug, not a user error: log it, never emit a partial file.
type SerializationError struct {
	BatchReference string
	EndToEndId     string
	Field          string
}

func (e *SerializationError) Error() string {
	if e.EndToEndId != "" {
		return fmt.Sprintf("SerializationError: batch %s transaction %s: required field %s is empty",
			e.BatchReference, e.EndToEndId, e.Field)
	}
	return fmt.Sprintf("SerializationError: batch %s: required field %s is empty", e.BatchReference, e.Field)
}

// XML marshaling structs (internal). Element order follows the schema; do
// not reorder fields.
type pain008Document struct {
	XMLName           xml.Name            `xml:"Document"`
	Xmlns             string              `xml:"xmlns,attr"`
	CstmrDrctDbtInitn pain008DrctDbtInitn `xml:"CstmrDrctDbtInitn"`
}

type pain008DrctDbtInitn struct {
	GrpHdr pain008GrpHdr   `xml:"GrpHdr"`
	PmtInf []pain008PmtInf `xml:"PmtInf"`
}

type pain008GrpHdr struct {
	MsgId    string       `xml:"MsgId"`
	CreDtTm  string       `xml:"CreDtTm"`
	NbOfTxs  string       `xml:"NbOfTxs"`
	CtrlSum  string       `xml:"CtrlSum"`
	InitgPty pain008Party `xml:"InitgPty"`
}

type pain008Party struct {
	Nm string `xml:"Nm"`
}

type pain008PmtInf struct {
	PmtInfId     string             `xml:"PmtInfId"`
	PmtMtd       string             `xml:"PmtMtd"`
	NbOfTxs      string             `xml:"NbOfTxs"`
	CtrlSum      string             `xml:"CtrlSum"`
	PmtTpInf     pain008PmtTpInf    `xml:"PmtTpInf"`
	ReqdColltnDt string             `xml:"ReqdColltnDt"`
	Cdtr         pain008Party       `xml:"Cdtr"`
	CdtrAcct     pain008Account     `xml:"CdtrAcct"`
	CdtrAgt      pain008Agent       `xml:"CdtrAgt"`
	ChrgBr       string             `xml:"ChrgBr"`
	CdtrSchmeId  pain008CdtrSchmeId `xml:"CdtrSchmeId"`
	DrctDbtTxInf []pain008TxInf     `xml:"DrctDbtTxInf"`
}

type pain008PmtTpInf struct {
	SvcLvl    pain008Code `xml:"SvcLvl"`
	LclInstrm pain008Code `xml:"LclInstrm"`
	SeqTp     string      `xml:"SeqTp"`
}

type pain008Code struct {
	Cd string `xml:"Cd"`
}

type pain008Account struct {
	Id pain008AccountId `xml:"Id"`
}

type pain008AccountId struct {
	IBAN string `xml:"IBAN"`
}

type pain008Agent struct {
	FinInstnId pain008FinInstnId `xml:"FinInstnId"`
}

type pain008FinInstnId struct {
	BIC  string         `xml:"BIC,omitempty"`
	Othr *pain008OthrId `xml:"Othr,omitempty"`
}

type pain008OthrId struct {
	Id string `xml:"Id"`
}

type pain008CdtrSchmeId struct {
	Id pain008SchemeIdWrap `xml:"Id"`
}

type pain008SchemeIdWrap struct {
	PrvtId pain008PrvtId `xml:"PrvtId"`
}

type pain008PrvtId struct {
	Othr pain008SchemeOthr `xml:"Othr"`
}

type pain008SchemeOthr struct {
	Id      string         `xml:"Id"`
	SchmeNm pain008SchmeNm `xml:"SchmeNm"`
}

type pain008SchmeNm struct {
	Prtry string `xml:"Prtry"`
}

type pain008TxInf struct {
	PmtId     pain008PmtId     `xml:"PmtId"`
	InstdAmt  pain008Amount    `xml:"InstdAmt"`
	DrctDbtTx pain008DrctDbtTx `xml:"DrctDbtTx"`
	DbtrAgt   pain008Agent     `xml:"DbtrAgt"`
	Dbtr      pain008Party     `xml:"Dbtr"`
	DbtrAcct  pain008Account   `xml:"DbtrAcct"`
	RmtInf    *pain008RmtInf   `xml:"RmtInf,omitempty"`
}

type pain008PmtId struct {
	EndToEndId string `xml:"EndToEndId"`
}

type pain008Amount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type pain008DrctDbtTx struct {
	MndtRltdInf pain008MndtRltdInf `xml:"MndtRltdInf"`
}

type pain008MndtRltdInf struct {
	MndtId    string `xml:"MndtId"`
	DtOfSgntr string `xml:"DtOfSgntr"`
}

type pain008RmtInf struct {
	Ustrd string `xml:"Ustrd"`
}

// RenderPain008 renders a persisted batch into pain.008.001.02 bytes.
// A batch mixing FRST and RCUR yields one PmtInf block per sequence type
// (SeqTp is declared per PmtInf, not per transaction), FRST first.
func RenderPain008(batch *models.SepaBatch, creditor *models.CreditorProfile) ([]byte, error) {
	if err := validateCreditor(batch, creditor); err != nil {
		return nil, err
	}

	var pmtInfs []pain008PmtInf
	for _, seqType := range []models.SequenceType{models.SequenceTypeFirst, models.SequenceTypeRecurring} {
		if !batch.HasSequenceType(seqType) {
			continue
		}
		block, err := buildPmtInf(batch, creditor, seqType)
		if err != nil {
			return nil, err
		}
		pmtInfs = append(pmtInfs, block)
	}

	doc := pain008Document{
		Xmlns: Pain008Namespace,
		CstmrDrctDbtInitn: pain008DrctDbtInitn{
			GrpHdr: pain008GrpHdr{
				MsgId:    batch.BatchReference,
				CreDtTm:  batch.CreatedAt.UTC().Format("2006-01-02T15:04:05"),
				NbOfTxs:  fmt.Sprintf("%d", batch.TransactionCount),
				CtrlSum:  batch.TotalAmount.StringFixed(2),
				InitgPty: pain008Party{Nm: creditor.CreditorName},
			},
			PmtInf: pmtInfs,
		},
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, []byte(xml.Header)...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

func buildPmtInf(batch *models.SepaBatch, creditor *models.CreditorProfile, seqType models.SequenceType) (pain008PmtInf, error) {
	var txs []pain008TxInf
	total := decimal.Zero
	for _, t := range batch.Transactions {
		if t.SequenceType != seqType {
			continue
		}
		txInf, err := buildTxInf(batch, t)
		if err != nil {
			return pain008PmtInf{}, err
		}
		txs = append(txs, txInf)
		total = total.Add(t.Amount)
	}

	return pain008PmtInf{
		PmtInfId: fmt.Sprintf("%s-%s", batch.BatchReference, seqType),
		PmtMtd:   "DD",
		NbOfTxs:  fmt.Sprintf("%d", len(txs)),
		CtrlSum:  total.StringFixed(2),
		PmtTpInf: pain008PmtTpInf{
			SvcLvl:    pain008Code{Cd: "SEPA"},
			LclInstrm: pain008Code{Cd: "CORE"},
			SeqTp:     string(seqType),
		},
		ReqdColltnDt: batch.ExecutionDate.UTC().Format("2006-01-02"),
		Cdtr:         pain008Party{Nm: creditor.CreditorName},
		CdtrAcct:     pain008Account{Id: pain008AccountId{IBAN: creditor.CreditorIban}},
		CdtrAgt:      pain008Agent{FinInstnId: pain008FinInstnId{BIC: creditor.CreditorBic}},
		ChrgBr:       "SLEV",
		CdtrSchmeId: pain008CdtrSchmeId{
			Id: pain008SchemeIdWrap{
				PrvtId: pain008PrvtId{
					Othr: pain008SchemeOthr{
						Id:      creditor.CreditorId,
						SchmeNm: pain008SchmeNm{Prtry: "SEPA"},
					},
				},
			},
		},
		DrctDbtTxInf: txs,
	}, nil
}

func buildTxInf(batch *models.SepaBatch, t models.SepaTransaction) (pain008TxInf, error) {
	required := []struct {
		field string
		value string
	}{
		{"end_to_end_id", t.EndToEndId},
		{"debtor_name", t.DebtorName},
		{"debtor_iban", t.DebtorIban},
		{"mandate_reference", t.MandateReference},
	}
	for _, r := range required {
		if r.value == "" {
			return pain008TxInf{}, &SerializationError{
				BatchReference: batch.BatchReference,
				EndToEndId:     t.EndToEndId,
				Field:          r.field,
			}
		}
	}
	if t.SignatureDate.IsZero() {
		return pain008TxInf{}, &SerializationError{
			BatchReference: batch.BatchReference,
			EndToEndId:     t.EndToEndId,
			Field:          "signature_date",
		}
	}
	if !t.Amount.IsPositive() {
		return pain008TxInf{}, &SerializationError{
			BatchReference: batch.BatchReference,
			EndToEndId:     t.EndToEndId,
			Field:          "amount",
		}
	}

	txInf := pain008TxInf{
		PmtId:    pain008PmtId{EndToEndId: t.EndToEndId},
		InstdAmt: pain008Amount{Ccy: currencyEUR, Value: t.Amount.StringFixed(2)},
		DrctDbtTx: pain008DrctDbtTx{
			MndtRltdInf: pain008MndtRltdInf{
				MndtId:    t.MandateReference,
				DtOfSgntr: t.SignatureDate.UTC().Format("2006-01-02"),
			},
		},
		DbtrAgt:  debtorAgent(t.DebtorBic),
		Dbtr:     pain008Party{Nm: t.DebtorName},
		DbtrAcct: pain008Account{Id: pain008AccountId{IBAN: t.DebtorIban}},
	}
	if t.PurposeText != "" {
		txInf.RmtInf = &pain008RmtInf{Ustrd: t.PurposeText}
	}
	return txInf, nil
}

// debtorAgent emits the debtor bank. IBAN-only collections carry the EPC
// placeholder Othr/Id=NOTPROVIDED instead of a BIC.
func debtorAgent(bic string) pain008Agent {
	if bic == "" {
		return pain008Agent{FinInstnId: pain008FinInstnId{Othr: &pain008OthrId{Id: "NOTPROVIDED"}}}
	}
	return pain008Agent{FinInstnId: pain008FinInstnId{BIC: bic}}
}

func validateCreditor(batch *models.SepaBatch, creditor *models.CreditorProfile) error {
	if creditor == nil {
		return &SerializationError{BatchReference: batch.BatchReference, Field: "creditor_profile"}
	}
	required := []struct {
		field string
		value string
	}{
		{"creditor_name", creditor.CreditorName},
		{"creditor_iban", creditor.CreditorIban},
		{"creditor_bic", creditor.CreditorBic},
		{"creditor_id", creditor.CreditorId},
	}
	for _, r := range required {
		if r.value == "" {
			return &SerializationError{BatchReference: batch.BatchReference, Field: r.field}
		}
	}
	return nil
}

// ParsedTransaction is the transaction-level view extracted back out of a
// rendered file. Reconciliation checks and tests use it to prove the
// rendering is lossless.
type ParsedTransaction struct {
	EndToEndId       string
	Amount           string
	SequenceType     string
	DebtorName       string
	DebtorIban       string
	DebtorBic        string
	MandateReference string
	SignatureDate    string
	Purpose          string
}

func ParsePain008(data []byte) (msgId string, txs []ParsedTransaction, err error) {
	var doc pain008Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", nil, err
	}
	for _, pmtInf := range doc.CstmrDrctDbtInitn.PmtInf {
		for _, t := range pmtInf.DrctDbtTxInf {
			parsed := ParsedTransaction{
				EndToEndId:       t.PmtId.EndToEndId,
				Amount:           t.InstdAmt.Value,
				SequenceType:     pmtInf.PmtTpInf.SeqTp,
				DebtorName:       t.Dbtr.Nm,
				DebtorIban:       t.DbtrAcct.Id.IBAN,
				DebtorBic:        t.DbtrAgt.FinInstnId.BIC,
				MandateReference: t.DrctDbtTx.MndtRltdInf.MndtId,
				SignatureDate:    t.DrctDbtTx.MndtRltdInf.DtOfSgntr,
			}
			if t.RmtInf != nil {
				parsed.Purpose = t.RmtInf.Ustrd
			}
			txs = append(txs, parsed)
		}
	}
	return doc.CstmrDrctDbtInitn.GrpHdr.MsgId, txs, nil
}
