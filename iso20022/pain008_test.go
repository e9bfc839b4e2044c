package iso20022

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"bitbucket.org/dojoworks/dojo_backend/models"
	"github.com/shopspring/decimal"
)

func eur(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCreditor() *models.CreditorProfile {
	return &models.CreditorProfile{
		TenantId:     "dojo-1",
		CreditorName: "Budo Club e.V.",
		CreditorIban: "DE89370400440532013000",
		CreditorBic:  "COBADEFFXXX",
		CreditorId:   "DE98ZZZ09999999999",
	}
}

func testTransaction(n int, seqType models.SequenceType, amount string) models.SepaTransaction {
	return models.SepaTransaction{
		EndToEndId:       models.FormatEndToEndId("DD-20260301-000001", n),
		Amount:           eur(amount),
		SequenceType:     seqType,
		DebtorName:       "Anna Mueller",
		DebtorIban:       "DE02120300000000202051",
		DebtorBic:        "BYLADEM1001",
		MandateReference: "DM-DOJO1-000001",
		SignatureDate:    time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC),
		PurposeText:      "Monatsbeitrag 2026-03",
	}
}

func testBatch(txs ...models.SepaTransaction) *models.SepaBatch {
	b := &models.SepaBatch{
		TenantId:       "dojo-1",
		BatchReference: "DD-20260301-000001",
		ExecutionDate:  time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC),
		Status:         models.BatchStatusCreated,
		Transactions:   txs,
		CreatedAt:      time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC),
	}
	b.RecomputeTotals()
	return b
}

func TestRenderPain008_Deterministic(t *testing.T) {
	batch := testBatch(
		testTransaction(1, models.SequenceTypeFirst, "49.00"),
		testTransaction(2, models.SequenceTypeRecurring, "89.00"),
	)
	first, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	second, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same batch must render byte-identical XML")
	}
}

func TestRenderPain008_HeaderAndNamespace(t *testing.T) {
	batch := testBatch(testTransaction(1, models.SequenceTypeFirst, "49.00"))
	out, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>") {
		t.Error("missing XML declaration")
	}
	for _, want := range []string{
		Pain008Namespace,
		"<MsgId>DD-20260301-000001</MsgId>",
		"<CreDtTm>2026-03-02T09:30:00</CreDtTm>",
		"<NbOfTxs>1</NbOfTxs>",
		"<CtrlSum>49.00</CtrlSum>",
		"<ChrgBr>SLEV</ChrgBr>",
		"<ReqdColltnDt>2026-03-09</ReqdColltnDt>",
		"<Id>DE98ZZZ09999999999</Id>",
		"<Prtry>SEPA</Prtry>",
		"<Cd>CORE</Cd>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderPain008_MixedSequenceTypesSplitIntoPmtInfBlocks(t *testing.T) {
	batch := testBatch(
		testTransaction(1, models.SequenceTypeRecurring, "89.00"),
		testTransaction(2, models.SequenceTypeFirst, "49.00"),
	)
	out, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)

	if got := strings.Count(s, "<PmtInf>"); got != 2 {
		t.Fatalf("PmtInf blocks = %d, want 2", got)
	}
	frst := strings.Index(s, "<SeqTp>FRST</SeqTp>")
	rcur := strings.Index(s, "<SeqTp>RCUR</SeqTp>")
	if frst == -1 || rcur == -1 || frst > rcur {
		t.Fatalf("expected FRST block before RCUR block (frst=%d rcur=%d)", frst, rcur)
	}
	// Group header carries the full control sum; each block its own.
	if !strings.Contains(s, "<CtrlSum>138.00</CtrlSum>") {
		t.Error("missing group control sum 138.00")
	}
	if !strings.Contains(s, "<CtrlSum>49.00</CtrlSum>") || !strings.Contains(s, "<CtrlSum>89.00</CtrlSum>") {
		t.Error("missing per-block control sums")
	}
}

func TestRenderPain008_SingleSequenceTypeYieldsSingleBlock(t *testing.T) {
	batch := testBatch(
		testTransaction(1, models.SequenceTypeRecurring, "89.00"),
		testTransaction(2, models.SequenceTypeRecurring, "59.00"),
	)
	out, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if got := strings.Count(s, "<PmtInf>"); got != 1 {
		t.Fatalf("PmtInf blocks = %d, want 1", got)
	}
	if strings.Contains(s, "FRST") {
		t.Error("pure RCUR batch must not mention FRST")
	}
}

func TestRenderPain008_EscapesXmlMetacharacters(t *testing.T) {
	tx := testTransaction(1, models.SequenceTypeFirst, "49.00")
	tx.DebtorName = "Sport & Budo <Verein>"
	batch := testBatch(tx)

	out, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "Sport &amp; Budo &lt;Verein&gt;") {
		t.Fatal("metacharacters must be escaped")
	}

	_, parsed, err := ParsePain008(out)
	if err != nil {
		t.Fatal(err)
	}
	if parsed[0].DebtorName != "Sport & Budo <Verein>" {
		t.Fatalf("round trip lost the name: %q", parsed[0].DebtorName)
	}
}

func TestRenderPain008_MissingBicFallsBackToNotProvided(t *testing.T) {
	tx := testTransaction(1, models.SequenceTypeFirst, "49.00")
	tx.DebtorBic = ""
	batch := testBatch(tx)

	out, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, "<Id>NOTPROVIDED</Id>") {
		t.Fatal("IBAN-only debtor must carry the NOTPROVIDED agent id")
	}
	if strings.Contains(s, "<BIC></BIC>") {
		t.Fatal("must not emit an empty BIC element")
	}
}

func TestRenderPain008_RoundTrip(t *testing.T) {
	batch := testBatch(
		testTransaction(1, models.SequenceTypeFirst, "49.00"),
		testTransaction(2, models.SequenceTypeRecurring, "89.00"),
	)
	out, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}

	msgId, parsed, err := ParsePain008(out)
	if err != nil {
		t.Fatal(err)
	}
	if msgId != batch.BatchReference {
		t.Fatalf("msgId = %q, want %q", msgId, batch.BatchReference)
	}
	if len(parsed) != 2 {
		t.Fatalf("parsed %d transactions, want 2", len(parsed))
	}
	// FRST block is serialized first.
	if parsed[0].SequenceType != "FRST" || parsed[1].SequenceType != "RCUR" {
		t.Fatalf("sequence types = %s, %s", parsed[0].SequenceType, parsed[1].SequenceType)
	}
	if parsed[0].Amount != "49.00" || parsed[1].Amount != "89.00" {
		t.Fatalf("amounts = %s, %s", parsed[0].Amount, parsed[1].Amount)
	}
	if parsed[0].MandateReference != "DM-DOJO1-000001" {
		t.Fatalf("mandate reference = %q", parsed[0].MandateReference)
	}
	if parsed[0].SignatureDate != "2025-11-12" {
		t.Fatalf("signature date = %q", parsed[0].SignatureDate)
	}
	if parsed[0].Purpose != "Monatsbeitrag 2026-03" {
		t.Fatalf("purpose = %q", parsed[0].Purpose)
	}
}

func TestRenderPain008_IncompleteSnapshotFails(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*models.SepaTransaction)
	}{
		{"debtor_iban", func(tx *models.SepaTransaction) { tx.DebtorIban = "" }},
		{"debtor_name", func(tx *models.SepaTransaction) { tx.DebtorName = "" }},
		{"mandate_reference", func(tx *models.SepaTransaction) { tx.MandateReference = "" }},
		{"end_to_end_id", func(tx *models.SepaTransaction) { tx.EndToEndId = "" }},
		{"signature_date", func(tx *models.SepaTransaction) { tx.SignatureDate = time.Time{} }},
		{"amount", func(tx *models.SepaTransaction) { tx.Amount = decimal.Zero }},
	}
	for _, tc := range cases {
		tx := testTransaction(1, models.SequenceTypeFirst, "49.00")
		tc.mutate(&tx)
		batch := testBatch(tx)

		_, err := RenderPain008(batch, testCreditor())
		if err == nil {
			t.Errorf("%s: expected serialization error", tc.field)
			continue
		}
		var sErr *SerializationError
		if !errors.As(err, &sErr) {
			t.Errorf("%s: error type %T, want *SerializationError", tc.field, err)
			continue
		}
		if sErr.Field != tc.field {
			t.Errorf("field = %q, want %q", sErr.Field, tc.field)
		}
	}
}

func TestRenderPain008_MissingCreditorDataFails(t *testing.T) {
	batch := testBatch(testTransaction(1, models.SequenceTypeFirst, "49.00"))

	if _, err := RenderPain008(batch, nil); err == nil {
		t.Fatal("nil creditor must fail")
	}
	c := testCreditor()
	c.CreditorId = ""
	_, err := RenderPain008(batch, c)
	var sErr *SerializationError
	if !errors.As(err, &sErr) || sErr.Field != "creditor_id" {
		t.Fatalf("expected creditor_id serialization error, got %v", err)
	}
}

func TestRenderPain008_OmitsEmptyRemittanceInfo(t *testing.T) {
	tx := testTransaction(1, models.SequenceTypeFirst, "49.00")
	tx.PurposeText = ""
	batch := testBatch(tx)

	out, err := RenderPain008(batch, testCreditor())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "<RmtInf>") {
		t.Fatal("empty purpose must omit RmtInf entirely")
	}
}
