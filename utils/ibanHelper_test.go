package utils

import "testing"

func TestValidateIban_AcceptsRegistryExamples(t *testing.T) {
	valid := []string{
		"DE89370400440532013000",
		"FR1420041010050500013M02606",
		"GB82WEST12345698765432",
		"NL91ABNA0417164300",
		"AT611904300234573201",
	}
	for _, iban := range valid {
		if reason, err := ValidateIban(iban); err != nil {
			t.Errorf("iban %s: expected valid, got reason=%s err=%v", iban, reason, err)
		}
	}
}

func TestValidateIban_NormalizesSpacingAndCase(t *testing.T) {
	if reason, err := ValidateIban("de89 3704 0044 0532 0130 00"); err != nil {
		t.Fatalf("expected pasted-from-statement iban to validate, got reason=%s err=%v", reason, err)
	}
	if got := NormalizeIban(" de89 3704 0044 0532 0130 00 "); got != "DE89370400440532013000" {
		t.Fatalf("NormalizeIban = %q", got)
	}
}

func TestValidateIban_ChecksumMismatch(t *testing.T) {
	// Last digit flipped on an otherwise well-formed German IBAN.
	reason, err := ValidateIban("DE89370400440532013001")
	if err == nil {
		t.Fatal("expected checksum error")
	}
	if reason != IbanReasonChecksumMismatch {
		t.Fatalf("reason = %q, want %q", reason, IbanReasonChecksumMismatch)
	}
}

func TestValidateIban_StructuralRejections(t *testing.T) {
	cases := []string{
		"",
		"DE89",
		"DE8937040044053201300",    // one short for DE
		"DE893704004405320130001",  // one long for DE
		"XX89370400440532013000",   // unknown country
		"DE89 3704!0044 0532 0130", // illegal character survives normalization
	}
	for _, iban := range cases {
		reason, err := ValidateIban(iban)
		if err == nil {
			t.Errorf("iban %q: expected rejection", iban)
			continue
		}
		if reason != IbanReasonInvalidFormat {
			t.Errorf("iban %q: reason = %q, want %q", iban, reason, IbanReasonInvalidFormat)
		}
	}
}

func TestValidateBic(t *testing.T) {
	for _, bic := range []string{"COBADEFF", "COBADEFFXXX", "BYLADEM1001", "cobadeff"} {
		if err := ValidateBic(bic); err != nil {
			t.Errorf("bic %q: expected valid, got %v", bic, err)
		}
	}
	for _, bic := range []string{"", "COBADEF", "COBADEFFXX", "1234DEFF", "COBADEFFXXXX"} {
		if err := ValidateBic(bic); err == nil {
			t.Errorf("bic %q: expected rejection", bic)
		}
	}
}
