package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// IBAN validation reasons. Callers map these onto their error taxonomy.
const (
	IbanReasonInvalidFormat    = "InvalidFormat"
	IbanReasonChecksumMismatch = "ChecksumMismatch"
)

// ibanLengths lists the official IBAN length per country code.
// Source: SWIFT IBAN registry. Countries we don't collect from are still
// accepted here; eligibility for SEPA collection is a business rule, not a
// format rule.
var ibanLengths = map[string]int{
	"AD": 24, "AE": 23, "AL": 28, "AT": 20, "AZ": 28, "BA": 20, "BE": 16,
	"BG": 22, "BH": 22, "BR": 29, "CH": 21, "CR": 22, "CY": 28, "CZ": 24,
	"DE": 22, "DK": 18, "DO": 28, "EE": 20, "ES": 24, "FI": 18, "FO": 18,
	"FR": 27, "GB": 22, "GE": 22, "GI": 23, "GL": 18, "GR": 27, "GT": 28,
	"HR": 21, "HU": 28, "IE": 22, "IL": 23, "IS": 26, "IT": 27, "JO": 30,
	"KW": 30, "KZ": 20, "LB": 28, "LI": 21, "LT": 20, "LU": 20, "LV": 21,
	"MC": 27, "MD": 24, "ME": 22, "MK": 19, "MR": 27, "MT": 31, "MU": 30,
	"NL": 18, "NO": 15, "PK": 24, "PL": 28, "PS": 29, "PT": 25, "QA": 29,
	"RO": 24, "RS": 22, "SA": 24, "SE": 24, "SI": 19, "SK": 24, "SM": 27,
	"TN": 24, "TR": 26, "VG": 24, "XK": 20,
}

var (
	ibanCharset = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]+$`)
	bicPattern  = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

	mod97Big = big.NewInt(97)
)

// NormalizeIban strips spaces and upper-cases, the form users paste from
// bank statements ("DE89 3704 0044 ...").
func NormalizeIban(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

// ValidateIban performs the structural check (country code + length table)
// followed by the ISO 7064 mod-97 checksum. The returned reason is one of the
// IbanReason* constants; a nil error means the IBAN is valid.
func ValidateIban(iban string) (string, error) {
	iban = NormalizeIban(iban)

	if len(iban) < 4 || !ibanCharset.MatchString(iban) {
		return IbanReasonInvalidFormat, fmt.Errorf("iban %q: invalid characters or too short", iban)
	}
	country := iban[:2]
	wantLen, ok := ibanLengths[country]
	if !ok {
		return IbanReasonInvalidFormat, fmt.Errorf("iban %q: unknown country code %s", iban, country)
	}
	if len(iban) != wantLen {
		return IbanReasonInvalidFormat, fmt.Errorf("iban %q: length %d, want %d for %s", iban, len(iban), wantLen, country)
	}

	// Move the first four characters to the end, expand letters (A=10..Z=35)
	// and check the resulting numeral mod 97 == 1.
	rearranged := iban[4:] + iban[:4]
	var sb strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			sb.WriteString(fmt.Sprintf("%d", r-'A'+10))
		} else {
			sb.WriteRune(r)
		}
	}
	n, ok := new(big.Int).SetString(sb.String(), 10)
	if !ok {
		return IbanReasonInvalidFormat, fmt.Errorf("iban %q: not numeric after expansion", iban)
	}
	if new(big.Int).Mod(n, mod97Big).Int64() != 1 {
		return IbanReasonChecksumMismatch, fmt.Errorf("iban %q: mod-97 checksum mismatch", iban)
	}
	return "", nil
}

// ValidateBic checks the ISO 9362 structure (8 or 11 characters).
// BIC is optional for most SEPA countries since IBAN-only; when present it
// must still be well-formed.
func ValidateBic(bic string) error {
	bic = strings.ToUpper(strings.TrimSpace(bic))
	if !bicPattern.MatchString(bic) {
		return fmt.Errorf("bic %q: must be 8 or 11 characters, [A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?", bic)
	}
	return nil
}
