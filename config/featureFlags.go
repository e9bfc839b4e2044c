package config

import (
	"os"
	"strings"
)

// RequireDebtorBic forces a BIC on every mandate even for IBAN-only countries.
// Some banks still reject IBAN-only collections; enable per deployment.
//
// Set via env:
// - SEPA_REQUIRE_DEBTOR_BIC=true
func RequireDebtorBic() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SEPA_REQUIRE_DEBTOR_BIC")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DisableXmlCache forces re-rendering of the pain.008 file on every download
// instead of serving the bytes cached at first export. Rendering is
// deterministic, so both paths return identical bytes.
//
// Set via env:
// - SEPA_DISABLE_XML_CACHE=true
func DisableXmlCache() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SEPA_DISABLE_XML_CACHE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
