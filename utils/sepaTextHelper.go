package utils

import "strings"

// The EPC "best practices" character set for SEPA text fields.
// Banks silently drop or reject files containing anything else, so we
// transliterate umlauts and replace everything unknown with a space before
// the XML layer ever sees the text.
var sepaTransliterations = map[rune]string{
	'Ä': "Ae", 'Ö': "Oe", 'Ü': "Ue",
	'ä': "ae", 'ö': "oe", 'ü': "ue",
	'ß': "ss",
	'À': "A", 'Á': "A", 'Â': "A", 'Ã': "A", 'Å': "A",
	'È': "E", 'É': "E", 'Ê': "E", 'Ë': "E",
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'å': "a",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'Ç': "C", 'ç': "c",
	'Ñ': "N", 'ñ': "n",
	'Ø': "O", 'ø': "o",
}

func isSepaChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '/', '-', '?', ':', '(', ')', '.', ',', '\'', '+', ' ':
		return true
	}
	return false
}

// SepaText transliterates s into the SEPA-allowed character set and cuts it
// to maxLen runes. Collapses runs of whitespace produced by replacements.
func SepaText(s string, maxLen int) string {
	var sb strings.Builder
	for _, r := range s {
		if rep, ok := sepaTransliterations[r]; ok {
			sb.WriteString(rep)
			continue
		}
		if isSepaChar(r) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(' ')
	}
	out := strings.Join(strings.Fields(sb.String()), " ")
	runes := []rune(out)
	if len(runes) > maxLen {
		out = strings.TrimSpace(string(runes[:maxLen]))
	}
	return out
}
