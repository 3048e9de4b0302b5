package gate

import "regexp"

// RedactionMask replaces recognized sensitive substrings in outbound text.
const RedactionMask = "[REDACTED]"

// Patterns for Brazilian tax and fiscal document numbers. Formatted variants
// are matched before bare digit runs so the mask covers the whole token.
var sensitivePatterns = []*regexp.Regexp{
	// NF-e access key: 44 digits, optionally space-grouped in fours.
	regexp.MustCompile(`\b\d{4}(?: ?\d{4}){10}\b`),
	// CNPJ: 00.000.000/0000-00
	regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`),
	// CPF: 000.000.000-00
	regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`),
	// Bare CNPJ (14 digits) and bare CPF (11 digits).
	regexp.MustCompile(`\b\d{14}\b`),
	regexp.MustCompile(`\b\d{11}\b`),
}

// RedactSensitiveData masks tax IDs and fiscal document numbers. The original
// substring never appears in the output.
func RedactSensitiveData(text string) string {
	for _, p := range sensitivePatterns {
		text = p.ReplaceAllString(text, RedactionMask)
	}
	return text
}
