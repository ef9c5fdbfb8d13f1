package variables

import "strings"

// ============================================
// COERCIZIONE LITERAL
// ============================================

// ParseValue converte il testo grezzo scritto dall'autore in uno scalare:
//   - ""                 -> stringa vuota
//   - "42", "3.5", "0x1f" -> numero
//   - "true" / "false"   -> booleano
//   - "'ciao'" / "\"ciao\"" -> ciao (un solo strato di virgolette uguali)
//
// Tutto il resto torna come testo (già trimmato).
func ParseValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StringValue("")
	}
	if num, ok := parseNumber(trimmed); ok {
		return NumberValue(num)
	}
	switch trimmed {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	return StringValue(stripQuotes(trimmed))
}

// stripQuotes rimuove una coppia di virgolette corrispondenti attorno al testo
func stripQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
