package expr

import "strings"

// Assignment è una coppia "nome = espressione" estratta da una lista di effetti
type Assignment struct {
	Name  string
	Value string
}

// SplitEffects divide una lista di effetti in assegnazioni.
// Le parti senza "=" o con un nome non valido vengono scartate.
func SplitEffects(effects string) []Assignment {
	out := []Assignment{}
	for _, part := range splitEffectParts(effects) {
		name, value, ok := splitAssignment(part)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if !IsIdentifier(name) {
			continue
		}
		out = append(out, Assignment{Name: name, Value: strings.TrimSpace(value)})
	}
	return out
}

// splitEffectParts divide gli effetti sulle virgole di primo livello.
// Se una parentesi o una stringa resta aperta, la divisione riparte da
// tutte le virgole: ogni assegnazione degrada da sola invece di inglobare
// quelle successive.
func splitEffectParts(effects string) []string {
	parts, balanced := splitTopLevel(effects, ',')
	if balanced {
		return parts
	}

	merged := []string{}
	for _, piece := range strings.Split(effects, ",") {
		// un pezzo che non inizia con "nome =" continua l'assegnazione precedente
		if len(merged) > 0 && !startsAssignment(piece) {
			merged[len(merged)-1] += "," + piece
			continue
		}
		merged = append(merged, piece)
	}
	return merged
}

func startsAssignment(piece string) bool {
	name, _, ok := splitAssignment(piece)
	return ok && IsIdentifier(strings.TrimSpace(name))
}

// splitTopLevel divide per separatore ma rispetta stringhe e parentesi.
// balanced è false se al termine una stringa o una parentesi è ancora aperta.
func splitTopLevel(content string, sep byte) (parts []string, balanced bool) {
	result := []string{}
	start := 0
	depth := 0
	var quote byte
	escapeNext := false

	for i := 0; i < len(content); i++ {
		char := content[i]

		// Gestione escape dentro le stringhe
		if escapeNext {
			escapeNext = false
			continue
		}
		if quote != 0 {
			switch char {
			case '\\':
				escapeNext = true
			case quote:
				quote = 0
			}
			continue
		}

		switch {
		case char == '"' || char == '\'':
			quote = char
		case char == '(':
			depth++
		case char == ')':
			if depth > 0 {
				depth--
			}
		case char == sep && depth == 0:
			result = append(result, content[start:i])
			start = i + 1
		}
	}

	return append(result, content[start:]), depth == 0 && quote == 0
}

// splitAssignment trova il primo "=" che non fa parte di ==, !=, <=, >=
func splitAssignment(part string) (string, string, bool) {
	var quote byte
	for i := 0; i < len(part); i++ {
		c := part[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			continue
		}
		if c != '=' {
			continue
		}
		if i+1 < len(part) && part[i+1] == '=' {
			return "", "", false
		}
		if i > 0 && strings.ContainsRune("=!<>", rune(part[i-1])) {
			return "", "", false
		}
		return part[:i], part[i+1:], true
	}
	return "", "", false
}
