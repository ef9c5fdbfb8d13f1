package expr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOperator
	tokLParen
	tokRParen
	tokQuestion
	tokColon
)

type token struct {
	kind tokenKind
	text string // testo dell'operatore/identificatore o valore della stringa
	pos  int
}

// operatori ordinati dal più lungo al più corto
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||",
	"<", ">", "+", "-", "*", "/", "%", "!",
}

// SyntaxError segnala un errore di sintassi con la posizione (in byte)
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Msg)
}

// lex trasforma l'espressione in token
func lex(src string) ([]token, error) {
	tokens := []token{}
	i := 0

	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])

		switch {
		case unicode.IsSpace(r):
			i += size

		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == '?':
			tokens = append(tokens, token{kind: tokQuestion, text: "?", pos: i})
			i++
		case r == ':':
			tokens = append(tokens, token{kind: tokColon, text: ":", pos: i})
			i++

		case r == '"' || r == '\'':
			value, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: value, pos: i})
			i = next

		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(rune(src[i+1]))):
			next := lexNumber(src, i)
			tokens = append(tokens, token{kind: tokNumber, text: src[i:next], pos: i})
			i = next

		case isIdentStart(r):
			start := i
			for i < len(src) {
				r, size = utf8.DecodeRuneInString(src[i:])
				if !isIdentPart(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], pos: start})

		default:
			op := matchOperator(src[i:])
			if op == "" {
				if r == '=' {
					return nil, &SyntaxError{Pos: i, Msg: "assignment is not allowed in expressions"}
				}
				return nil, &SyntaxError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", r)}
			}
			tokens = append(tokens, token{kind: tokOperator, text: op, pos: i})
			i += len(op)
		}
	}

	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

// lexString legge una stringa tra apici singoli o doppi con escape di base
func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var sb strings.Builder
	i := start + 1

	for i < len(src) {
		c := src[i]
		switch {
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, &SyntaxError{Pos: i, Msg: "unterminated escape"}
			}
			switch esc := src[i+1]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(esc)
			}
			i += 2
		case c == quote:
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(c)
			i++
		}
	}

	return "", 0, &SyntaxError{Pos: start, Msg: "unterminated string"}
}

// lexNumber consuma un numero decimale (con esponente) o esadecimale
func lexNumber(src string, start int) int {
	i := start
	if strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X") {
		i += 2
		for i < len(src) && isHexDigit(src[i]) {
			i++
		}
		return i
	}

	for i < len(src) && isDigit(rune(src[i])) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(rune(src[i])) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(rune(src[j])) {
			i = j
			for i < len(src) && isDigit(rune(src[i])) {
				i++
			}
		}
	}
	return i
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(rune(c)) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// IsIdentifier verifica che il nome sia un identificatore valido e non riservato
func IsIdentifier(name string) bool {
	if name == "" || isKeyword(name) {
		return false
	}
	for i, r := range name {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}

func isKeyword(name string) bool {
	return name == "true" || name == "false"
}
