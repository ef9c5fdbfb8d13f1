package variables

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Kind identifica il tipo di un Value
type Kind uint8

const (
	Undefined Kind = iota
	Number
	Bool
	String
)

// String restituisce il nome del tipo
func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case String:
		return "string"
	default:
		return "undefined"
	}
}

// Value è uno scalare tipizzato: numero, booleano, stringa oppure undefined.
// Lo zero value è Undefined.
type Value struct {
	kind Kind
	num  float64
	b    bool
	str  string
}

// NumberValue crea un valore numerico
func NumberValue(f float64) Value { return Value{kind: Number, num: f} }

// BoolValue crea un valore booleano
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// StringValue crea un valore stringa
func StringValue(s string) Value { return Value{kind: String, str: s} }

// Kind restituisce il tipo del valore
func (v Value) Kind() Kind { return v.kind }

// IsUndefined verifica se il valore è assente
func (v Value) IsUndefined() bool { return v.kind == Undefined }

// AsNumber restituisce il numero se il valore è di tipo Number
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == Number }

// AsBool restituisce il booleano se il valore è di tipo Bool
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == Bool }

// AsString restituisce la stringa se il valore è di tipo String
func (v Value) AsString() (string, bool) { return v.str, v.kind == String }

// Truthy applica la truthiness standard: false, 0, NaN, "" e undefined sono falsi
func (v Value) Truthy() bool {
	switch v.kind {
	case Number:
		return v.num != 0 && !math.IsNaN(v.num)
	case Bool:
		return v.b
	case String:
		return v.str != ""
	default:
		return false
	}
}

// ToNumber converte il valore in numero (booleani 0/1, stringhe numeriche).
// La stringa vuota vale 0.
func (v Value) ToNumber() (float64, bool) {
	switch v.kind {
	case Number:
		return v.num, true
	case Bool:
		if v.b {
			return 1, true
		}
		return 0, true
	case String:
		trimmed := strings.TrimSpace(v.str)
		if trimmed == "" {
			return 0, true
		}
		return parseNumber(trimmed)
	default:
		return 0, false
	}
}

// StrictEqual confronta tipo e valore
func (v Value) StrictEqual(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case Number:
		return v.num == other.num
	case Bool:
		return v.b == other.b
	case String:
		return v.str == other.str
	default:
		return true
	}
}

// LooseEqual confronta con coercizione: numero contro stringa numerica,
// booleani come 0/1. Undefined è uguale solo a undefined.
func (v Value) LooseEqual(other Value) bool {
	if v.kind == other.kind {
		return v.StrictEqual(other)
	}
	if v.kind == Undefined || other.kind == Undefined {
		return false
	}
	a, aok := v.ToNumber()
	b, bok := other.ToNumber()
	return aok && bok && a == b
}

// String formatta il valore per la visualizzazione (es. riepilogo variabili)
func (v Value) String() string {
	switch v.kind {
	case Number:
		return FormatNumber(v.num)
	case Bool:
		return strconv.FormatBool(v.b)
	case String:
		return v.str
	default:
		return "undefined"
	}
}

// GoString aiuta il debug nei test
func (v Value) GoString() string {
	if v.kind == String {
		return fmt.Sprintf("%s(%q)", v.kind, v.str)
	}
	return fmt.Sprintf("%s(%s)", v.kind, v.String())
}

// Interface restituisce il valore come tipo Go nativo (nil per undefined)
func (v Value) Interface() interface{} {
	switch v.kind {
	case Number:
		return v.num
	case Bool:
		return v.b
	case String:
		return v.str
	default:
		return nil
	}
}

// FromInterface converte un valore Go nativo in Value
func FromInterface(raw interface{}) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case float64:
		return NumberValue(x), nil
	case float32:
		return NumberValue(float64(x)), nil
	case int:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return NumberValue(f), nil
	case bool:
		return BoolValue(x), nil
	case string:
		return StringValue(x), nil
	default:
		return Value{}, fmt.Errorf("unsupported variable value of type %T", raw)
	}
}

// MarshalJSON serializza lo scalare (undefined diventa null)
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == Number && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accetta numeri, booleani, stringhe e null
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FormatNumber formatta un numero come farebbe il player: interi senza decimali
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || (abs != 0 && abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseNumber riconosce testo numerico: decimali, esponenti e prefissi 0x/0o/0b
func parseNumber(s string) (float64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		if n, err := strconv.ParseInt(s, 0, 64); err == nil && !strings.Contains(s, "_") {
			return float64(n), true
		}
	}
	return 0, false
}
