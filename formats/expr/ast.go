package expr

import (
	"errors"
	"fmt"
	"math"

	"bild-story/variables"
)

var (
	// ErrDivisionByZero è restituito da "/" e "%" con divisore zero
	ErrDivisionByZero = errors.New("division by zero")
)

// UnknownIdentifierError segnala un nome non presente nello store
type UnknownIdentifierError struct {
	Name string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("%s is not defined", e.Name)
}

// FallbackError accompagna un effetto non valutato: la variabile riceve
// il testo grezzo come letterale
type FallbackError struct {
	Name     string
	Fallback variables.Value
	Err      error
}

func (e *FallbackError) Error() string {
	if errors.Is(e.Err, ErrDivisionByZero) {
		return fmt.Sprintf("%s: division by zero, %s set to the literal text %q instead of a number",
			e.Name, e.Name, e.Fallback.String())
	}
	return fmt.Sprintf("%s: %v, %s set to the literal %s %q",
		e.Name, e.Err, e.Name, e.Fallback.Kind(), e.Fallback.String())
}

func (e *FallbackError) Unwrap() error { return e.Err }

// TypeError segnala un operando non convertibile
type TypeError struct {
	Op    string
	Value variables.Value
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("operator %s: %s %q is not a number", e.Op, e.Value.Kind(), e.Value.String())
}

type node interface {
	eval(store *variables.Store) (variables.Value, error)
}

type literal struct {
	v variables.Value
}

func (n *literal) eval(*variables.Store) (variables.Value, error) { return n.v, nil }

type ident struct {
	name string
}

func (n *ident) eval(store *variables.Store) (variables.Value, error) {
	v, ok := store.Get(n.name)
	if !ok {
		return variables.Value{}, &UnknownIdentifierError{Name: n.name}
	}
	return v, nil
}

type unary struct {
	op string
	x  node
}

func (n *unary) eval(store *variables.Store) (variables.Value, error) {
	v, err := n.x.eval(store)
	if err != nil {
		return variables.Value{}, err
	}

	switch n.op {
	case "!":
		return variables.BoolValue(!v.Truthy()), nil
	case "-":
		num, err := numeric(n.op, v)
		if err != nil {
			return variables.Value{}, err
		}
		return variables.NumberValue(-num), nil
	default:
		num, err := numeric(n.op, v)
		if err != nil {
			return variables.Value{}, err
		}
		return variables.NumberValue(num), nil
	}
}

// logical implementa && e || con cortocircuito: restituisce l'operando decisivo
type logical struct {
	op   string
	l, r node
}

func (n *logical) eval(store *variables.Store) (variables.Value, error) {
	left, err := n.l.eval(store)
	if err != nil {
		return variables.Value{}, err
	}
	if n.op == "&&" && !left.Truthy() {
		return left, nil
	}
	if n.op == "||" && left.Truthy() {
		return left, nil
	}
	return n.r.eval(store)
}

type conditional struct {
	cond, then, els node
}

func (n *conditional) eval(store *variables.Store) (variables.Value, error) {
	c, err := n.cond.eval(store)
	if err != nil {
		return variables.Value{}, err
	}
	if c.Truthy() {
		return n.then.eval(store)
	}
	return n.els.eval(store)
}

type binary struct {
	op   string
	l, r node
}

func (n *binary) eval(store *variables.Store) (variables.Value, error) {
	left, err := n.l.eval(store)
	if err != nil {
		return variables.Value{}, err
	}
	right, err := n.r.eval(store)
	if err != nil {
		return variables.Value{}, err
	}

	switch n.op {
	case "==":
		return variables.BoolValue(left.LooseEqual(right)), nil
	case "!=":
		return variables.BoolValue(!left.LooseEqual(right)), nil
	case "===":
		return variables.BoolValue(left.StrictEqual(right)), nil
	case "!==":
		return variables.BoolValue(!left.StrictEqual(right)), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, left, right)
	case "+":
		if left.Kind() == variables.String || right.Kind() == variables.String {
			if left.IsUndefined() || right.IsUndefined() {
				return variables.Value{}, fmt.Errorf("operator +: cannot concatenate undefined")
			}
			return variables.StringValue(left.String() + right.String()), nil
		}
	}

	a, err := numeric(n.op, left)
	if err != nil {
		return variables.Value{}, err
	}
	b, err := numeric(n.op, right)
	if err != nil {
		return variables.Value{}, err
	}

	switch n.op {
	case "+":
		return variables.NumberValue(a + b), nil
	case "-":
		return variables.NumberValue(a - b), nil
	case "*":
		return variables.NumberValue(a * b), nil
	case "/":
		if b == 0 {
			return variables.Value{}, ErrDivisionByZero
		}
		return variables.NumberValue(a / b), nil
	case "%":
		if b == 0 {
			return variables.Value{}, ErrDivisionByZero
		}
		return variables.NumberValue(math.Mod(a, b)), nil
	default:
		return variables.Value{}, fmt.Errorf("unknown operator %s", n.op)
	}
}

// compare confronta stringhe in ordine lessicografico, tutto il resto come numeri
func compare(op string, left, right variables.Value) (variables.Value, error) {
	if ls, ok := left.AsString(); ok {
		if rs, ok := right.AsString(); ok {
			var result bool
			switch op {
			case "<":
				result = ls < rs
			case "<=":
				result = ls <= rs
			case ">":
				result = ls > rs
			default:
				result = ls >= rs
			}
			return variables.BoolValue(result), nil
		}
	}

	a, err := numeric(op, left)
	if err != nil {
		return variables.Value{}, err
	}
	b, err := numeric(op, right)
	if err != nil {
		return variables.Value{}, err
	}

	var result bool
	switch op {
	case "<":
		result = a < b
	case "<=":
		result = a <= b
	case ">":
		result = a > b
	default:
		result = a >= b
	}
	return variables.BoolValue(result), nil
}

func numeric(op string, v variables.Value) (float64, error) {
	num, ok := v.ToNumber()
	if !ok {
		return 0, &TypeError{Op: op, Value: v}
	}
	return num, nil
}
