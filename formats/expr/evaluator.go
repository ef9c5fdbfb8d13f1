package expr

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bild-story/formats"
	"bild-story/variables"
)

// Evaluator implementa il dialetto "bild": una grammatica chiusa di
// letterali, operatori e variabili dello store. Non esistono chiamate,
// accessi a membri o istruzioni.
type Evaluator struct {
	report formats.Reporter
	logger *zap.Logger
}

// Option configura un Evaluator
type Option func(*Evaluator)

// WithReporter imposta il destinatario delle diagnostiche
func WithReporter(report formats.Reporter) Option {
	return func(e *Evaluator) { e.report = report }
}

// WithLogger imposta il logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New crea un nuovo evaluator
func New(opts ...Option) *Evaluator {
	e := &Evaluator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name restituisce il nome del dialetto
func (e *Evaluator) Name() string {
	return formats.DefaultDialect
}

// Evaluate valuta un'espressione sullo store
func (e *Evaluator) Evaluate(expression string, store *variables.Store) (variables.Value, error) {
	program, err := Compile(expression)
	if err != nil {
		return variables.Value{}, err
	}
	return program.Eval(store)
}

// ============================================
// CONDIZIONI
// ============================================

// EvaluateCondition valuta la condizione di un choice.
// Vuota (o solo spazi) è sempre vera; qualsiasi errore la rende falsa.
func (e *Evaluator) EvaluateCondition(expression string, store *variables.Store) bool {
	if strings.TrimSpace(expression) == "" {
		return true
	}

	value, err := e.Evaluate(expression, store)
	if err != nil {
		e.fail(formats.KindCondition, expression, err)
		return false
	}
	return value.Truthy()
}

// ============================================
// EFFETTI
// ============================================

// ApplyEffects applica le assegnazioni in sequenza su una copia dello store.
// Ogni lato destro vede le assegnazioni precedenti; se la valutazione
// fallisce, il testo grezzo passa per variables.ParseValue.
func (e *Evaluator) ApplyEffects(effects string, store *variables.Store) *variables.Store {
	next := store.Clone()
	if strings.TrimSpace(effects) == "" {
		return next
	}

	for _, assignment := range SplitEffects(effects) {
		value, err := e.Evaluate(assignment.Value, next)
		if err != nil {
			value = variables.ParseValue(assignment.Value)
			e.fail(formats.KindEffect, assignment.Name+" = "+assignment.Value,
				&FallbackError{Name: assignment.Name, Fallback: value, Err: err})
		}
		next.Set(assignment.Name, value)
	}

	return next
}

// ============================================
// VERIFICA SINTASSI
// ============================================

// Check verifica la sintassi di una condizione (vuota = valida)
func (e *Evaluator) Check(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	_, err := Compile(expression)
	return err
}

// CheckEffects verifica ogni assegnazione di una lista di effetti
func (e *Evaluator) CheckEffects(effects string) error {
	if strings.TrimSpace(effects) == "" {
		return nil
	}

	var errs []error
	for _, part := range splitEffectParts(effects) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		name, value, ok := splitAssignment(part)
		if !ok {
			errs = append(errs, fmt.Errorf("%q: missing assignment", strings.TrimSpace(part)))
			continue
		}
		if !IsIdentifier(strings.TrimSpace(name)) {
			errs = append(errs, fmt.Errorf("%q: invalid variable name", strings.TrimSpace(name)))
			continue
		}
		if _, err := Compile(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", strings.TrimSpace(name), err))
		}
	}
	return errors.Join(errs...)
}

// fail registra e inoltra una diagnostica
func (e *Evaluator) fail(kind formats.DiagnosticKind, expression string, err error) {
	e.logger.Debug("espressione non valutata",
		zap.String("kind", string(kind)),
		zap.String("expression", expression),
		zap.Error(err),
	)
	if e.report != nil {
		e.report(formats.Diagnostic{Kind: kind, Expression: expression, Err: err})
	}
}
