package formats

import "bild-story/variables"

// DiagnosticKind indica quale tipo di espressione è fallita
type DiagnosticKind string

const (
	KindCondition DiagnosticKind = "condition"
	KindEffect    DiagnosticKind = "effect"
)

// Diagnostic descrive un'espressione dell'autore che non è stata valutata.
// Non è mai un errore fatale: la condizione diventa false, l'effetto
// ricade sulla coercizione literal.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	Expression string         `json:"expression"`
	Err        error          `json:"-"`
}

// Message restituisce il testo dell'errore
func (d Diagnostic) Message() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}

// Reporter riceve le diagnostiche (log, metriche, warning del simulatore)
type Reporter func(Diagnostic)

// Dialect definisce il linguaggio di espressioni usato da condizioni ed effetti
type Dialect interface {
	// Name restituisce il nome del dialetto
	Name() string

	// Evaluate valuta un'espressione sullo store, senza coercizioni
	Evaluate(expression string, store *variables.Store) (variables.Value, error)

	// EvaluateCondition valuta una condizione: vuota = true, errore = false
	EvaluateCondition(expression string, store *variables.Store) bool

	// ApplyEffects applica "nome = espressione, ..." da sinistra a destra e
	// restituisce un nuovo store; quello in input non viene modificato
	ApplyEffects(effects string, store *variables.Store) *variables.Store

	// Check verifica solo la sintassi di una condizione
	Check(expression string) error

	// CheckEffects verifica la sintassi di una lista di effetti
	CheckEffects(effects string) error
}

// Factory crea un dialetto collegato a un reporter (può essere nil)
type Factory func(report Reporter) Dialect
