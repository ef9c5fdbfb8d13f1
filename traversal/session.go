package traversal

import (
	"bild-story/story"
	"bild-story/variables"
)

// SummaryPrefix precede il riepilogo delle variabili mostrato al giocatore
const SummaryPrefix = "Variables: "

// Session è una partita: engine più stato corrente e scene visitate.
// Non è sicura per l'uso concorrente; chi la condivide deve sincronizzare.
type Session struct {
	engine  *Engine
	state   State
	history []string
}

// NewSession avvia una nuova partita
func NewSession(engine *Engine) *Session {
	s := &Session{engine: engine}
	s.Restart()
	return s
}

// Restart riporta la sessione alla scena iniziale con uno store nuovo
func (s *Session) Restart() {
	s.state = s.engine.Begin()
	s.history = s.history[:0]
	if s.state.Current != nil {
		s.history = append(s.history, s.state.Current.ID)
	}
}

// Engine restituisce l'engine della sessione
func (s *Session) Engine() *Engine { return s.engine }

// State restituisce lo stato corrente
func (s *Session) State() State { return s.state }

// Current restituisce la scena corrente (nil per un grafo vuoto)
func (s *Session) Current() *story.Scene { return s.state.Current }

// Vars restituisce lo store della sessione
func (s *Session) Vars() *variables.Store { return s.state.Vars }

// Visible restituisce i choice visibili nella scena corrente
func (s *Session) Visible() []story.Choice {
	return s.engine.VisibleChoices(s.state)
}

// Choose esegue un choice; in caso di errore lo stato resta invariato
func (s *Session) Choose(choiceID string) (*story.Scene, error) {
	next, err := s.engine.Step(s.state, choiceID)
	if err != nil {
		return nil, err
	}
	s.state = next
	s.history = append(s.history, sceneID(next.Current))
	return next.Current, nil
}

// Summary restituisce la riga "Variables: nome: valore · ..." ("none" se vuoto)
func (s *Session) Summary() string {
	return SummaryPrefix + s.state.Vars.Summary()
}

// History restituisce gli id delle scene visitate, partenza compresa
func (s *Session) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}
