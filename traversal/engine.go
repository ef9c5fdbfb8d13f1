package traversal

import (
	"go.uber.org/zap"

	"bild-story/formats"
	_ "bild-story/formats/expr" // registra il dialetto di default
	"bild-story/story"
	"bild-story/variables"
)

// MissingTarget decide cosa succede quando un choice punta a una scena inesistente
type MissingTarget int

const (
	// FallbackFirstScene porta alla prima scena del grafo
	FallbackFirstScene MissingTarget = iota
	// Strict restituisce un *TargetError
	Strict
)

// Teleport descrive un salto alla prima scena causato da un target pendente
type Teleport struct {
	SceneID    string `json:"scene_id"`
	ChoiceID   string `json:"choice_id"`
	TargetID   string `json:"target_id"`
	FallbackID string `json:"fallback_id"`
}

// Options configura l'engine
type Options struct {
	MissingTarget MissingTarget
	// Dialect valuta condizioni ed effetti; nil usa il dialetto di default
	Dialect    formats.Dialect
	Logger     *zap.Logger
	OnTeleport func(Teleport)
}

// State è lo stato di una sessione: scena corrente e store delle variabili.
// Current è nil quando il grafo non ha scene.
type State struct {
	Current *story.Scene
	Vars    *variables.Store
}

// Engine percorre un grafo senza mai modificarlo. È sicuro usarlo da più
// sessioni contemporaneamente: ogni Begin crea uno store indipendente.
type Engine struct {
	graph   *story.Graph
	dialect formats.Dialect
	opts    Options
	logger  *zap.Logger
}

// NewEngine crea un engine sul grafo indicato
func NewEngine(graph *story.Graph, opts Options) *Engine {
	if graph == nil {
		graph = &story.Graph{}
	}
	dialect := opts.Dialect
	if dialect == nil {
		dialect = formats.GetDialect(formats.DefaultDialect, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{graph: graph, dialect: dialect, opts: opts, logger: logger}
}

// Graph restituisce il grafo percorso
func (e *Engine) Graph() *story.Graph {
	return e.graph
}

// Dialect restituisce il dialetto usato per condizioni ed effetti
func (e *Engine) Dialect() formats.Dialect {
	return e.dialect
}

// Begin crea lo stato iniziale: store dai default dichiarati, scena iniziale
func (e *Engine) Begin() State {
	start, _ := e.graph.StartScene()
	return State{Current: start, Vars: e.graph.InitialStore()}
}

// VisibleChoices restituisce i choice della scena corrente la cui condizione
// è vera, nell'ordine di authoring
func (e *Engine) VisibleChoices(state State) []story.Choice {
	visible := []story.Choice{}
	for _, choice := range e.graph.OutgoingChoices(state.Current) {
		if e.dialect.EvaluateCondition(choice.Condition, state.Vars) {
			visible = append(visible, choice)
		}
	}
	return visible
}

// Step esegue il choice indicato: applica gli effetti su una copia dello
// store e passa alla scena target. Lo stato in input non viene modificato.
func (e *Engine) Step(state State, choiceID string) (State, error) {
	if state.Current == nil {
		return State{}, ErrNoCurrentScene
	}

	choice, err := e.lookup(state, choiceID)
	if err != nil {
		return State{}, err
	}

	vars := e.dialect.ApplyEffects(choice.Effects, state.Vars)

	next, ok := e.graph.FindScene(choice.TargetID)
	if !ok {
		if e.opts.MissingTarget == Strict {
			return State{}, &TargetError{SceneID: state.Current.ID, ChoiceID: choice.ID, TargetID: choice.TargetID}
		}
		next, _ = e.graph.FirstScene()
		e.teleport(state.Current, choice, next)
	}

	e.logger.Debug("step",
		zap.String("from", state.Current.ID),
		zap.String("choice", choice.ID),
		zap.String("to", sceneID(next)),
	)
	return State{Current: next, Vars: vars}, nil
}

func (e *Engine) lookup(state State, choiceID string) (story.Choice, error) {
	for _, choice := range e.graph.OutgoingChoices(state.Current) {
		if choice.ID != choiceID {
			continue
		}
		if !e.dialect.EvaluateCondition(choice.Condition, state.Vars) {
			return story.Choice{}, &ChoiceError{SceneID: state.Current.ID, ChoiceID: choiceID, Reason: ChoiceHidden}
		}
		return choice, nil
	}
	return story.Choice{}, &ChoiceError{SceneID: state.Current.ID, ChoiceID: choiceID, Reason: ChoiceNotFound}
}

func (e *Engine) teleport(from *story.Scene, choice story.Choice, to *story.Scene) {
	t := Teleport{
		SceneID:    from.ID,
		ChoiceID:   choice.ID,
		TargetID:   choice.TargetID,
		FallbackID: sceneID(to),
	}
	e.logger.Warn("target mancante, ritorno alla prima scena",
		zap.String("scene", t.SceneID),
		zap.String("choice", t.ChoiceID),
		zap.String("target", t.TargetID),
		zap.String("fallback", t.FallbackID),
	)
	if e.opts.OnTeleport != nil {
		e.opts.OnTeleport(t)
	}
}

func sceneID(scene *story.Scene) string {
	if scene == nil {
		return ""
	}
	return scene.ID
}
