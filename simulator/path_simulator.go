package simulator

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"bild-story/formats"
	"bild-story/story"
	"bild-story/traversal"
	"bild-story/variables"
)

// MaxSuggestedPaths limita il numero di percorsi suggeriti
const MaxSuggestedPaths = 10

// MaxSuggestionExpansions limita gli stati esplorati (e accodati) da
// GetSuggestedPaths, indipendentemente dalla profondità richiesta
const MaxSuggestionExpansions = MaxSuggestedPaths * 50

// PathSimulator simula un percorso di choice attraverso la storia.
// Non è sicuro per l'uso concorrente: crearne uno per richiesta.
type PathSimulator struct {
	graph  *story.Graph
	engine *traversal.Engine
	logger *zap.Logger

	// soglie delle variabili numeriche da segnalare
	watched map[string]float64

	// diagnostiche raccolte durante lo step corrente
	pending []string
}

// VariableChange rappresenta il cambiamento di una variabile
type VariableChange struct {
	Name     string          `json:"name"`
	Previous variables.Value `json:"previous"`
	Current  variables.Value `json:"current"`
	Delta    *float64        `json:"delta,omitempty"` // Solo per numeri
}

// StepResult risultato di un singolo step
type StepResult struct {
	Index            int                       `json:"index"`
	SceneID          string                    `json:"scene_id"`
	SceneTitle       string                    `json:"scene_title"`
	ChoiceID         string                    `json:"choice_id"`
	ChoiceText       string                    `json:"choice_text"`
	Changes          map[string]VariableChange `json:"changes"`
	Warnings         []string                  `json:"warnings,omitempty"`
	AvailableChoices []string                  `json:"available_choices"`
}

// SimulationResult risultato completo della simulazione
type SimulationResult struct {
	Success       bool                       `json:"success"`
	Path          []string                   `json:"path"`
	Steps         []StepResult               `json:"steps"`
	FinalSceneID  string                     `json:"final_scene_id"`
	FinalState    map[string]variables.Value `json:"final_state"`
	Errors        []string                   `json:"errors,omitempty"`
	TotalWarnings int                        `json:"total_warnings"`
}

// NewPathSimulator crea un nuovo simulatore. Lavora su una copia del grafo.
func NewPathSimulator(graph *story.Graph, logger *zap.Logger) *PathSimulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	ps := &PathSimulator{graph: graph.Clone(), logger: logger, watched: map[string]float64{}}
	if ps.graph == nil {
		ps.graph = &story.Graph{}
	}

	dialect := formats.GetDialect(formats.DefaultDialect, ps.collect)
	ps.engine = traversal.NewEngine(ps.graph, traversal.Options{
		Dialect: dialect,
		Logger:  logger,
		OnTeleport: func(t traversal.Teleport) {
			ps.pending = append(ps.pending, fmt.Sprintf(
				"⚠️ choice '%s' punta alla scena mancante '%s': ritorno a '%s'", t.ChoiceID, t.TargetID, t.FallbackID))
		},
	})
	return ps
}

// Watch segnala negli step simulati quando la variabile numerica name
// scende a threshold o sotto
func (ps *PathSimulator) Watch(name string, threshold float64) {
	ps.watched[name] = threshold
}

func (ps *PathSimulator) collect(d formats.Diagnostic) {
	ps.pending = append(ps.pending, fmt.Sprintf("⚠️ %s non valida '%s': %s", d.Kind, d.Expression, d.Message()))
}

// ValidatePath verifica che ogni choice del percorso sia visibile quando viene scelto
func (ps *PathSimulator) ValidatePath(path []string) []string {
	errs := []string{}

	state := ps.engine.Begin()
	for i, choiceID := range path {
		if state.Current == nil {
			errs = append(errs, fmt.Sprintf("Step %d: nessuna scena corrente", i+1))
			break
		}

		next, err := ps.engine.Step(state, choiceID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Step %d: %v. Choice disponibili: %v",
				i+1, err, idsOf(ps.engine.VisibleChoices(state))))
			// il percorso non può proseguire da uno stato sconosciuto
			break
		}
		state = next
	}
	ps.pending = nil

	return errs
}

// SimulatePath esegue il percorso registrando variazioni e warning per ogni step
func (ps *PathSimulator) SimulatePath(path []string) *SimulationResult {
	result := &SimulationResult{
		Success:    true,
		Path:       path,
		Steps:      []StepResult{},
		FinalState: make(map[string]variables.Value),
		Errors:     []string{},
	}

	// Valida il path prima di simulare
	if validationErrors := ps.ValidatePath(path); len(validationErrors) > 0 {
		result.Success = false
		result.Errors = validationErrors
		return result
	}

	state := ps.engine.Begin()
	for i, choiceID := range path {
		from := state.Current
		choice, _ := ps.graph.FindChoice(from.ID, choiceID)

		ps.pending = nil
		next, err := ps.engine.Step(state, choiceID)
		if err != nil {
			// Non dovrebbe mai succedere dopo la validazione
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			break
		}

		step := StepResult{
			Index:            i + 1,
			SceneID:          next.Current.ID,
			SceneTitle:       next.Current.Title,
			ChoiceID:         choiceID,
			ChoiceText:       choice.Text,
			Changes:          diff(state.Vars, next.Vars),
			AvailableChoices: idsOf(ps.engine.VisibleChoices(next)),
		}
		step.Warnings = append(ps.pending, ps.thresholdWarnings(step.Changes)...)
		ps.pending = nil

		result.TotalWarnings += len(step.Warnings)
		result.Steps = append(result.Steps, step)
		state = next
	}

	if state.Current != nil {
		result.FinalSceneID = state.Current.ID
	}
	result.FinalState = state.Vars.Snapshot()

	ps.logger.Debug("simulazione completata",
		zap.Int("steps", len(result.Steps)),
		zap.Int("warnings", result.TotalWarnings),
	)
	return result
}

// diff calcola le variabili cambiate tra due store
func diff(before, after *variables.Store) map[string]VariableChange {
	changes := make(map[string]VariableChange)
	for _, entry := range after.Entries() {
		previous, existed := before.Get(entry.Name)
		if existed && previous.StrictEqual(entry.Value) {
			continue
		}

		change := VariableChange{Name: entry.Name, Previous: previous, Current: entry.Value}

		// Calcola delta per valori numerici
		prevNum, prevIsNum := previous.AsNumber()
		currNum, currIsNum := entry.Value.AsNumber()
		if existed && prevIsNum && currIsNum {
			delta := currNum - prevNum
			change.Delta = &delta
		}
		changes[entry.Name] = change
	}
	return changes
}

// thresholdWarnings segnala le variabili osservate scese sotto soglia
func (ps *PathSimulator) thresholdWarnings(changes map[string]VariableChange) []string {
	warnings := []string{}
	for _, name := range sortedNames(changes) {
		threshold, watched := ps.watched[name]
		if !watched {
			continue
		}
		val, isNum := changes[name].Current.AsNumber()
		if !isNum || val > threshold {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("⚠️ %s è sotto soglia: %s (soglia %s)",
			name, variables.FormatNumber(val), variables.FormatNumber(threshold)))
	}
	return warnings
}

func sortedNames(changes map[string]VariableChange) []string {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetSuggestedPaths enumera in ampiezza i percorsi di choice che rispettano
// le condizioni, fino a maxDepth step e al massimo MaxSuggestedPaths percorsi.
// Se gli stati esplorati superano MaxSuggestionExpansions (grafi ciclici,
// molti choice) restituisce i percorsi parziali già raggiunti.
func (ps *PathSimulator) GetSuggestedPaths(maxDepth int) [][]string {
	paths := [][]string{}
	if maxDepth <= 0 {
		return paths
	}

	type node struct {
		path  []string
		state traversal.State
	}

	start := ps.engine.Begin()
	if start.Current == nil {
		return paths
	}
	queue := []node{{path: []string{}, state: start}}

	expansions := 0
	for len(queue) > 0 && len(paths) < MaxSuggestedPaths && expansions < MaxSuggestionExpansions {
		current := queue[0]
		queue = queue[1:]

		if len(current.path) >= maxDepth {
			paths = append(paths, current.path)
			continue
		}

		visible := ps.engine.VisibleChoices(current.state)
		if len(visible) == 0 {
			// Fine del percorso
			if len(current.path) > 0 {
				paths = append(paths, current.path)
			}
			continue
		}

		expansions++
		for _, choice := range visible {
			if len(queue) >= MaxSuggestionExpansions {
				break
			}
			next, err := ps.engine.Step(current.state, choice.ID)
			if err != nil {
				ps.logger.Debug("step scartato", zap.Error(err))
				continue
			}
			newPath := make([]string, len(current.path), len(current.path)+1)
			copy(newPath, current.path)
			newPath = append(newPath, choice.ID)
			queue = append(queue, node{path: newPath, state: next})
		}
	}

	// budget esaurito: completa con la frontiera
	for _, n := range queue {
		if len(paths) >= MaxSuggestedPaths {
			break
		}
		if len(n.path) > 0 {
			paths = append(paths, n.path)
		}
	}
	if expansions >= MaxSuggestionExpansions {
		ps.logger.Debug("esplorazione percorsi interrotta", zap.Int("expansions", expansions))
	}
	ps.pending = nil

	return paths
}

func idsOf(choices []story.Choice) []string {
	ids := make([]string, 0, len(choices))
	for _, c := range choices {
		ids = append(ids, c.ID)
	}
	return ids
}
