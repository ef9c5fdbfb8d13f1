package story

import "fmt"

// ExpressionChecker verifica la sintassi delle espressioni (formats.Dialect lo soddisfa)
type ExpressionChecker interface {
	Check(expression string) error
	CheckEffects(effects string) error
}

// Severity indica la gravità di un problema
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue rappresenta un singolo problema trovato nel grafo
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	SceneID  string   `json:"scene_id,omitempty"`
	ChoiceID string   `json:"choice_id,omitempty"`
	Message  string   `json:"message"`
}

// ValidationResult è il risultato del lint
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *ValidationResult) add(issue Issue) {
	if issue.Severity == SeverityError {
		r.Errors = append(r.Errors, issue)
		r.Valid = false
		return
	}
	r.Warnings = append(r.Warnings, issue)
}

// Validate analizza il grafo: id duplicati, target pendenti, scena iniziale,
// espressioni non valide, scene irraggiungibili e variabili senza nome.
// Se checker è nil le espressioni non vengono verificate.
func (g *Graph) Validate(checker ExpressionChecker) *ValidationResult {
	result := &ValidationResult{Valid: true, Errors: []Issue{}, Warnings: []Issue{}}

	if len(g.Scenes) == 0 {
		result.add(Issue{Severity: SeverityWarning, Code: "empty_graph", Message: "the story has no scenes"})
	}

	sceneIDs := make(map[string]bool, len(g.Scenes))
	choiceIDs := make(map[string]bool)
	for _, scene := range g.Scenes {
		if sceneIDs[scene.ID] {
			result.add(Issue{Severity: SeverityError, Code: "duplicate_scene_id", SceneID: scene.ID,
				Message: fmt.Sprintf("scene id %q is used more than once", scene.ID)})
		}
		sceneIDs[scene.ID] = true

		for _, choice := range scene.Choices {
			if choiceIDs[choice.ID] {
				result.add(Issue{Severity: SeverityError, Code: "duplicate_choice_id", SceneID: scene.ID, ChoiceID: choice.ID,
					Message: fmt.Sprintf("choice id %q is used more than once", choice.ID)})
			}
			choiceIDs[choice.ID] = true
		}
	}

	if len(g.Scenes) > 0 && !sceneIDs[g.StartSceneID] {
		result.add(Issue{Severity: SeverityWarning, Code: "missing_start", SceneID: g.StartSceneID,
			Message: "start scene does not resolve, the first scene is used"})
	}

	for _, scene := range g.Scenes {
		for _, choice := range scene.Choices {
			if !sceneIDs[choice.TargetID] {
				result.add(Issue{Severity: SeverityWarning, Code: "dangling_target", SceneID: scene.ID, ChoiceID: choice.ID,
					Message: fmt.Sprintf("choice %q targets missing scene %q", choice.Text, choice.TargetID)})
			}
			if checker == nil {
				continue
			}
			// a runtime un'espressione non valida degrada (condizione falsa,
			// effetto come letterale), quindi è un warning
			if err := checker.Check(choice.Condition); err != nil {
				result.add(Issue{Severity: SeverityWarning, Code: "invalid_condition", SceneID: scene.ID, ChoiceID: choice.ID,
					Message: err.Error()})
			}
			if err := checker.CheckEffects(choice.Effects); err != nil {
				result.add(Issue{Severity: SeverityWarning, Code: "invalid_effects", SceneID: scene.ID, ChoiceID: choice.ID,
					Message: err.Error()})
			}
		}
	}

	reachable := g.Reachable()
	for _, scene := range g.Scenes {
		if !reachable[scene.ID] {
			result.add(Issue{Severity: SeverityWarning, Code: "unreachable_scene", SceneID: scene.ID,
				Message: fmt.Sprintf("scene %q cannot be reached from the start", scene.Title)})
		}
	}

	names := make(map[string]bool, len(g.Variables))
	for i, v := range g.Variables {
		if v.Name == "" {
			result.add(Issue{Severity: SeverityWarning, Code: "empty_variable_name",
				Message: fmt.Sprintf("variable #%d has no name and is ignored", i+1)})
			continue
		}
		if names[v.Name] {
			result.add(Issue{Severity: SeverityWarning, Code: "duplicate_variable",
				Message: fmt.Sprintf("variable %q is declared more than once", v.Name)})
		}
		names[v.Name] = true
	}

	return result
}

// Reachable calcola le scene raggiungibili dalla partenza ignorando le condizioni.
// Un target pendente porta alla prima scena, come durante il traversal.
func (g *Graph) Reachable() map[string]bool {
	seen := make(map[string]bool, len(g.Scenes))
	start, ok := g.StartScene()
	if !ok {
		return seen
	}

	queue := []*Scene{start}
	seen[start.ID] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, choice := range current.Choices {
			next, ok := g.FindScene(choice.TargetID)
			if !ok {
				next, _ = g.FirstScene()
			}
			if next == nil || seen[next.ID] {
				continue
			}
			seen[next.ID] = true
			queue = append(queue, next)
		}
	}
	return seen
}
