package traversal

import (
	"errors"
	"fmt"
)

// ErrNoCurrentScene è restituito da Step quando lo stato non ha una scena
// corrente (grafo vuoto)
var ErrNoCurrentScene = errors.New("no current scene")

// ChoiceReason distingue un choice inesistente da uno nascosto
type ChoiceReason string

const (
	ChoiceNotFound ChoiceReason = "not_found"
	ChoiceHidden   ChoiceReason = "not_visible"
)

// ChoiceError indica che il choice richiesto non è tra quelli visibili
type ChoiceError struct {
	SceneID  string
	ChoiceID string
	Reason   ChoiceReason
}

func (e *ChoiceError) Error() string {
	if e.Reason == ChoiceHidden {
		return fmt.Sprintf("choice %q in scene %q is not visible", e.ChoiceID, e.SceneID)
	}
	return fmt.Sprintf("choice %q not found in scene %q", e.ChoiceID, e.SceneID)
}

// TargetError indica un choice che punta a una scena inesistente (solo in modalità Strict)
type TargetError struct {
	SceneID  string
	ChoiceID string
	TargetID string
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("choice %q in scene %q targets missing scene %q", e.ChoiceID, e.SceneID, e.TargetID)
}
