package story

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"bild-story/variables"
)

var (
	ErrSceneNotFound    = errors.New("scene not found")
	ErrChoiceNotFound   = errors.New("choice not found")
	ErrVariableNotFound = errors.New("variable not found")
)

// Testi di default usati dall'editor
const (
	DefaultStartTitle = "Beginning"
	DefaultStartBody  = "Describe the first scene, add choices and media."
	DefaultSceneTitle = "New scene"
	DefaultSceneBody  = "Describe the events or dialogue."
	DefaultChoiceText = "New choice"
)

// NewID genera un id opaco con prefisso, es. "scene-01j9..."
func NewID(prefix string) string {
	return prefix + "-" + strings.ToLower(ulid.Make().String())
}

// NewDefault crea il workspace iniziale: una scena di partenza e la variabile score = 0
func NewDefault() *Graph {
	id := NewID("scene")
	return &Graph{
		Scenes: []Scene{{
			ID:       id,
			Title:    DefaultStartTitle,
			Body:     DefaultStartBody,
			Choices:  []Choice{},
			Position: Position{X: 120, Y: 120},
		}},
		Variables:    []Variable{{Name: "score", Value: variables.NumberValue(0)}},
		StartSceneID: id,
	}
}

// ============================================
// SCENE
// ============================================

// AddScene aggiunge una scena in coda; diventa la scena iniziale se non ce n'è una
func (g *Graph) AddScene(title, body string) *Scene {
	if title == "" {
		title = DefaultSceneTitle
	}
	if body == "" {
		body = DefaultSceneBody
	}

	n := float64(len(g.Scenes))
	g.Scenes = append(g.Scenes, Scene{
		ID:       NewID("scene"),
		Title:    title,
		Body:     body,
		Choices:  []Choice{},
		Position: Position{X: 80 + n*40, Y: 80 + n*20},
	})

	scene := &g.Scenes[len(g.Scenes)-1]
	if g.StartSceneID == "" {
		g.StartSceneID = scene.ID
	}
	return scene
}

// MediaPatch aggiorna solo i campi media indicati
type MediaPatch struct {
	Background *string `json:"bg"`
	Image      *string `json:"image"`
	Audio      *string `json:"audio"`
	Video      *string `json:"video"`
}

// ScenePatch descrive una modifica parziale a una scena
type ScenePatch struct {
	Title    *string     `json:"title"`
	Body     *string     `json:"body"`
	Media    *MediaPatch `json:"media"`
	Position *Position   `json:"position"`
}

// UpdateScene applica una modifica parziale; i media vengono uniti campo per campo
func (g *Graph) UpdateScene(id string, patch ScenePatch) (*Scene, error) {
	scene, ok := g.FindScene(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}

	if patch.Title != nil {
		scene.Title = *patch.Title
	}
	if patch.Body != nil {
		scene.Body = *patch.Body
	}
	if patch.Position != nil {
		scene.Position = *patch.Position
	}
	if m := patch.Media; m != nil {
		setIfPresent(&scene.Media.Background, m.Background)
		setIfPresent(&scene.Media.Image, m.Image)
		setIfPresent(&scene.Media.Audio, m.Audio)
		setIfPresent(&scene.Media.Video, m.Video)
	}
	return scene, nil
}

// DeleteScene rimuove una scena con i suoi choice. Se era la scena iniziale,
// la partenza passa alla prima scena rimasta. I choice che puntavano alla
// scena restano pendenti.
func (g *Graph) DeleteScene(id string) error {
	index := g.sceneIndex(id)
	if index == -1 {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}

	g.Scenes = append(g.Scenes[:index], g.Scenes[index+1:]...)
	if g.StartSceneID == id {
		g.StartSceneID = ""
		if first, ok := g.FirstScene(); ok {
			g.StartSceneID = first.ID
		}
	}
	return nil
}

// SetStart imposta la scena iniziale
func (g *Graph) SetStart(id string) error {
	if _, ok := g.FindScene(id); !ok {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, id)
	}
	g.StartSceneID = id
	return nil
}

// ============================================
// CHOICE
// ============================================

// AddChoice aggiunge un choice che punta alla scena iniziale
func (g *Graph) AddChoice(sceneID string) (*Choice, error) {
	scene, ok := g.FindScene(sceneID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}

	scene.Choices = append(scene.Choices, Choice{
		ID:       NewID("choice"),
		Text:     DefaultChoiceText,
		TargetID: g.StartSceneID,
	})
	return &scene.Choices[len(scene.Choices)-1], nil
}

// ChoicePatch descrive una modifica parziale a un choice
type ChoicePatch struct {
	Text      *string `json:"text"`
	TargetID  *string `json:"targetId"`
	Condition *string `json:"condition"`
	Effects   *string `json:"effects"`
}

// UpdateChoice applica una modifica parziale a un choice
func (g *Graph) UpdateChoice(sceneID, choiceID string, patch ChoicePatch) (*Choice, error) {
	if _, ok := g.FindScene(sceneID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	choice, ok := g.FindChoice(sceneID, choiceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChoiceNotFound, choiceID)
	}

	setIfPresent(&choice.Text, patch.Text)
	setIfPresent(&choice.TargetID, patch.TargetID)
	setIfPresent(&choice.Condition, patch.Condition)
	setIfPresent(&choice.Effects, patch.Effects)
	return choice, nil
}

// DeleteChoice rimuove un choice dalla sua scena
func (g *Graph) DeleteChoice(sceneID, choiceID string) error {
	scene, ok := g.FindScene(sceneID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	for i := range scene.Choices {
		if scene.Choices[i].ID == choiceID {
			scene.Choices = append(scene.Choices[:i], scene.Choices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrChoiceNotFound, choiceID)
}

// ============================================
// VARIABILI
// ============================================

// AddVariable aggiunge "varN = 0"
func (g *Graph) AddVariable() *Variable {
	g.Variables = append(g.Variables, Variable{
		Name:  fmt.Sprintf("var%d", len(g.Variables)+1),
		Value: variables.NumberValue(0),
	})
	return &g.Variables[len(g.Variables)-1]
}

// UpdateVariable rinomina la variabile e/o ne cambia il valore; il valore
// grezzo passa per variables.ParseValue
func (g *Graph) UpdateVariable(index int, name, rawValue *string) (*Variable, error) {
	if index < 0 || index >= len(g.Variables) {
		return nil, fmt.Errorf("%w: index %d", ErrVariableNotFound, index)
	}
	v := &g.Variables[index]
	setIfPresent(&v.Name, name)
	if rawValue != nil {
		v.Value = variables.ParseValue(*rawValue)
	}
	return v, nil
}

// DeleteVariable rimuove una variabile dichiarata
func (g *Graph) DeleteVariable(index int) error {
	if index < 0 || index >= len(g.Variables) {
		return fmt.Errorf("%w: index %d", ErrVariableNotFound, index)
	}
	g.Variables = append(g.Variables[:index], g.Variables[index+1:]...)
	return nil
}

func setIfPresent(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
