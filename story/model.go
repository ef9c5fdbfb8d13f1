package story

import "bild-story/variables"

// Media raccoglie i riferimenti multimediali di una scena (URL opachi, non verificati)
type Media struct {
	Background string `json:"bg"`
	Image      string `json:"image"`
	Audio      string `json:"audio"`
	Video      string `json:"video"`
}

// IsEmpty verifica se la scena non ha media
func (m Media) IsEmpty() bool {
	return m == Media{}
}

// Position rappresenta la posizione della scena nell'editor (non interpretata dal core)
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Choice è un arco orientato verso un'altra scena, visibile se la condizione è vera
type Choice struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	TargetID  string `json:"targetId"`
	Condition string `json:"condition"`
	Effects   string `json:"effects"`
}

// Scene rappresenta un nodo del grafo narrativo
type Scene struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Choices  []Choice `json:"choices"`
	Media    Media    `json:"media"`
	Position Position `json:"position"`
}

// Variable è una variabile dichiarata con il suo valore iniziale
type Variable = variables.Declaration

// Graph rappresenta l'intera storia: scene, variabili e scena iniziale
type Graph struct {
	Scenes       []Scene    `json:"scenes"`
	Variables    []Variable `json:"variables"`
	StartSceneID string     `json:"startSceneId"`
}

// Clone crea una copia profonda del grafo
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{StartSceneID: g.StartSceneID}
	if g.Variables != nil {
		out.Variables = make([]Variable, len(g.Variables))
		copy(out.Variables, g.Variables)
	}
	if g.Scenes != nil {
		out.Scenes = make([]Scene, len(g.Scenes))
		for i, scene := range g.Scenes {
			if scene.Choices != nil {
				choices := make([]Choice, len(scene.Choices))
				copy(choices, scene.Choices)
				scene.Choices = choices
			}
			out.Scenes[i] = scene
		}
	}
	return out
}

// Normalize sostituisce le liste nil con liste vuote, come dopo un decode
func (g *Graph) Normalize() {
	if g.Scenes == nil {
		g.Scenes = []Scene{}
	}
	if g.Variables == nil {
		g.Variables = []Variable{}
	}
	for i := range g.Scenes {
		if g.Scenes[i].Choices == nil {
			g.Scenes[i].Choices = []Choice{}
		}
	}
}

// InitialStore crea uno store nuovo dai valori dichiarati
func (g *Graph) InitialStore() *variables.Store {
	return variables.FromDefaults(g.Variables)
}
