package story

// ============================================
// QUERY (sola lettura)
// ============================================

// FindScene cerca una scena per id
func (g *Graph) FindScene(id string) (*Scene, bool) {
	if g == nil || id == "" {
		return nil, false
	}
	for i := range g.Scenes {
		if g.Scenes[i].ID == id {
			return &g.Scenes[i], true
		}
	}
	return nil, false
}

// OutgoingChoices restituisce i choice della scena in ordine di authoring
func (g *Graph) OutgoingChoices(scene *Scene) []Choice {
	if scene == nil {
		return nil
	}
	return scene.Choices
}

// FirstScene restituisce la prima scena dichiarata
func (g *Graph) FirstScene() (*Scene, bool) {
	if g == nil || len(g.Scenes) == 0 {
		return nil, false
	}
	return &g.Scenes[0], true
}

// StartScene restituisce la scena iniziale dichiarata, altrimenti la prima.
// Un grafo vuoto restituisce false.
func (g *Graph) StartScene() (*Scene, bool) {
	if scene, ok := g.FindScene(g.startID()); ok {
		return scene, true
	}
	return g.FirstScene()
}

// FindChoice cerca un choice nella scena indicata
func (g *Graph) FindChoice(sceneID, choiceID string) (*Choice, bool) {
	scene, ok := g.FindScene(sceneID)
	if !ok {
		return nil, false
	}
	for i := range scene.Choices {
		if scene.Choices[i].ID == choiceID {
			return &scene.Choices[i], true
		}
	}
	return nil, false
}

// sceneIndex restituisce la posizione della scena oppure -1
func (g *Graph) sceneIndex(id string) int {
	for i := range g.Scenes {
		if g.Scenes[i].ID == id {
			return i
		}
	}
	return -1
}

func (g *Graph) startID() string {
	if g == nil {
		return ""
	}
	return g.StartSceneID
}
