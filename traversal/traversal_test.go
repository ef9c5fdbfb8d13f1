package traversal

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bild-story/story"
	"bild-story/variables"
)

func twoScenes() *story.Graph {
	return &story.Graph{
		Scenes: []story.Scene{
			{ID: "S1", Title: "Start", Choices: []story.Choice{
				{ID: "go", Text: "Go", TargetID: "S2", Effects: "score=score+1"},
			}},
			{ID: "S2", Title: "End", Choices: []story.Choice{}},
		},
		Variables:    []story.Variable{{Name: "score", Value: variables.NumberValue(0)}},
		StartSceneID: "S1",
	}
}

func choiceIDs(choices []story.Choice) []string {
	ids := make([]string, 0, len(choices))
	for _, c := range choices {
		ids = append(ids, c.ID)
	}
	return ids
}

func number(t *testing.T, store *variables.Store, name string) float64 {
	t.Helper()
	v, ok := store.Get(name)
	require.True(t, ok, "variable %s missing", name)
	n, ok := v.AsNumber()
	require.True(t, ok, "variable %s is %s", name, v.Kind())
	return n
}

func TestBeginAndStep(t *testing.T) {
	engine := NewEngine(twoScenes(), Options{})

	state := engine.Begin()
	require.NotNil(t, state.Current)
	assert.Equal(t, "S1", state.Current.ID)
	assert.Equal(t, []string{"go"}, choiceIDs(engine.VisibleChoices(state)))

	next, err := engine.Step(state, "go")
	require.NoError(t, err)
	assert.Equal(t, "S2", next.Current.ID)
	assert.Equal(t, 1.0, number(t, next.Vars, "score"))
	assert.Empty(t, engine.VisibleChoices(next))

	assert.Equal(t, 0.0, number(t, state.Vars, "score"), "previous state is untouched")
}

func TestHiddenChoiceBecomesVisible(t *testing.T) {
	g := &story.Graph{
		Scenes: []story.Scene{
			{ID: "hub", Choices: []story.Choice{
				{ID: "secret", TargetID: "vault", Condition: "score>10"},
				{ID: "train", TargetID: "hub", Effects: "score=20"},
			}},
			{ID: "vault", Choices: []story.Choice{}},
		},
		Variables: []story.Variable{{Name: "score", Value: variables.NumberValue(0)}},
	}
	engine := NewEngine(g, Options{})

	state := engine.Begin()
	assert.Equal(t, []string{"train"}, choiceIDs(engine.VisibleChoices(state)))

	_, err := engine.Step(state, "secret")
	var choiceErr *ChoiceError
	require.True(t, errors.As(err, &choiceErr))
	assert.Equal(t, ChoiceHidden, choiceErr.Reason)

	state, err = engine.Step(state, "train")
	require.NoError(t, err)
	assert.Equal(t, []string{"secret", "train"}, choiceIDs(engine.VisibleChoices(state)))

	state, err = engine.Step(state, "secret")
	require.NoError(t, err)
	assert.Equal(t, "vault", state.Current.ID)
}

func TestUnknownChoice(t *testing.T) {
	engine := NewEngine(twoScenes(), Options{})
	_, err := engine.Step(engine.Begin(), "nope")

	var choiceErr *ChoiceError
	require.True(t, errors.As(err, &choiceErr))
	assert.Equal(t, ChoiceNotFound, choiceErr.Reason)
	assert.Equal(t, "S1", choiceErr.SceneID)
}

func TestDanglingTargetFallsBackToFirstScene(t *testing.T) {
	g := twoScenes()
	g.StartSceneID = "S2"
	g.Scenes[1].Choices = []story.Choice{{ID: "lost", TargetID: "deleted", Effects: "score=5"}}

	var teleports []Teleport
	engine := NewEngine(g, Options{OnTeleport: func(tp Teleport) { teleports = append(teleports, tp) }})

	state, err := engine.Step(engine.Begin(), "lost")
	require.NoError(t, err)
	assert.Equal(t, "S1", state.Current.ID)
	assert.Equal(t, 5.0, number(t, state.Vars, "score"), "effects apply before the fallback")
	require.Len(t, teleports, 1)
	assert.Equal(t, Teleport{SceneID: "S2", ChoiceID: "lost", TargetID: "deleted", FallbackID: "S1"}, teleports[0])
}

func TestStrictModeRejectsDanglingTarget(t *testing.T) {
	g := twoScenes()
	g.Scenes[0].Choices[0].TargetID = "deleted"
	engine := NewEngine(g, Options{MissingTarget: Strict})

	state := engine.Begin()
	_, err := engine.Step(state, "go")
	var targetErr *TargetError
	require.True(t, errors.As(err, &targetErr))
	assert.Equal(t, "deleted", targetErr.TargetID)
}

func TestEmptyGraph(t *testing.T) {
	engine := NewEngine(&story.Graph{}, Options{})
	state := engine.Begin()
	assert.Nil(t, state.Current)
	assert.NotNil(t, state.Vars)
	assert.Empty(t, engine.VisibleChoices(state))

	_, err := engine.Step(state, "any")
	assert.ErrorIs(t, err, ErrNoCurrentScene)

	session := NewSession(NewEngine(nil, Options{}))
	assert.Nil(t, session.Current())
	assert.Equal(t, "Variables: none", session.Summary())
	assert.Empty(t, session.History())
}

func TestMalformedConditionHidesChoice(t *testing.T) {
	g := twoScenes()
	g.Scenes[0].Choices = append(g.Scenes[0].Choices,
		story.Choice{ID: "broken", TargetID: "S2", Condition: "score >"},
		story.Choice{ID: "unknown", TargetID: "S2", Condition: "missing == 1"},
	)
	engine := NewEngine(g, Options{})
	assert.Equal(t, []string{"go"}, choiceIDs(engine.VisibleChoices(engine.Begin())))
}

func TestStartSceneFallback(t *testing.T) {
	g := twoScenes()
	g.StartSceneID = "gone"
	engine := NewEngine(g, Options{})
	assert.Equal(t, "S1", engine.Begin().Current.ID)
}

func TestSessionsAreIndependent(t *testing.T) {
	engine := NewEngine(twoScenes(), Options{})
	a := NewSession(engine)
	b := NewSession(engine)

	_, err := a.Choose("go")
	require.NoError(t, err)

	assert.Equal(t, "S2", a.Current().ID)
	assert.Equal(t, "S1", b.Current().ID)
	assert.Equal(t, "Variables: score: 1", a.Summary())
	assert.Equal(t, "Variables: score: 0", b.Summary())
	assert.Equal(t, []string{"S1", "S2"}, a.History())

	a.Restart()
	assert.Equal(t, "S1", a.Current().ID)
	assert.Equal(t, "Variables: score: 0", a.Summary())
	assert.Equal(t, []string{"S1"}, a.History())
}

func TestSessionChooseErrorKeepsState(t *testing.T) {
	session := NewSession(NewEngine(twoScenes(), Options{}))
	_, err := session.Choose("missing")
	require.Error(t, err)
	assert.Equal(t, "S1", session.Current().ID)
	assert.Equal(t, []string{"S1"}, session.History())
}

func TestConcurrentWalksOnSharedGraph(t *testing.T) {
	engine := NewEngine(twoScenes(), Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSession(engine)
			if _, err := s.Choose("go"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0.0, number(t, engine.Begin().Vars, "score"))
}
