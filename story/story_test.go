package story

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bild-story/variables"
)

func sampleGraph() *Graph {
	return &Graph{
		Scenes: []Scene{
			{ID: "s1", Title: "Gate", Choices: []Choice{
				{ID: "c1", Text: "Enter", TargetID: "s2"},
				{ID: "c2", Text: "Wait", TargetID: "s1", Condition: "score > 1"},
			}},
			{ID: "s2", Title: "Hall", Choices: []Choice{}},
			{ID: "s3", Title: "Attic", Choices: []Choice{}},
		},
		Variables:    []Variable{{Name: "score", Value: variables.NumberValue(0)}},
		StartSceneID: "s1",
	}
}

func TestQueries(t *testing.T) {
	g := sampleGraph()

	scene, ok := g.FindScene("s2")
	require.True(t, ok)
	assert.Equal(t, "Hall", scene.Title)

	_, ok = g.FindScene("nope")
	assert.False(t, ok)
	_, ok = g.FindScene("")
	assert.False(t, ok)

	start, ok := g.StartScene()
	require.True(t, ok)
	assert.Equal(t, "s1", start.ID)

	choices := g.OutgoingChoices(start)
	require.Len(t, choices, 2)
	assert.Equal(t, "c1", choices[0].ID)
	assert.Equal(t, "c2", choices[1].ID)
	assert.Nil(t, g.OutgoingChoices(nil))

	choice, ok := g.FindChoice("s1", "c2")
	require.True(t, ok)
	assert.Equal(t, "Wait", choice.Text)
}

func TestStartSceneFallsBackToFirst(t *testing.T) {
	g := sampleGraph()
	g.StartSceneID = "deleted"
	start, ok := g.StartScene()
	require.True(t, ok)
	assert.Equal(t, "s1", start.ID)

	g.StartSceneID = ""
	start, ok = g.StartScene()
	require.True(t, ok)
	assert.Equal(t, "s1", start.ID)

	empty := &Graph{}
	_, ok = empty.StartScene()
	assert.False(t, ok)
}

func TestNewDefault(t *testing.T) {
	g := NewDefault()
	require.Len(t, g.Scenes, 1)
	assert.Equal(t, g.Scenes[0].ID, g.StartSceneID)
	assert.True(t, strings.HasPrefix(g.StartSceneID, "scene-"))
	assert.Equal(t, "score: 0", g.InitialStore().Summary())
}

func TestAuthoringScenes(t *testing.T) {
	g := &Graph{}
	first := g.AddScene("", "")
	assert.Equal(t, DefaultSceneTitle, first.Title)
	assert.Equal(t, first.ID, g.StartSceneID, "first scene becomes the start")
	firstID := first.ID

	second := g.AddScene("Forest", "Dark trees")
	secondID := second.ID
	assert.Equal(t, Position{X: 120, Y: 100}, second.Position)
	assert.NotEqual(t, firstID, secondID)

	title := "Deep forest"
	bg := "https://example.org/bg.png"
	updated, err := g.UpdateScene(secondID, ScenePatch{Title: &title, Media: &MediaPatch{Background: &bg}})
	require.NoError(t, err)
	assert.Equal(t, "Deep forest", updated.Title)
	assert.Equal(t, bg, updated.Media.Background)
	assert.Equal(t, "Dark trees", updated.Body)

	audio := "theme.ogg"
	_, err = g.UpdateScene(secondID, ScenePatch{Media: &MediaPatch{Audio: &audio}})
	require.NoError(t, err)
	scene, _ := g.FindScene(secondID)
	assert.Equal(t, bg, scene.Media.Background, "media patches merge per field")
	assert.Equal(t, audio, scene.Media.Audio)

	_, err = g.UpdateScene("missing", ScenePatch{})
	assert.True(t, errors.Is(err, ErrSceneNotFound))

	require.NoError(t, g.DeleteScene(firstID))
	assert.Equal(t, secondID, g.StartSceneID, "start moves to the first remaining scene")

	require.NoError(t, g.DeleteScene(secondID))
	assert.Equal(t, "", g.StartSceneID)
	assert.Error(t, g.DeleteScene(secondID))
}

func TestAuthoringChoices(t *testing.T) {
	g := sampleGraph()

	choice, err := g.AddChoice("s2")
	require.NoError(t, err)
	assert.Equal(t, "s1", choice.TargetID, "new choices target the start scene")
	assert.Equal(t, DefaultChoiceText, choice.Text)
	choiceID := choice.ID

	cond := "score >= 3"
	target := "s3"
	updated, err := g.UpdateChoice("s2", choiceID, ChoicePatch{Condition: &cond, TargetID: &target})
	require.NoError(t, err)
	assert.Equal(t, cond, updated.Condition)
	assert.Equal(t, "s3", updated.TargetID)

	_, err = g.UpdateChoice("s2", "ghost", ChoicePatch{})
	assert.True(t, errors.Is(err, ErrChoiceNotFound))
	_, err = g.AddChoice("ghost")
	assert.True(t, errors.Is(err, ErrSceneNotFound))

	require.NoError(t, g.DeleteChoice("s2", choiceID))
	assert.Empty(t, g.Scenes[1].Choices)
	assert.True(t, errors.Is(g.DeleteChoice("s2", choiceID), ErrChoiceNotFound))
}

func TestAuthoringVariables(t *testing.T) {
	g := sampleGraph()
	v := g.AddVariable()
	assert.Equal(t, "var2", v.Name)

	name := "gold"
	raw := " 'coins' "
	updated, err := g.UpdateVariable(1, &name, &raw)
	require.NoError(t, err)
	assert.Equal(t, "gold", updated.Name)
	s, ok := updated.Value.AsString()
	assert.True(t, ok)
	assert.Equal(t, "coins", s)

	raw = "12"
	_, err = g.UpdateVariable(1, nil, &raw)
	require.NoError(t, err)
	n, ok := g.Variables[1].Value.AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 12.0, n)

	_, err = g.UpdateVariable(5, nil, nil)
	assert.True(t, errors.Is(err, ErrVariableNotFound))

	require.NoError(t, g.DeleteVariable(0))
	assert.Equal(t, "gold", g.Variables[0].Name)
}

func TestSetStart(t *testing.T) {
	g := sampleGraph()
	require.NoError(t, g.SetStart("s2"))
	assert.Equal(t, "s2", g.StartSceneID)
	assert.Error(t, g.SetStart("missing"))
}

func TestCloneIsDeep(t *testing.T) {
	g := sampleGraph()
	clone := g.Clone()
	assert.Equal(t, g, clone)

	clone.Scenes[0].Choices[0].Text = "changed"
	clone.Variables[0].Name = "other"
	assert.Equal(t, "Enter", g.Scenes[0].Choices[0].Text)
	assert.Equal(t, "score", g.Variables[0].Name)
}

type fakeChecker struct{}

func (fakeChecker) Check(expr string) error {
	if strings.Contains(expr, "!!bad") {
		return errors.New("bad condition")
	}
	return nil
}

func (fakeChecker) CheckEffects(effects string) error {
	if strings.Contains(effects, "!!bad") {
		return errors.New("bad effects")
	}
	return nil
}

func TestValidate(t *testing.T) {
	g := sampleGraph()
	g.Scenes[0].Choices = append(g.Scenes[0].Choices,
		Choice{ID: "c3", Text: "Jump", TargetID: "void", Condition: "!!bad"},
		Choice{ID: "c1", Text: "Dup", TargetID: "s2", Effects: "!!bad"},
	)
	g.Variables = append(g.Variables, Variable{Name: ""}, Variable{Name: "score"})

	result := g.Validate(fakeChecker{})
	assert.False(t, result.Valid)

	codes := map[string]int{}
	for _, issue := range append(result.Errors, result.Warnings...) {
		codes[issue.Code]++
	}
	assert.Equal(t, 1, codes["duplicate_choice_id"])
	assert.Equal(t, 1, codes["dangling_target"])
	assert.Equal(t, 1, codes["invalid_condition"])
	assert.Equal(t, 1, codes["invalid_effects"])
	assert.Equal(t, 1, codes["unreachable_scene"], "s3 has no incoming choice")
	assert.Equal(t, 1, codes["empty_variable_name"])
	assert.Equal(t, 1, codes["duplicate_variable"])
	assert.Zero(t, codes["missing_start"])
}

func TestValidateInvalidExpressionsAreWarnings(t *testing.T) {
	g := sampleGraph()
	g.Scenes = g.Scenes[:2]
	g.Scenes[0].Choices[0].Condition = "!!bad"
	g.Scenes[0].Choices[0].Effects = "!!bad"

	result := g.Validate(fakeChecker{})
	assert.True(t, result.Valid, "a story with broken expressions still plays")
	assert.Empty(t, result.Errors)
	codes := map[string]Severity{}
	for _, issue := range result.Warnings {
		codes[issue.Code] = issue.Severity
	}
	assert.Equal(t, SeverityWarning, codes["invalid_condition"])
	assert.Equal(t, SeverityWarning, codes["invalid_effects"])
}

func TestValidateCleanGraph(t *testing.T) {
	g := sampleGraph()
	g.Scenes = g.Scenes[:2]
	result := g.Validate(nil)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)

	empty := (&Graph{}).Validate(nil)
	assert.True(t, empty.Valid)
	require.Len(t, empty.Warnings, 1)
	assert.Equal(t, "empty_graph", empty.Warnings[0].Code)
}

func TestReachableFollowsDanglingToFirstScene(t *testing.T) {
	g := &Graph{
		Scenes: []Scene{
			{ID: "a", Choices: []Choice{}},
			{ID: "b", Choices: []Choice{{ID: "x", TargetID: "gone"}}},
		},
		StartSceneID: "b",
	}
	reach := g.Reachable()
	assert.True(t, reach["a"])
	assert.True(t, reach["b"])
}
