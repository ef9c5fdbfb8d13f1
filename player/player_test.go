package player

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bild-story/story"
	"bild-story/variables"
)

func tale() *story.Graph {
	return &story.Graph{
		Scenes: []story.Scene{
			{ID: "s1", Title: "Bosco", Body: "Un sentiero.", Media: story.Media{Image: "forest.png"}, Choices: []story.Choice{
				{ID: "c1", Text: "Avanti", TargetID: "s2", Effects: "score = score + 1"},
				{ID: "c2", Text: "Segreto", TargetID: "s2", Condition: "score > 5"},
			}},
			{ID: "s2", Title: "Radura", Choices: []story.Choice{}},
		},
		Variables:    []story.Variable{{Name: "score", Value: variables.NumberValue(0)}},
		StartSceneID: "s1",
	}
}

func play(t *testing.T, g *story.Graph, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), g, strings.NewReader(input), &out))
	return out.String()
}

func TestRunPlaysToTheEnd(t *testing.T) {
	out := play(t, tale(), "1\nq\n")

	assert.Contains(t, out, "== Bosco ==")
	assert.Contains(t, out, "[image: forest.png]")
	assert.Contains(t, out, "Variables: score: 0")
	assert.Contains(t, out, "1) Avanti")
	assert.NotContains(t, out, "Segreto")
	assert.Contains(t, out, "== Radura ==")
	assert.Contains(t, out, "Variables: score: 1")
	assert.Contains(t, out, "The end.")
	assert.True(t, strings.HasSuffix(out, "Bye.\n"))
}

func TestRunRestart(t *testing.T) {
	out := play(t, tale(), "1\nr\n")
	assert.Equal(t, 2, strings.Count(out, "== Bosco =="))
	assert.Equal(t, 2, strings.Count(out, "Variables: score: 0"))
}

func TestRunRejectsInvalidInput(t *testing.T) {
	out := play(t, tale(), "7\nabc\n\n1\n")
	assert.Contains(t, out, `Unknown command "7"`)
	assert.Contains(t, out, `Unknown command "abc"`)
	assert.Contains(t, out, "== Radura ==")
}

func TestRunEmptyGraph(t *testing.T) {
	out := play(t, &story.Graph{}, "")
	assert.Equal(t, "The story has no scenes.\n", out)
}

func TestRunStrictTargets(t *testing.T) {
	g := tale()
	g.Scenes[0].Choices[0].TargetID = "missing"

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), g, strings.NewReader("1\n"), &out, WithStrictTargets()))
	assert.Contains(t, out.String(), "Cannot continue")

	out.Reset()
	require.NoError(t, Run(context.Background(), g, strings.NewReader("1\n"), &out))
	assert.Equal(t, 2, strings.Count(out.String(), "== Bosco =="), "dangling target returns to the first scene")
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := Run(ctx, tale(), strings.NewReader("1\n"), &out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDoesNotMutateGraph(t *testing.T) {
	g := tale()
	play(t, g, "1\n")
	assert.Equal(t, tale(), g)
}
