package playtest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bild-story/snapshot"
	"bild-story/story"
	"bild-story/variables"
)

func writeStory(t *testing.T, dir string) {
	t.Helper()
	g := &story.Graph{
		Scenes: []story.Scene{
			{ID: "S1", Title: "Start", Choices: []story.Choice{
				{ID: "go", Text: "Go", TargetID: "S2", Effects: "score = score + 1"},
				{ID: "secret", Text: "Secret", TargetID: "S2", Condition: "score > 10"},
				{ID: "lost", Text: "Lost", TargetID: "nowhere"},
			}},
			{ID: "S2", Title: "Hall", Choices: []story.Choice{
				{ID: "back", Text: "Back", TargetID: "S1", Condition: "score >= 1"},
			}},
		},
		Variables:    []story.Variable{{Name: "score", Value: variables.NumberValue(0)}},
		StartSceneID: "S1",
	}
	data, err := snapshot.Encode(g)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "story.json"), data, 0644))
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const passingScript = `
name: giro completo
story: story.json
start:
  scene: S1
  visible: [go, lost]
  summary: "Variables: score: 0"
steps:
  - choose: secret
    reject: true
  - choose: go
    expect:
      scene: S2
      visible: [back]
      variables: {score: 1}
  - choose: back
    expect:
      scene: S1
  - choose: lost
    expect:
      scene: S1
  - restart: true
    expect:
      variables: {score: 0}
      ended: false
`

func TestParseScript(t *testing.T) {
	script, err := ParseScript([]byte(passingScript))
	require.NoError(t, err)
	assert.Equal(t, "giro completo", script.Name)
	assert.Equal(t, []string{"go", "lost"}, script.Start.Visible)
	require.Len(t, script.Steps, 5)
	assert.True(t, script.Steps[0].Reject)
	assert.True(t, script.Steps[4].Restart)

	_, err = ParseScript([]byte("steps: []"))
	assert.Error(t, err, "missing story")

	_, err = ParseScript([]byte("story: a.json\nsteps:\n  - expect: {scene: S1}\n"))
	assert.Error(t, err, "step without action")

	_, err = ParseScript([]byte("story: a.json\nsteps:\n  - choose: go\n    restart: true\n"))
	assert.Error(t, err, "conflicting actions")

	_, err = ParseScript([]byte("story: [unclosed"))
	assert.Error(t, err)
}

func TestRunScriptPasses(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir)
	path := writeScript(t, dir, "ok.yaml", passingScript)

	report := NewRunner(dir, "", nil, nil).RunScript(path)
	require.Empty(t, report.Error)
	assert.True(t, report.Success, "%+v", report.Steps)
	require.NotNil(t, report.Start)
	assert.True(t, report.Start.Success)
	require.Len(t, report.Steps, 5)
	assert.Equal(t, "Variables: score: 1", report.Steps[1].Summary)
	require.Len(t, report.Teleports, 1)
	assert.Equal(t, "nowhere", report.Teleports[0].TargetID)
}

func TestRunScriptReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir)
	path := writeScript(t, dir, "bad.yml", `
story: story.json
steps:
  - choose: go
    expect:
      scene: S1
      variables: {score: 2}
  - choose: back
`)

	report := NewRunner(dir, "", nil, nil).RunScript(path)
	assert.False(t, report.Success)
	require.Len(t, report.Steps, 1, "execution stops at the first failing step")
	assert.Len(t, report.Steps[0].Failures, 2)
}

func TestRunScriptStrictTargets(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir)
	path := writeScript(t, dir, "strict.yaml", `
story: story.json
strict: true
steps:
  - choose: lost
    reject: true
    expect: {scene: S1}
`)

	report := NewRunner(dir, "", nil, nil).RunScript(path)
	assert.True(t, report.Success, "%+v", report.Steps)
	assert.Empty(t, report.Teleports)
}

func TestRunScriptCollectsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	g := &story.Graph{
		Scenes: []story.Scene{{ID: "A", Choices: []story.Choice{
			{ID: "broken", TargetID: "A", Condition: "score >"},
		}}},
	}
	data, err := snapshot.Encode(g)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "story.json"), data, 0644))
	path := writeScript(t, dir, "diag.yaml", "story: story.json\nstart: {visible: [], ended: true}\n")

	report := NewRunner(dir, "", nil, nil).RunScript(path)
	assert.True(t, report.Success)
	assert.NotEmpty(t, report.Diagnostics)
}

func TestRunScriptLoadErrors(t *testing.T) {
	dir := t.TempDir()
	missing := writeScript(t, dir, "missing.yaml", "story: nope.json\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"scenes": 3}`), 0644))
	broken := writeScript(t, dir, "broken.yaml", "story: broken.json\n")

	runner := NewRunner(dir, "", nil, nil)
	for _, path := range []string{missing, broken} {
		report := runner.RunScript(path)
		assert.False(t, report.Success)
		assert.NotEmpty(t, report.Error)
	}
}

func TestRunWritesReports(t *testing.T) {
	dir := t.TempDir()
	writeStory(t, dir)
	ok := writeScript(t, dir, "ok.yaml", passingScript)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	bad := writeScript(t, filepath.Join(dir, "nested"), "bad.yaml", "story: ../story.json\nstart: {scene: S2}\n")

	var out bytes.Buffer
	summary, err := NewRunner(dir, "", nil, &out).Run()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalScripts)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, out.String(), "RIASSUNTO PLAYTEST")

	data, err := os.ReadFile(ReportPath(ok))
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.True(t, report.Success)

	_, err = os.Stat(ReportPath(bad))
	assert.NoError(t, err)
	t.Logf("✅ Report scritti: %s, %s", filepath.Base(ReportPath(ok)), filepath.Base(ReportPath(bad)))
}

func TestRunErrors(t *testing.T) {
	_, err := NewRunner(t.TempDir(), "", nil, nil).Run()
	assert.Error(t, err, "no scripts")

	_, err = NewRunner(t.TempDir(), "harlowe", nil, nil).Run()
	assert.Error(t, err, "unknown dialect")
}
