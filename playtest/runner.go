package playtest

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"bild-story/formats"
	"bild-story/snapshot"
	"bild-story/traversal"
	"bild-story/variables"
)

// ReportSuffix è il suffisso dei report salvati accanto agli script
const ReportSuffix = "_report.json"

// Runner esegue gli script di playtest contenuti in una cartella
type Runner struct {
	baseDir string
	dialect string
	logger  *zap.Logger
	out     io.Writer
}

// Report è il risultato di uno script
type Report struct {
	Script      string               `json:"script"`
	Name        string               `json:"name,omitempty"`
	Story       string               `json:"story"`
	RanAt       string               `json:"ran_at"`
	Success     bool                 `json:"success"`
	Error       string               `json:"error,omitempty"`
	Start       *StepReport          `json:"start,omitempty"`
	Steps       []StepReport         `json:"steps"`
	Teleports   []traversal.Teleport `json:"teleports,omitempty"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
}

// StepReport è il risultato di un passo
type StepReport struct {
	Index    int      `json:"index"`
	Choice   string   `json:"choice,omitempty"`
	Scene    string   `json:"scene"`
	Summary  string   `json:"summary"`
	Success  bool     `json:"success"`
	Failures []string `json:"failures,omitempty"`
}

// Summary riassunto dell'esecuzione
type Summary struct {
	TotalScripts int    `json:"total_scripts"`
	Passed       int    `json:"passed"`
	Failed       int    `json:"failed"`
	Steps        int    `json:"steps"`
	Duration     string `json:"duration"`
}

// NewRunner crea un runner sulla cartella indicata. out riceve l'output
// leggibile, logger i dettagli.
func NewRunner(baseDir, dialect string, logger *zap.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	if dialect == "" {
		dialect = formats.DefaultDialect
	}
	return &Runner{baseDir: baseDir, dialect: dialect, logger: logger, out: out}
}

// FindScripts trova tutti i file .yaml/.yml nella cartella
func (r *Runner) FindScripts() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("impossibile leggere cartella playtest: %w", err)
	}
	return files, nil
}

// Run esegue tutti gli script, salva un report JSON per ciascuno e stampa il riassunto
func (r *Runner) Run() (*Summary, error) {
	startTime := time.Now()

	if !formats.IsDialectRegistered(r.dialect) {
		return nil, fmt.Errorf("dialetto '%s' non registrato", r.dialect)
	}

	scripts, err := r.FindScripts()
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("nessuno script .yaml trovato in %s", r.baseDir)
	}

	summary := &Summary{TotalScripts: len(scripts)}
	fmt.Fprintf(r.out, "\n📁 Trovati %d script in %s\n", len(scripts), r.baseDir)
	fmt.Fprintln(r.out, strings.Repeat("─", 50))

	for _, path := range scripts {
		fmt.Fprintf(r.out, "\n📄 %s\n", filepath.Base(path))

		report := r.RunScript(path)
		summary.Steps += len(report.Steps)
		if report.Success {
			summary.Passed++
			fmt.Fprintf(r.out, "   ✅ OK - %d passi\n", len(report.Steps))
		} else {
			summary.Failed++
			r.printFailures(report)
		}
		if len(report.Teleports) > 0 {
			fmt.Fprintf(r.out, "   ⚠️  %d salti alla prima scena\n", len(report.Teleports))
		}

		reportPath := ReportPath(path)
		if err := saveJSON(reportPath, report); err != nil {
			fmt.Fprintf(r.out, "   ⚠️  Errore salvataggio report: %v\n", err)
		} else {
			fmt.Fprintf(r.out, "   💾 %s\n", filepath.Base(reportPath))
		}
	}

	summary.Duration = time.Since(startTime).String()

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, strings.Repeat("═", 50))
	fmt.Fprintln(r.out, "📊 RIASSUNTO PLAYTEST")
	fmt.Fprintln(r.out, strings.Repeat("═", 50))
	fmt.Fprintf(r.out, "   Script eseguiti:  %d\n", summary.TotalScripts)
	fmt.Fprintf(r.out, "   Superati:         %d/%d\n", summary.Passed, summary.TotalScripts)
	fmt.Fprintf(r.out, "   Passi totali:     %d\n", summary.Steps)
	fmt.Fprintf(r.out, "   Durata:           %s\n", summary.Duration)
	fmt.Fprintln(r.out, strings.Repeat("═", 50))

	return summary, nil
}

// RunScript esegue un singolo script. Gli errori di caricamento finiscono nel report.
func (r *Runner) RunScript(path string) *Report {
	report := &Report{
		Script: filepath.Base(path),
		RanAt:  time.Now().Format(time.RFC3339),
		Steps:  []StepReport{},
	}

	script, err := LoadScript(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Name = script.Name
	report.Story = script.Story

	storyPath := script.Story
	if !filepath.IsAbs(storyPath) {
		storyPath = filepath.Join(filepath.Dir(path), storyPath)
	}
	data, err := os.ReadFile(storyPath)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	graph, err := snapshot.Decode(data)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	opts := traversal.Options{
		Dialect: formats.GetDialect(r.dialect, func(d formats.Diagnostic) {
			report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("%s %q: %s", d.Kind, d.Expression, d.Message()))
		}),
		Logger: r.logger.With(zap.String("script", report.Script)),
		OnTeleport: func(t traversal.Teleport) {
			report.Teleports = append(report.Teleports, t)
		},
	}
	if script.Strict {
		opts.MissingTarget = traversal.Strict
	}
	session := traversal.NewSession(traversal.NewEngine(graph, opts))

	report.Success = true
	if script.Start != nil {
		start := stepReport(0, "", session)
		start.Failures = check(script.Start, session)
		start.Success = len(start.Failures) == 0
		report.Start = &start
		report.Success = start.Success
	}

	for i, step := range script.Steps {
		sr := StepReport{Index: i + 1, Choice: step.Choose}

		switch {
		case step.Restart:
			session.Restart()
		default:
			_, err := session.Choose(step.Choose)
			switch {
			case err != nil && !step.Reject:
				sr.Failures = append(sr.Failures, err.Error())
			case err == nil && step.Reject:
				sr.Failures = append(sr.Failures, fmt.Sprintf("choice %q accettato, atteso rifiuto", step.Choose))
			}
		}

		sr.Scene, sr.Summary = currentScene(session), session.Summary()
		if step.Expect != nil {
			sr.Failures = append(sr.Failures, check(step.Expect, session)...)
		}
		sr.Success = len(sr.Failures) == 0
		report.Steps = append(report.Steps, sr)

		if !sr.Success {
			report.Success = false
			r.logger.Debug("passo fallito",
				zap.String("script", report.Script),
				zap.Int("step", sr.Index),
				zap.Strings("failures", sr.Failures),
			)
			// lo stato dopo un passo fallito non è più quello previsto
			break
		}
	}

	return report
}

func stepReport(index int, choice string, session *traversal.Session) StepReport {
	return StepReport{
		Index:   index,
		Choice:  choice,
		Scene:   currentScene(session),
		Summary: session.Summary(),
	}
}

func currentScene(session *traversal.Session) string {
	if scene := session.Current(); scene != nil {
		return scene.ID
	}
	return ""
}

// check confronta lo stato della sessione con le attese
func check(expect *Expectation, session *traversal.Session) []string {
	var failures []string

	if expect.Scene != "" && currentScene(session) != expect.Scene {
		failures = append(failures, fmt.Sprintf("scena %q, attesa %q", currentScene(session), expect.Scene))
	}

	visible := session.Visible()
	if expect.Visible != nil {
		ids := make([]string, 0, len(visible))
		for _, choice := range visible {
			ids = append(ids, choice.ID)
		}
		if strings.Join(ids, ",") != strings.Join(expect.Visible, ",") {
			failures = append(failures, fmt.Sprintf("choice visibili %v, attesi %v", ids, expect.Visible))
		}
	}

	if expect.Ended != nil && (len(visible) == 0) != *expect.Ended {
		failures = append(failures, fmt.Sprintf("fine partita %t, attesa %t", len(visible) == 0, *expect.Ended))
	}

	for name, raw := range expect.Variables {
		want, err := variables.FromInterface(raw)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		got, _ := session.Vars().Get(name)
		if !got.StrictEqual(want) {
			failures = append(failures, fmt.Sprintf("%s = %#v, atteso %#v", name, got, want))
		}
	}

	if expect.Summary != "" && session.Summary() != expect.Summary {
		failures = append(failures, fmt.Sprintf("riepilogo %q, atteso %q", session.Summary(), expect.Summary))
	}

	return failures
}

func (r *Runner) printFailures(report *Report) {
	if report.Error != "" {
		fmt.Fprintf(r.out, "   ❌ FAILED: %s\n", report.Error)
		return
	}
	steps := report.Steps
	if report.Start != nil {
		steps = append([]StepReport{*report.Start}, steps...)
	}
	for _, step := range steps {
		for _, failure := range step.Failures {
			fmt.Fprintf(r.out, "   ❌ passo %d: %s\n", step.Index, failure)
		}
	}
}

// ReportPath restituisce il path del report per uno script
func ReportPath(scriptPath string) string {
	ext := filepath.Ext(scriptPath)
	return strings.TrimSuffix(scriptPath, ext) + ReportSuffix
}

// saveJSON salva un oggetto come JSON
func saveJSON(path string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, jsonData, 0644)
}
