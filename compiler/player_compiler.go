package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"bild-story/snapshot"
	"bild-story/story"
)

// PayloadFile è il file generato aggiunto al package del player tramite
// "go build -overlay"; assegna la variabile payload in init()
const PayloadFile = "zz_payload_gen.go"

// PlayerCompiler costruisce il player standalone con lo snapshot incorporato,
// invocando "go build" sul package del player
type PlayerCompiler struct {
	goPath    string
	moduleDir string
	pkg       string
	workDir   string
	logger    *zap.Logger
}

// CompileOptions opzioni per la compilazione
type CompileOptions struct {
	Output         string   // File output (default: "<story>-player")
	GOOS           string   // Sistema operativo target (default: host)
	GOARCH         string   // Architettura target (default: host)
	Strict         bool     // I warning del lint diventano errori
	AdditionalArgs []string // Argomenti aggiuntivi per go build
}

// CompileResult risultato della compilazione
type CompileResult struct {
	Success      bool     `json:"success"`
	Output       string   `json:"output"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Warnings     []string `json:"warnings"`
	OutputFile   string   `json:"output_file,omitempty"`
}

// NewPlayerCompiler crea un nuovo compiler. moduleDir è la root del modulo,
// pkg il package del player (es. "./cmd/storyplayer"), workDir la
// directory degli eseguibili prodotti.
func NewPlayerCompiler(goPath, moduleDir, pkg, workDir string, logger *zap.Logger) (*PlayerCompiler, error) {
	// Se goPath è vuoto, cerca go nel PATH
	if goPath == "" {
		path, err := exec.LookPath("go")
		if err != nil {
			return nil, errors.New("go toolchain non trovato nel PATH")
		}
		goPath = path
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pkg == "" {
		pkg = "./cmd/storyplayer"
	}

	// Se workDir non esiste, crealo
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return nil, fmt.Errorf("impossibile creare workDir: %w", err)
		}
	}

	return &PlayerCompiler{
		goPath:    goPath,
		moduleDir: moduleDir,
		pkg:       pkg,
		workDir:   workDir,
		logger:    logger,
	}, nil
}

// Compile costruisce il player per il grafo indicato
func (pc *PlayerCompiler) Compile(ctx context.Context, name string, graph *story.Graph, checker story.ExpressionChecker, options *CompileOptions) (*CompileResult, error) {
	result := &CompileResult{Warnings: []string{}}

	// Opzioni di default
	if options == nil {
		options = &CompileOptions{}
	}

	// Validazione pre-compilazione
	warnings, err := validateBeforeCompile(graph, checker, options.Strict)
	result.Warnings = append(result.Warnings, warnings...)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	payload, err := snapshot.EncodeShare(graph)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	// Il payload non passa dalla riga di comando (limite di lunghezza degli argomenti)
	buildDir, err := os.MkdirTemp("", "bild-player-")
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, fmt.Errorf("impossibile creare directory di build: %w", err)
	}
	defer os.RemoveAll(buildDir)

	overlay, err := writeOverlay(buildDir, pc.packageDir(), payload)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	outputPath := pc.outputPath(name, options)
	cmd := exec.CommandContext(ctx, pc.goPath, buildArgs(overlay, outputPath, pc.pkg, options)...)
	cmd.Dir = pc.moduleDir
	cmd.Env = buildEnv(os.Environ(), options)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	pc.logger.Info("⚙️ Compilazione player",
		zap.String("story", name),
		zap.String("output", outputPath),
		zap.Int("payload_bytes", len(payload)),
	)
	err = cmd.Run()

	// Cattura output
	result.Output = stdout.String()
	warns, errMsg := splitDiagnostics(stderr.String())
	result.Warnings = append(result.Warnings, warns...)
	result.ErrorMessage = errMsg

	if err != nil {
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("errore esecuzione go build: %v\n%s", err, stderr.String())
		}
		return result, fmt.Errorf("compilazione fallita: %w", err)
	}

	result.Success = true
	result.OutputFile = outputPath
	return result, nil
}

// GetVersion ritorna la versione della toolchain go
func (pc *PlayerCompiler) GetVersion(ctx context.Context) (string, error) {
	output, err := exec.CommandContext(ctx, pc.goPath, "version").Output()
	if err != nil {
		return "", fmt.Errorf("impossibile ottenere versione go: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func (pc *PlayerCompiler) outputPath(name string, options *CompileOptions) string {
	output := options.Output
	if output == "" {
		output = name + "-player"
		goos := options.GOOS
		if goos == "" {
			goos = runtime.GOOS
		}
		if goos == "windows" {
			output += ".exe"
		}
	}
	if !filepath.IsAbs(output) && pc.workDir != "" {
		output = filepath.Join(pc.workDir, output)
	}
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	return output
}

// packageDir restituisce il path assoluto del package del player
func (pc *PlayerCompiler) packageDir() string {
	dir := filepath.Join(pc.moduleDir, pc.pkg)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// payloadSource genera il sorgente che incorpora lo snapshot nel player
func payloadSource(payload string) []byte {
	return []byte("// Code generated by bild-story. DO NOT EDIT.\n\n" +
		"package main\n\n" +
		"func init() {\n\tpayload = " + strconv.Quote(payload) + "\n}\n")
}

// writeOverlay scrive in dir il sorgente del payload e il file di overlay
// che lo aggiunge al package pkgDir; restituisce il path dell'overlay
func writeOverlay(dir, pkgDir, payload string) (string, error) {
	source := filepath.Join(dir, PayloadFile)
	if err := os.WriteFile(source, payloadSource(payload), 0o644); err != nil {
		return "", fmt.Errorf("errore scrittura payload: %w", err)
	}

	data, err := json.Marshal(struct {
		Replace map[string]string
	}{
		Replace: map[string]string{filepath.Join(pkgDir, PayloadFile): source},
	})
	if err != nil {
		return "", err
	}
	overlay := filepath.Join(dir, "overlay.json")
	if err := os.WriteFile(overlay, data, 0o644); err != nil {
		return "", fmt.Errorf("errore scrittura overlay: %w", err)
	}
	return overlay, nil
}

// buildArgs costruisce la riga di comando di go build
func buildArgs(overlay, output, pkg string, options *CompileOptions) []string {
	args := []string{
		"build",
		"-trimpath",
		"-overlay", overlay,
		"-o", output,
		"-ldflags", "-s -w",
	}
	// Argomenti aggiuntivi
	args = append(args, options.AdditionalArgs...)
	// Package (sempre per ultimo)
	return append(args, pkg)
}

func buildEnv(base []string, options *CompileOptions) []string {
	env := append([]string{}, base...)
	env = append(env, "CGO_ENABLED=0")
	if options.GOOS != "" {
		env = append(env, "GOOS="+options.GOOS)
	}
	if options.GOARCH != "" {
		env = append(env, "GOARCH="+options.GOARCH)
	}
	return env
}

// splitDiagnostics separa warning ed errori nell'output di go build
func splitDiagnostics(stderr string) ([]string, string) {
	var warnings []string
	var errMsg strings.Builder
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(strings.ToLower(line), "warning") {
			warnings = append(warnings, line)
		} else {
			errMsg.WriteString(line + "\n")
		}
	}
	return warnings, errMsg.String()
}

// validateBeforeCompile verifica che il grafo sia riproducibile
func validateBeforeCompile(graph *story.Graph, checker story.ExpressionChecker, strict bool) ([]string, error) {
	if graph == nil || len(graph.Scenes) == 0 {
		return nil, errors.New("la storia non ha scene")
	}

	report := graph.Validate(checker)
	warnings := make([]string, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		warnings = append(warnings, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	if len(report.Errors) > 0 {
		return warnings, fmt.Errorf("la storia ha %d errori: %s", len(report.Errors), report.Errors[0].Message)
	}
	if strict && len(warnings) > 0 {
		return warnings, fmt.Errorf("modalità strict: %d warning", len(warnings))
	}
	return warnings, nil
}
