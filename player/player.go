package player

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bild-story/formats"
	"bild-story/story"
	"bild-story/traversal"
)

// Comandi riconosciuti oltre al numero del choice
const (
	CommandRestart = "r"
	CommandQuit    = "q"
)

// Option configura il player
type Option func(*traversal.Options)

// WithLogger imposta il logger dell'engine
func WithLogger(logger *zap.Logger) Option {
	return func(o *traversal.Options) { o.Logger = logger }
}

// WithDialect imposta il dialetto delle espressioni
func WithDialect(d formats.Dialect) Option {
	return func(o *traversal.Options) { o.Dialect = d }
}

// WithStrictTargets rende errore un choice con target mancante
func WithStrictTargets() Option {
	return func(o *traversal.Options) { o.MissingTarget = traversal.Strict }
}

// Run esegue il loop di gioco testuale: mostra la scena, i choice visibili e
// la riga delle variabili, poi legge un comando per riga da in.
// Termina con "q", a fine input o alla cancellazione del context.
func Run(ctx context.Context, graph *story.Graph, in io.Reader, out io.Writer, opts ...Option) error {
	var options traversal.Options
	for _, opt := range opts {
		opt(&options)
	}
	session := traversal.NewSession(traversal.NewEngine(graph.Clone(), options))

	if session.Current() == nil {
		_, err := fmt.Fprintln(out, "The story has no scenes.")
		return err
	}

	w := bufio.NewWriter(out)
	defer w.Flush()

	scanner := bufio.NewScanner(in)
	render(w, session)
	for {
		if err := w.Flush(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case CommandQuit:
			fmt.Fprintln(w, "Bye.")
			return nil
		case CommandRestart:
			session.Restart()
			render(w, session)
			continue
		}

		visible := session.Visible()
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(visible) {
			fmt.Fprintf(w, "Unknown command %q: pick 1-%d, %s to restart or %s to quit.\n> ",
				input, len(visible), CommandRestart, CommandQuit)
			continue
		}

		if _, err := session.Choose(visible[n-1].ID); err != nil {
			fmt.Fprintf(w, "Cannot continue: %v\n> ", err)
			continue
		}
		render(w, session)
	}
}

// render scrive la scena corrente
func render(w io.Writer, session *traversal.Session) {
	scene := session.Current()
	fmt.Fprintf(w, "\n== %s ==\n", scene.Title)
	if scene.Body != "" {
		fmt.Fprintln(w, scene.Body)
	}
	for _, line := range mediaLines(scene.Media) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, session.Summary())

	visible := session.Visible()
	if len(visible) == 0 {
		fmt.Fprintf(w, "The end. (%s to restart, %s to quit)\n> ", CommandRestart, CommandQuit)
		return
	}
	for i, choice := range visible {
		fmt.Fprintf(w, "  %d) %s\n", i+1, choice.Text)
	}
	fmt.Fprint(w, "> ")
}

func mediaLines(m story.Media) []string {
	if m.IsEmpty() {
		return nil
	}
	var lines []string
	for _, item := range []struct{ label, ref string }{
		{"background", m.Background},
		{"image", m.Image},
		{"audio", m.Audio},
		{"video", m.Video},
	} {
		if item.ref != "" {
			lines = append(lines, fmt.Sprintf("[%s: %s]", item.label, item.ref))
		}
	}
	return lines
}
