// Command storyplayer riproduce una storia esportata nel terminale.
//
// Lo snapshot viene incorporato dall'export, che aggiunge al package un file
// generato (zz_payload_gen.go) tramite "go build -overlay",
// oppure letto da un file passato come argomento (JSON o payload base64).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bild-story/player"
	"bild-story/snapshot"
	"bild-story/story"
)

// payload è lo snapshot codificato come nel link di condivisione
var payload string

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storyplayer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	graph, err := loadGraph(os.Args[1:])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []player.Option
	if os.Getenv("BILD_STRICT_TARGETS") == "true" {
		opts = append(opts, player.WithStrictTargets())
	}
	return player.Run(ctx, graph, os.Stdin, os.Stdout, opts...)
}

func loadGraph(args []string) (*story.Graph, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "{") {
			return snapshot.Decode(data)
		}
		return snapshot.ParseShareURL(trimmed)
	}
	if payload == "" {
		return nil, fmt.Errorf("no embedded story: pass a story file")
	}
	return snapshot.DecodeShare(payload)
}
