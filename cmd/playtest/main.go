// Command playtest esegue gli script YAML di una cartella contro le storie
// indicate e scrive un report JSON accanto a ogni script.
//
//	playtest -dir playtests
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"bild-story/observability"
	"bild-story/playtest"
)

func main() {
	dir := flag.String("dir", "playtests", "cartella con gli script .yaml")
	dialect := flag.String("dialect", "", "dialetto delle espressioni (default: bild)")
	debug := flag.Bool("debug", false, "log dettagliati")
	flag.Parse()

	logger, err := observability.NewLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playtest: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	summary, err := playtest.NewRunner(*dir, *dialect, logger, os.Stdout).Run()
	if err != nil {
		logger.Error("❌ Playtest non eseguiti", zap.Error(err))
		os.Exit(1)
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}
