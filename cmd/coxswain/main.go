// Package main provides the entry point for the coxswain CLI.
package main

import (
	"context"
	"os"

	"github.com/mtessler/coxswain/internal/cli"
	"github.com/mtessler/coxswain/internal/signal"
)

// Build information set via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	h := signal.NewHandler(context.Background())
	defer h.Stop()

	info := cli.BuildInfo{Version: version, Commit: commit, Date: date}
	if err := cli.Execute(h.Context(), info); err != nil {
		h.Stop()
		os.Exit(cli.ExitCodeForError(err))
	}
}
