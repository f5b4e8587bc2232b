// Command artctl is the operator CLI for ArtScan.
package main

import (
	"log/slog"
	"os"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
