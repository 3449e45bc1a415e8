// Command pdfink views a PDF and lets you draw ink annotations on its
// pages. Annotations are stored next to the document in a
// .annotations.json sidecar file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"pdfink/internal/config"
	"pdfink/internal/version"
	"pdfink/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfink: bad configuration: %v\n", err)
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: pdfink <document.pdf>")
		os.Exit(2)
	}
	log.Info("pdfink starting", "version", version.Version, "doc", os.Args[1])

	if err := ui.Run(cfg, log, os.Args[1]); err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
