// Command pdfsnap fills PDF templates with text, signatures and images.
//
//	pdfsnap serve [-config pdfsnap.yaml]
//	pdfsnap generate -template t.pdf -vars v.json -out o.pdf [-footer]
//	pdfsnap interactive
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/wudi/pdfsnap/config"
	"github.com/wudi/pdfsnap/fetch"
	"github.com/wudi/pdfsnap/fonts"
	"github.com/wudi/pdfsnap/observability"
	"github.com/wudi/pdfsnap/overlay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	var err error
	switch args[0] {
	case "serve":
		err = serve(ctx, args[1:], stderr)
	case "generate":
		err = generate(ctx, args[1:], stdout, stderr)
	case "interactive":
		err = interactive(ctx, args[1:], surveyPrompter{}, stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "pdfsnap: unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "pdfsnap %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfsnap <serve|generate|interactive> [flags]")
}

// app holds what every subcommand builds from the configuration.
type app struct {
	cfg     config.Config
	logger  observability.Logger
	fetcher *fetch.Client
	engine  *overlay.Engine
}

func newApp(cfg config.Config, logw io.Writer, allowFiles bool) (*app, error) {
	logger := observability.NewSlogLogger(logw, cfg.LogLevel)
	registry, err := fonts.NewRegistry(cfg.FontConfig())
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	fetcher := fetch.New(fetch.Config{
		Timeout:    cfg.FetchTimeout,
		MaxBytes:   cfg.MaxFetchBytes,
		AllowFiles: allowFiles,
		Logger:     logger,
	})
	engine, err := overlay.NewEngine(overlay.Config{
		Fonts:   registry,
		Images:  fetcher,
		Footer:  overlay.FooterConfig{URL: cfg.FooterURL, Label: cfg.FooterLabel},
		Lenient: cfg.Lenient,
		Logger:  logger,
		Tracer:  observability.LogTracer(logger),
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, fetcher: fetcher, engine: engine}, nil
}
