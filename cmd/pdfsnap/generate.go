package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/wudi/pdfsnap/config"
	"github.com/wudi/pdfsnap/overlay"
	"github.com/wudi/pdfsnap/pool"
)

func generate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	template := fs.String("template", "", "template PDF path or URL")
	varsPath := fs.String("vars", "", "JSON file with the variable list")
	outPath := fs.String("out", "output.pdf", "where to write the generated PDF")
	footer := fs.Bool("footer", false, "stamp the verification footer on every page")
	configPath := fs.String("config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *template == "" || *varsPath == "" {
		return errors.New("-template and -vars are required")
	}
	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		return err
	}
	rt, err := newApp(cfg, stderr, true)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*varsPath)
	if err != nil {
		return err
	}
	var vars overlay.Variables
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("parse %s: %w", *varsPath, err)
	}
	res, err := render(ctx, rt, *template, vars, *footer)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, res.PDF, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d pages, %d bytes)\nverification code: %s\n",
		*outPath, res.Pages, len(res.PDF), res.VerificationCode)
	return nil
}

func render(ctx context.Context, rt *app, template string, vars overlay.Variables, footer bool) (*overlay.Result, error) {
	workers := pool.New[*overlay.Result](1)
	defer workers.Close()
	return workers.Submit(ctx, func(ctx context.Context) (*overlay.Result, error) {
		tmpl, err := rt.fetcher.Template(ctx, template)
		if err != nil {
			return nil, err
		}
		return rt.engine.Generate(ctx, overlay.Request{Template: tmpl, Variables: vars, Footer: footer})
	})
}
