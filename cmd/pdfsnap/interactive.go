package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/wudi/pdfsnap/config"
	"github.com/wudi/pdfsnap/overlay"
)

// prompter asks the questions of the interactive mode.
type prompter interface {
	Input(message, def string) (string, error)
	Select(message string, options []string, def string) (string, error)
	Confirm(message string, def bool) (bool, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Input(message, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &out)
	return out, translateSurveyErr(err)
}

func (surveyPrompter) Select(message string, options []string, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Select{Message: message, Options: options, Default: def}, &out)
	return out, translateSurveyErr(err)
}

func (surveyPrompter) Confirm(message string, def bool) (bool, error) {
	var out bool
	err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out)
	return out, translateSurveyErr(err)
}

func translateSurveyErr(err error) error {
	if err == terminal.InterruptErr {
		return context.Canceled
	}
	return err
}

func interactive(ctx context.Context, args []string, p prompter, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("interactive", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		return err
	}
	rt, err := newApp(cfg, stderr, true)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "=== pdfsnap interactive generator ===")
	template, err := p.Input("PDF template path or URL", "")
	if err != nil {
		return err
	}
	vars, err := askVariables(ctx, p)
	if err != nil {
		return err
	}
	footer, err := p.Confirm("Stamp the verification footer?", false)
	if err != nil {
		return err
	}
	outPath, err := p.Input("Output file", "output.pdf")
	if err != nil {
		return err
	}

	res, err := render(ctx, rt, template, vars, footer)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, res.PDF, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d pages)\nverification code: %s\n", outPath, res.Pages, res.VerificationCode)
	return nil
}

// askVariables collects variables until the user stops. Pages are asked
// 1-based and stored 0-based.
func askVariables(ctx context.Context, p prompter) (overlay.Variables, error) {
	var vars overlay.Variables
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		more, err := p.Confirm(fmt.Sprintf("Add variable #%d?", len(vars)+1), len(vars) == 0)
		if err != nil {
			return nil, err
		}
		if !more {
			return vars, nil
		}
		v, err := askVariable(p)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
}

func askVariable(p prompter) (overlay.Variable, error) {
	kind, err := p.Select("Variable type", []string{"text", "signature", "image"}, "text")
	if err != nil {
		return nil, err
	}
	var box overlay.Box
	if box.Field, err = p.Input("Field name", fmt.Sprintf("%s_field", kind)); err != nil {
		return nil, err
	}
	valuePrompt := "Value"
	if kind == "image" {
		valuePrompt = "Image URL"
	}
	if box.Value, err = p.Input(valuePrompt, ""); err != nil {
		return nil, err
	}
	page, err := askNumber(p, "Page (1-based)", "1")
	if err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", overlay.ErrInvalidVariable)
	}
	box.Page = int(page) - 1
	for _, dim := range []struct {
		label string
		dst   *float64
		def   string
	}{
		{"X (points from the left)", &box.X, "72"},
		{"Y (points from the top)", &box.Y, "72"},
		{"Width", &box.W, "200"},
		{"Height", &box.H, "24"},
	} {
		if *dim.dst, err = askNumber(p, dim.label, dim.def); err != nil {
			return nil, err
		}
	}

	switch kind {
	case "signature":
		return &overlay.SignatureVariable{Box: box}, nil
	case "image":
		return &overlay.ImageVariable{Box: box}, nil
	}
	v := &overlay.TextVariable{Box: box}
	size, err := p.Input("Font size (empty for the template's most used size)", "")
	if err != nil {
		return nil, err
	}
	if size != "" {
		n, err := strconv.ParseFloat(size, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: font size %q", overlay.ErrInvalidVariable, size)
		}
		v.FontSize = &n
	}
	align, err := p.Select("Horizontal alignment", []string{"left", "center", "right"}, "left")
	if err != nil {
		return nil, err
	}
	alignH := overlay.HAlign(align)
	v.AlignH = &alignH
	if v.FontFamily, err = p.Select("Font family", []string{"sans-serif", "serif", "mono", "cursive"}, "sans-serif"); err != nil {
		return nil, err
	}
	return v, nil
}

func askNumber(p prompter, message, def string) (float64, error) {
	s, err := p.Input(message, def)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %q is not a number", overlay.ErrInvalidVariable, message, s)
	}
	return n, nil
}
