// Package fonts holds the bundled font faces and the text measurement used
// to lay out overlay text.
package fonts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	gotext "github.com/go-text/typesetting/font"
	"golang.org/x/image/font/sfnt"
)

type Family int

const (
	SansSerif Family = iota
	Serif
	Mono
	Cursive
)

func (f Family) String() string {
	switch f {
	case Serif:
		return "Serif"
	case Mono:
		return "Mono"
	case Cursive:
		return "Cursive"
	default:
		return "SansSerif"
	}
}

// ParseFamily accepts the family names used in variable JSON, case
// insensitively and with or without a dash ("sans-serif", "sansSerif").
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "")) {
	case "", "sansserif", "sans":
		return SansSerif, nil
	case "serif":
		return Serif, nil
	case "mono", "monospace":
		return Mono, nil
	case "cursive":
		return Cursive, nil
	}
	return SansSerif, fmt.Errorf("unknown font family %q", s)
}

type Weight int

const (
	Regular Weight = iota
	Light
	Bold
)

func (w Weight) String() string {
	switch w {
	case Light:
		return "Light"
	case Bold:
		return "Bold"
	default:
		return "Regular"
	}
}

func ParseWeight(s string) (Weight, error) {
	switch strings.ToLower(s) {
	case "", "regular", "normal":
		return Regular, nil
	case "light":
		return Light, nil
	case "bold":
		return Bold, nil
	}
	return Regular, fmt.Errorf("unknown font weight %q", s)
}

// Face is an immutable parsed TrueType font. It is safe for concurrent use.
type Face struct {
	name       string
	data       []byte
	face       *gotext.Face
	upem       float64
	postscript string
}

// ParseFace parses a TrueType or OpenType font file.
func ParseFace(name string, data []byte) (*Face, error) {
	if len(data) == 0 {
		return nil, errors.New("font data is empty")
	}
	face, err := gotext.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	upem := float64(face.Upem())
	if upem == 0 {
		return nil, fmt.Errorf("font %s: invalid unitsPerEm", name)
	}

	postscript := name
	if f, err := sfnt.Parse(data); err == nil {
		if ps, err := f.Name(nil, sfnt.NameIDPostScript); err == nil && ps != "" {
			postscript = ps
		}
	}
	return &Face{name: name, data: data, face: face, upem: upem, postscript: postscript}, nil
}

func (f *Face) Name() string           { return f.name }
func (f *Face) Data() []byte           { return f.data }
func (f *Face) UnitsPerEm() float64    { return f.upem }
func (f *Face) PostScriptName() string { return f.postscript }
