package fonts

import (
	"fmt"
	"os"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Key identifies one face slot.
type Key struct {
	Family Family
	Weight Weight
	Italic bool
}

func (k Key) String() string {
	s := k.Family.String() + "-" + k.Weight.String()
	if k.Italic {
		s += "-Italic"
	}
	return s
}

// Override replaces a bundled face with a font file from disk.
type Override struct {
	Family string
	Weight string
	Italic bool
	Path   string
}

type Config struct {
	Overrides []Override
}

// Registry is the read-only table of faces built once at startup.
type Registry struct {
	faces map[Key]*Face
}

type bundled struct {
	key  Key
	name string
	data []byte
}

func defaults() []bundled {
	return []bundled{
		{Key{SansSerif, Regular, false}, "GoRegular", goregular.TTF},
		{Key{SansSerif, Regular, true}, "GoItalic", goitalic.TTF},
		{Key{SansSerif, Bold, false}, "GoBold", gobold.TTF},
		{Key{SansSerif, Bold, true}, "GoBoldItalic", gobolditalic.TTF},
		{Key{Mono, Regular, false}, "GoMono", gomono.TTF},
		{Key{Mono, Regular, true}, "GoMonoItalic", gomonoitalic.TTF},
		{Key{Mono, Bold, false}, "GoMonoBold", gomonobold.TTF},
		{Key{Mono, Bold, true}, "GoMonoBoldItalic", gomonobolditalic.TTF},
		{Key{Cursive, Regular, false}, "GoItalic", goitalic.TTF},
	}
}

func NewRegistry(cfg Config) (*Registry, error) {
	r := &Registry{faces: make(map[Key]*Face)}
	for _, b := range defaults() {
		face, err := ParseFace(b.name, b.data)
		if err != nil {
			return nil, err
		}
		r.faces[b.key] = face
	}
	// serif slots share the sans faces until overridden
	for k, face := range r.faces {
		if k.Family == SansSerif {
			r.faces[Key{Serif, k.Weight, k.Italic}] = face
		}
	}

	for _, o := range cfg.Overrides {
		family, err := ParseFamily(o.Family)
		if err != nil {
			return nil, err
		}
		weight, err := ParseWeight(o.Weight)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(o.Path)
		if err != nil {
			return nil, fmt.Errorf("font override %s: %w", o.Path, err)
		}
		key := Key{family, weight, o.Italic}
		face, err := ParseFace(key.String(), data)
		if err != nil {
			return nil, err
		}
		r.faces[key] = face
	}
	return r, nil
}

// Lookup returns the face for the slot, falling back to Regular weight,
// then to upright, and finally to SansSerif Regular.
func (r *Registry) Lookup(family Family, weight Weight, italic bool) *Face {
	candidates := []Key{
		{family, weight, italic},
		{family, Regular, italic},
		{family, weight, false},
		{family, Regular, false},
		{SansSerif, Regular, false},
	}
	for _, k := range candidates {
		if f, ok := r.faces[k]; ok {
			return f
		}
	}
	return nil
}
