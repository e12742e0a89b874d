package optimize

import (
	"context"
	"fmt"

	"github.com/wudi/pdfsnap/ir/raw"
)

type Config struct {
	CombineIdenticalIndirectObjects bool
	CombineDuplicateStreams         bool
	CompressStreams                 bool
	CleanUnusedObjects              bool
}

// DefaultConfig is the whole-graph compression applied before saving.
func DefaultConfig() Config {
	return Config{
		CombineIdenticalIndirectObjects: true,
		CompressStreams:                 true,
		CleanUnusedObjects:              true,
	}
}

type Optimizer struct {
	config Config
}

func New(config Config) *Optimizer {
	return &Optimizer{config: config}
}

func (o *Optimizer) Optimize(ctx context.Context, doc *raw.Document) error {
	if o.config.CleanUnusedObjects {
		Prune(doc)
	}

	if o.config.CombineIdenticalIndirectObjects {
		if err := o.combineObjects(ctx, doc, true, true); err != nil {
			return fmt.Errorf("failed to combine identical indirect objects: %w", err)
		}
	} else if o.config.CombineDuplicateStreams {
		if err := o.combineObjects(ctx, doc, true, false); err != nil {
			return fmt.Errorf("failed to combine duplicate streams: %w", err)
		}
	}

	if o.config.CompressStreams {
		if err := o.compressStreams(ctx, doc); err != nil {
			return fmt.Errorf("failed to compress streams: %w", err)
		}
	}
	return nil
}

// Prune deletes every object that cannot be reached from the trailer and
// returns how many were removed.
func Prune(doc *raw.Document) int {
	reachable := make(map[raw.ObjectRef]bool)
	if doc.Trailer != nil {
		doc.Walk(doc.Trailer, func(r raw.ObjectRef) { reachable[r] = true })
	}
	removed := 0
	for ref := range doc.Objects {
		if !reachable[ref] {
			delete(doc.Objects, ref)
			removed++
		}
	}
	return removed
}
