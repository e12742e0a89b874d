package raw

import (
	"fmt"
	"sort"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Document is the root container for raw PDF objects. It owns every indirect
// object of a loaded file; callers address objects by ObjectRef.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer *DictObj
	Version string // e.g., "1.7"
}

// NewDocument returns an empty document with an initialized arena.
func NewDocument(version string) *Document {
	return &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
		Version: version,
	}
}

// Refs returns every object reference in ascending object-number order.
func (d *Document) Refs() []ObjectRef {
	refs := make([]ObjectRef, 0, len(d.Objects))
	for ref := range d.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Num != refs[j].Num {
			return refs[i].Num < refs[j].Num
		}
		return refs[i].Gen < refs[j].Gen
	})
	return refs
}

// MaxObjectNum returns the highest object number in use.
func (d *Document) MaxObjectNum() int {
	max := 0
	for ref := range d.Objects {
		if ref.Num > max {
			max = ref.Num
		}
	}
	return max
}

// Add stores obj under a freshly allocated object number.
func (d *Document) Add(obj Object) ObjectRef {
	ref := ObjectRef{Num: d.MaxObjectNum() + 1}
	d.Objects[ref] = obj
	return ref
}

// Resolve follows references until a direct object is reached. Dangling
// references resolve to NullObj, as required for PDF readers.
func (d *Document) Resolve(obj Object) Object {
	seen := 0
	for {
		ref, ok := obj.(RefObj)
		if !ok {
			return obj
		}
		next, ok := d.Objects[ref.R]
		if !ok || seen > 32 {
			return NullObj{}
		}
		obj = next
		seen++
	}
}

// Walk calls fn for every reference reachable from obj, including obj itself
// when it is a reference. Objects are visited once.
func (d *Document) Walk(obj Object, fn func(ObjectRef)) {
	visited := make(map[ObjectRef]bool)
	var walk func(Object)
	walk = func(o Object) {
		switch v := o.(type) {
		case RefObj:
			if visited[v.R] {
				return
			}
			visited[v.R] = true
			fn(v.R)
			if target, ok := d.Objects[v.R]; ok {
				walk(target)
			}
		case *DictObj:
			for _, k := range v.Keys() {
				walk(v.KV[k])
			}
		case *ArrayObj:
			for _, item := range v.Items {
				walk(item)
			}
		case *StreamObj:
			walk(v.Dict)
		}
	}
	walk(obj)
}
