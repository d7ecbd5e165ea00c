package pdfgraph

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultVersion is the header version of a document built from scratch.
const DefaultVersion = "1.7"

var (
	ErrNoRoot    = errors.New("trailer has no Root reference")
	ErrNoCatalog = errors.New("catalog object not found")
)

// Bookmark is a synthetic outline entry pointing at a page.
type Bookmark struct {
	Title string
	Color [3]float64
	Flags int
	Page  ObjectID
}

// Document is an object table plus the trailer that anchors it.
type Document struct {
	Version   string
	Objects   map[ObjectID]Object
	Trailer   Dict
	MaxID     uint32
	Bookmarks []Bookmark
}

// New returns an empty document.
func New() *Document {
	return &Document{
		Version: DefaultVersion,
		Objects: make(map[ObjectID]Object),
		Trailer: Dict{},
	}
}

// IDs returns all object ids in ascending order.
func (d *Document) IDs() []ObjectID {
	ids := make([]ObjectID, 0, len(d.Objects))
	for id := range d.Objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return less(ids[i], ids[j]) })
	return ids
}

func less(a, b ObjectID) bool {
	if a.Number != b.Number {
		return a.Number < b.Number
	}
	return a.Generation < b.Generation
}

// Get returns the object stored under id.
func (d *Document) Get(id ObjectID) (Object, bool) {
	obj, ok := d.Objects[id]
	return obj, ok
}

// Resolve follows obj if it is a reference. Dangling references resolve to nil.
func (d *Document) Resolve(obj Object) Object {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj
		}
		obj = d.Objects[ref.ID()]
	}
	return nil
}

// Set stores obj under id and keeps MaxID in step.
func (d *Document) Set(id ObjectID, obj Object) {
	d.Objects[id] = obj
	if id.Number > d.MaxID {
		d.MaxID = id.Number
	}
}

// Add stores obj under a fresh id and returns it.
func (d *Document) Add(obj Object) ObjectID {
	d.MaxID++
	id := ObjectID{Number: d.MaxID}
	d.Objects[id] = obj
	return id
}

// RecomputeMaxID sets MaxID to the highest object number in use.
func (d *Document) RecomputeMaxID() {
	d.MaxID = 0
	for id := range d.Objects {
		if id.Number > d.MaxID {
			d.MaxID = id.Number
		}
	}
}

// RootID returns the id of the catalog named by the trailer.
func (d *Document) RootID() (ObjectID, error) {
	ref, ok := d.Trailer["Root"].(Reference)
	if !ok {
		return ObjectID{}, ErrNoRoot
	}
	return ref.ID(), nil
}

// Catalog returns the catalog dictionary.
func (d *Document) Catalog() (Dict, error) {
	id, err := d.RootID()
	if err != nil {
		return nil, err
	}
	cat, ok := d.Objects[id].(Dict)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCatalog, id)
	}
	return cat, nil
}

// Renumber shifts every object number by offset. References in objects,
// the trailer and bookmarks move with them. References to ids without an
// object become null so that they cannot collide with objects numbered
// later.
func (d *Document) Renumber(offset uint32) {
	table := make(map[ObjectID]ObjectID, len(d.Objects))
	for id := range d.Objects {
		table[id] = ObjectID{Number: id.Number + offset, Generation: id.Generation}
	}
	d.remap(table)
}

// RenumberContiguous renumbers objects 1..n in ascending id order and resets
// generations to zero. References to ids without an object become null.
func (d *Document) RenumberContiguous() {
	table := make(map[ObjectID]ObjectID, len(d.Objects))
	for i, id := range d.IDs() {
		table[id] = ObjectID{Number: uint32(i + 1)}
	}
	d.remap(table)
}

// remap moves every object to table[id]. Bookmarks whose page is not in
// the table are unset.
func (d *Document) remap(table map[ObjectID]ObjectID) {
	fn := func(id ObjectID) (ObjectID, bool) {
		to, ok := table[id]
		return to, ok
	}
	objects := make(map[ObjectID]Object, len(d.Objects))
	for id, obj := range d.Objects {
		objects[table[id]] = rewriteRefs(obj, fn)
	}
	d.Objects = objects
	d.Trailer = rewriteDict(d.Trailer, fn)
	if d.Trailer == nil {
		d.Trailer = Dict{}
	}
	for i := range d.Bookmarks {
		d.Bookmarks[i].Page, _ = fn(d.Bookmarks[i].Page)
	}
	d.RecomputeMaxID()
}

// Prune removes every object that cannot be reached from the trailer.
func (d *Document) Prune() int {
	reached := make(map[ObjectID]bool, len(d.Objects))
	queue := collectRefs(nil, d.Trailer)
	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if reached[id] {
			continue
		}
		obj, ok := d.Objects[id]
		if !ok {
			continue
		}
		reached[id] = true
		queue = collectRefs(queue, obj)
	}
	removed := 0
	for id := range d.Objects {
		if !reached[id] {
			delete(d.Objects, id)
			removed++
		}
	}
	return removed
}
