// Package pdfgraph holds an in-memory PDF object graph. Objects live in a
// flat table keyed by ObjectID, so renumbering is an id-remap pass over the
// table rather than pointer rewriting.
package pdfgraph

import (
	"fmt"
	"sort"
	"strings"
)

// ObjectID identifies an indirect object inside one document's numbering space.
type ObjectID struct {
	Number     uint32
	Generation uint16
}

func (id ObjectID) String() string { return fmt.Sprintf("%d %d R", id.Number, id.Generation) }

// IsZero reports whether id is the unset id. Object number 0 is reserved
// for the head of the free list and never names a real object.
func (id ObjectID) IsZero() bool { return id.Number == 0 }

// Object is a PDF value. The set of implementations is closed.
type Object interface {
	isObject()
}

type (
	Null    struct{}
	Boolean bool
	Integer int64
	Real    float64
	Name    string
	Array   []Object
	Dict    map[Name]Object
)

// String is a PDF string kept in its encoded form: the bytes between the
// parentheses of a literal string, or the hex digits of a hex string.
type String struct {
	Value string
	Hex   bool
}

// Stream is a dictionary followed by raw (still filtered) bytes.
type Stream struct {
	Dict Dict
	Data []byte
}

// Reference points at an indirect object.
type Reference ObjectID

func (Null) isObject()      {}
func (Boolean) isObject()   {}
func (Integer) isObject()   {}
func (Real) isObject()      {}
func (Name) isObject()      {}
func (Array) isObject()     {}
func (Dict) isObject()      {}
func (String) isObject()    {}
func (*Stream) isObject()   {}
func (Reference) isObject() {}

// Ref returns a reference to id.
func Ref(id ObjectID) Reference { return Reference(id) }

// ID returns the id the reference points at.
func (r Reference) ID() ObjectID { return ObjectID(r) }

// TextString builds a literal string from plain text, escaping the
// characters that are special inside parentheses.
func TextString(s string) String {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`)
	return String{Value: r.Replace(s)}
}

// Type returns the /Type name of a dictionary or stream dictionary.
func Type(obj Object) Name {
	d := AsDict(obj)
	if d == nil {
		return ""
	}
	n, _ := d["Type"].(Name)
	return n
}

// AsDict returns the dictionary of a Dict or Stream object, or nil.
func AsDict(obj Object) Dict {
	switch o := obj.(type) {
	case Dict:
		return o
	case *Stream:
		return o.Dict
	}
	return nil
}

// Clone returns a deep copy of obj. Stream data is shared; it is never
// mutated in place.
func Clone(obj Object) Object {
	switch o := obj.(type) {
	case nil:
		return nil
	case Null, Boolean, Integer, Real, Name, String, Reference:
		return o
	case Array:
		res := make(Array, len(o))
		for i, elem := range o {
			res[i] = Clone(elem)
		}
		return res
	case Dict:
		return o.Clone()
	case *Stream:
		return &Stream{Dict: o.Dict.Clone(), Data: o.Data}
	default:
		panic(fmt.Sprintf("pdfgraph: unknown object type %T", obj))
	}
}

// Clone returns a deep copy of d.
func (d Dict) Clone() Dict {
	if d == nil {
		return nil
	}
	res := make(Dict, len(d))
	for k, v := range d {
		res[k] = Clone(v)
	}
	return res
}

// Keys returns the keys of d in lexical order.
func (d Dict) Keys() []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Kind classifies an object for merging.
type Kind int

const (
	KindOther Kind = iota
	KindCatalog
	KindPages
	KindPage
	KindOutlines
)

func (k Kind) String() string {
	switch k {
	case KindCatalog:
		return "Catalog"
	case KindPages:
		return "Pages"
	case KindPage:
		return "Page"
	case KindOutlines:
		return "Outlines"
	default:
		return "Other"
	}
}

// Classify maps an object's /Type to its Kind. Outline items and the
// outline root share KindOutlines.
func Classify(obj Object) Kind {
	switch Type(obj) {
	case "Catalog":
		return KindCatalog
	case "Pages":
		return KindPages
	case "Page":
		return KindPage
	case "Outlines", "Outline":
		return KindOutlines
	default:
		return KindOther
	}
}

// rewriteRefs returns a copy of obj with every reference replaced by fn
// applied to it, without following indirections. References fn rejects
// become null. Containers are copied, never modified, so a value shared by
// several objects is rewritten once per holder from the same original.
func rewriteRefs(obj Object, fn func(ObjectID) (ObjectID, bool)) Object {
	switch o := obj.(type) {
	case nil:
		return nil
	case Null, Boolean, Integer, Real, Name, String:
		return o
	case Reference:
		to, ok := fn(o.ID())
		if !ok {
			return Null{}
		}
		return Reference(to)
	case Array:
		res := make(Array, len(o))
		for i, elem := range o {
			res[i] = rewriteRefs(elem, fn)
		}
		return res
	case Dict:
		return rewriteDict(o, fn)
	case *Stream:
		return &Stream{Dict: rewriteDict(o.Dict, fn), Data: o.Data}
	default:
		panic(fmt.Sprintf("pdfgraph: unknown object type %T", obj))
	}
}

func rewriteDict(d Dict, fn func(ObjectID) (ObjectID, bool)) Dict {
	if d == nil {
		return nil
	}
	res := make(Dict, len(d))
	for k, v := range d {
		res[k] = rewriteRefs(v, fn)
	}
	return res
}

// collectRefs appends every reference found inside obj to dst.
func collectRefs(dst []ObjectID, obj Object) []ObjectID {
	switch o := obj.(type) {
	case nil, Null, Boolean, Integer, Real, Name, String:
	case Reference:
		dst = append(dst, o.ID())
	case Array:
		for _, elem := range o {
			dst = collectRefs(dst, elem)
		}
	case Dict:
		for _, v := range o {
			dst = collectRefs(dst, v)
		}
	case *Stream:
		for _, v := range o.Dict {
			dst = collectRefs(dst, v)
		}
	default:
		panic(fmt.Sprintf("pdfgraph: unknown object type %T", obj))
	}
	return dst
}
