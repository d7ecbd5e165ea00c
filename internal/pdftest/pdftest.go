// Package pdftest builds small PDF fixtures for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/pdmerge/internal/pdfgraph"
	"github.com/Lllllllleong/pdmerge/internal/pdfio"
)

// Options tweak the generated document.
type Options struct {
	// Nested puts the pages under an intermediate Pages node that carries
	// MediaBox and Resources, so pages inherit them.
	Nested bool
	// Outline adds a one-entry outline to the catalog.
	Outline bool
	// PagesExtra is merged into the root Pages dictionary.
	PagesExtra pdfgraph.Dict
	// Title sets /Title in the Info dictionary.
	Title string
}

// Document returns a document with n pages. Page i draws the text
// "<label> <i>".
func Document(label string, n int, opts Options) *pdfgraph.Document {
	doc := pdfgraph.New()

	font := doc.Add(pdfgraph.Dict{
		"Type":     pdfgraph.Name("Font"),
		"Subtype":  pdfgraph.Name("Type1"),
		"BaseFont": pdfgraph.Name("Helvetica"),
	})
	resources := pdfgraph.Dict{"Font": pdfgraph.Dict{"F1": pdfgraph.Ref(font)}}
	mediaBox := pdfgraph.Array{pdfgraph.Integer(0), pdfgraph.Integer(0), pdfgraph.Integer(612), pdfgraph.Integer(792)}

	root := doc.Add(pdfgraph.Null{})
	parent := root
	var mid pdfgraph.ObjectID
	if opts.Nested {
		mid = doc.Add(pdfgraph.Null{})
		parent = mid
	}

	var kids pdfgraph.Array
	for i := 1; i <= n; i++ {
		content := doc.Add(&pdfgraph.Stream{
			Dict: pdfgraph.Dict{},
			Data: []byte(fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s %d) Tj ET", label, i)),
		})
		page := pdfgraph.Dict{
			"Type":     pdfgraph.Name("Page"),
			"Parent":   pdfgraph.Ref(parent),
			"Contents": pdfgraph.Ref(content),
		}
		if !opts.Nested {
			page["MediaBox"] = mediaBox
			page["Resources"] = resources
		}
		kids = append(kids, pdfgraph.Ref(doc.Add(page)))
	}

	rootDict := pdfgraph.Dict{
		"Type":  pdfgraph.Name("Pages"),
		"Count": pdfgraph.Integer(n),
	}
	if opts.Nested {
		doc.Set(mid, pdfgraph.Dict{
			"Type":      pdfgraph.Name("Pages"),
			"Parent":    pdfgraph.Ref(root),
			"Kids":      kids,
			"Count":     pdfgraph.Integer(n),
			"MediaBox":  mediaBox,
			"Resources": resources,
		})
		rootDict["Kids"] = pdfgraph.Array{pdfgraph.Ref(mid)}
	} else {
		rootDict["Kids"] = kids
	}
	for k, v := range opts.PagesExtra {
		rootDict[k] = v
	}
	doc.Set(root, rootDict)

	catalog := pdfgraph.Dict{
		"Type":  pdfgraph.Name("Catalog"),
		"Pages": pdfgraph.Ref(root),
	}
	if opts.Outline && n > 0 {
		outlines := doc.Add(pdfgraph.Null{})
		item := doc.Add(pdfgraph.Dict{
			"Type":   pdfgraph.Name("Outline"),
			"Title":  pdfgraph.TextString(label),
			"Parent": pdfgraph.Ref(outlines),
			"Dest":   pdfgraph.Array{kids[0], pdfgraph.Name("Fit")},
		})
		doc.Set(outlines, pdfgraph.Dict{
			"Type":  pdfgraph.Name("Outlines"),
			"First": pdfgraph.Ref(item),
			"Last":  pdfgraph.Ref(item),
			"Count": pdfgraph.Integer(1),
		})
		catalog["Outlines"] = pdfgraph.Ref(outlines)
	}
	doc.Trailer["Root"] = pdfgraph.Ref(doc.Add(catalog))

	if opts.Title != "" {
		info := doc.Add(pdfgraph.Dict{"Title": pdfgraph.TextString(opts.Title)})
		doc.Trailer["Info"] = pdfgraph.Ref(info)
	}
	return doc
}

// WriteFile encodes doc to path, creating parent directories.
func WriteFile(t testing.TB, path string, doc *pdfgraph.Document) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := pdfio.Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// WritePDF writes a generated document with n pages to path.
func WritePDF(t testing.TB, path, label string, n int) string {
	t.Helper()
	return WriteFile(t, path, Document(label, n, Options{}))
}

// PageTexts returns the content stream of every page of doc, in page
// order. Flate encoded streams are inflated.
func PageTexts(doc *pdfgraph.Document) []string {
	var res []string
	for _, id := range doc.Pages() {
		page, _ := doc.Objects[id].(pdfgraph.Dict)
		stm, _ := doc.Resolve(page["Contents"]).(*pdfgraph.Stream)
		if stm == nil {
			res = append(res, "")
			continue
		}
		data := stm.Data
		if stm.Dict["Filter"] == pdfgraph.Name("FlateDecode") {
			if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
				if inflated, err := io.ReadAll(zr); err == nil {
					data = inflated
				}
			}
		}
		res = append(res, string(data))
	}
	return res
}

// AssertResolvable fails t for every reference in doc, objects and trailer
// alike, that names an id without an object.
func AssertResolvable(t testing.TB, doc *pdfgraph.Document) {
	t.Helper()
	var visit func(where string, o pdfgraph.Object)
	visit = func(where string, o pdfgraph.Object) {
		switch o := o.(type) {
		case pdfgraph.Reference:
			if _, ok := doc.Objects[o.ID()]; !ok {
				t.Errorf("%s: dangling reference %s", where, o.ID())
			}
		case pdfgraph.Array:
			for _, e := range o {
				visit(where, e)
			}
		case pdfgraph.Dict:
			for _, e := range o {
				visit(where, e)
			}
		case *pdfgraph.Stream:
			visit(where, o.Dict)
		}
	}
	for id, obj := range doc.Objects {
		visit(id.String(), obj)
	}
	visit("trailer", doc.Trailer)
}
