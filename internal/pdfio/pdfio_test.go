package pdfio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/pdmerge/internal/pdfgraph"
	"github.com/Lllllllleong/pdmerge/internal/pdfio"
	"github.com/Lllllllleong/pdmerge/internal/pdftest"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orig := pdftest.Document("Round", 3, pdftest.Options{Nested: true, Title: "round trip"})

	data, err := pdfio.Encode(orig)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-1.7\n")) {
		t.Errorf("unexpected header %q", data[:10])
	}
	if !bytes.HasSuffix(data, []byte("%%EOF\n")) {
		t.Error("missing EOF marker")
	}

	doc, err := pdfio.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(pdftest.PageTexts(orig), pdftest.PageTexts(doc)); diff != "" {
		t.Errorf("page contents mismatch (-want +got):\n%s", diff)
	}
	if got, want := len(doc.Objects), len(orig.Objects); got != want {
		t.Errorf("decoded %d objects, want %d", got, want)
	}
	if _, ok := doc.Trailer["Info"]; !ok {
		t.Error("Info reference was lost")
	}
	cat, err := doc.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if pdfgraph.Type(cat) != "Catalog" {
		t.Errorf("catalog type = %q", pdfgraph.Type(cat))
	}
}

func TestEncodeObjects(t *testing.T) {
	doc := pdfgraph.New()
	id := doc.Add(pdfgraph.Dict{
		"A": pdfgraph.Array{
			pdfgraph.Null{},
			pdfgraph.Boolean(true),
			pdfgraph.Integer(-3),
			pdfgraph.Real(0.5),
			pdfgraph.Real(2),
			pdfgraph.Name("With Space#"),
			pdfgraph.TextString("a(b)"),
			pdfgraph.String{Value: "48656C6C6F", Hex: true},
			pdfgraph.Ref(pdfgraph.ObjectID{Number: 1}),
		},
	})
	doc.Trailer["Root"] = pdfgraph.Ref(id)

	data, err := pdfio.Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := `<</A [null true -3 0.5 2.0 /With#20Space#23 (a\(b\)) <48656C6C6F> 1 0 R]>>`
	if !strings.Contains(string(data), want) {
		t.Errorf("encoded object not found, got:\n%s", data)
	}
	if !strings.Contains(string(data), "trailer\n<</Root 1 0 R /Size 2>>") {
		t.Errorf("unexpected trailer, got:\n%s", data)
	}
}

func TestEncodeRequiresRoot(t *testing.T) {
	if _, err := pdfio.Encode(pdfgraph.New()); err == nil {
		t.Error("document without Root was encoded")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := pdfio.Decode([]byte("this is not a pdf")); err == nil {
		t.Error("garbage was decoded")
	}
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("creates parents", func(t *testing.T) {
		path := filepath.Join(dir, "a", "b", "out.pdf")
		if err := pdfio.SaveFile(path, []byte("one"), true); err != nil {
			t.Fatal(err)
		}
		assertContent(t, path, "one")
	})

	t.Run("replaces existing file", func(t *testing.T) {
		path := filepath.Join(dir, "existing.pdf")
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := pdfio.SaveFile(path, []byte("new"), false); err != nil {
			t.Fatal(err)
		}
		assertContent(t, path, "new")
	})

	t.Run("missing parent without flag", func(t *testing.T) {
		path := filepath.Join(dir, "missing", "out.pdf")
		if err := pdfio.SaveFile(path, []byte("x"), false); err == nil {
			t.Fatal("save into a missing directory succeeded")
		}
	})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".pdmerge-") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}

func TestOptimizeKeepsPages(t *testing.T) {
	data, err := pdfio.Encode(pdftest.Document("Opt", 2, pdftest.Options{}))
	if err != nil {
		t.Fatal(err)
	}
	optimized, err := pdfio.Optimize(data)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := pdfio.Decode(optimized)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(doc.Pages()); got != 2 {
		t.Errorf("optimized document has %d pages, want 2", got)
	}
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("%s contains %q, want %q", path, got, want)
	}
}
