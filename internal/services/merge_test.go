package services_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/pdmerge/internal/models"
	"github.com/Lllllllleong/pdmerge/internal/pdfgraph"
	"github.com/Lllllllleong/pdmerge/internal/pdfio"
	"github.com/Lllllllleong/pdmerge/internal/pdftest"
	"github.com/Lllllllleong/pdmerge/internal/services"
)

func TestMergeServiceProcess(t *testing.T) {
	dir := t.TempDir()
	a := pdftest.WritePDF(t, filepath.Join(dir, "a.pdf"), "A", 2)
	b := pdftest.WriteFile(t, filepath.Join(dir, "b.pdf"), pdftest.Document("B", 3, pdftest.Options{Nested: true, Outline: true}))
	out := filepath.Join(dir, "out", "merged.pdf")

	svc := services.NewMergeService(services.MergeConfig{Workers: 2})
	req := models.MergeRequest{Inputs: []string{a, b}, Output: out, CreateParentDirs: true}
	res, err := svc.Process(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{a, b}, res.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if res.Pages != 5 || res.Output != out {
		t.Errorf("result = %+v", res)
	}

	doc, err := pdfio.LoadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := append(texts("A", 2), texts("B", 3)...)
	if diff := cmp.Diff(want, pdftest.PageTexts(doc)); diff != "" {
		t.Errorf("page contents mismatch (-want +got):\n%s", diff)
	}
	cat, err := doc.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	outline := pdfgraph.AsDict(doc.Resolve(cat["Outlines"]))
	if outline["Count"] != pdfgraph.Integer(2) {
		t.Errorf("outline = %v, want one entry per source", outline)
	}
	first := pdfgraph.AsDict(doc.Resolve(outline["First"]))
	if first["Title"] != pdfgraph.TextString("Page_1") {
		t.Errorf("first outline title = %v", first["Title"])
	}

	// A second run needs the override flag.
	req.CreateParentDirs = false
	_, err = svc.Process(context.Background(), req)
	var checkErr *services.CheckError
	if !errors.As(err, &checkErr) || checkErr.Kind != services.OutputAlreadyExists {
		t.Fatalf("second run error = %v, want OutputAlreadyExists", err)
	}
	req.Override = true
	if _, err := svc.Process(context.Background(), req); err != nil {
		t.Fatalf("run with override: %v", err)
	}
}

func TestMergeServiceDirectoryInput(t *testing.T) {
	dir := t.TempDir()
	pdftest.WritePDF(t, filepath.Join(dir, "in", "b.pdf"), "B", 1)
	pdftest.WritePDF(t, filepath.Join(dir, "in", "a.pdf"), "A", 2)
	pdftest.WritePDF(t, filepath.Join(dir, "in", "sub", "c.pdf"), "C", 1)
	out := filepath.Join(dir, "merged.pdf")

	svc := services.NewMergeService(services.MergeConfig{Optimize: true})
	res, err := svc.Process(context.Background(), models.MergeRequest{
		Inputs: []string{filepath.Join(dir, "in")},
		Output: out,
		Depth:  "1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 3 {
		t.Errorf("merged %d pages, want 3", res.Pages)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "in", "a.pdf"), filepath.Join(dir, "in", "b.pdf")}, res.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	doc, err := pdfio.LoadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(doc.Pages()); got != 3 {
		t.Errorf("output has %d pages, want 3", got)
	}
}

func TestMergeServiceRepetitionAfterExpansion(t *testing.T) {
	dir := t.TempDir()
	a := pdftest.WritePDF(t, filepath.Join(dir, "in", "a.pdf"), "A", 1)
	pdftest.WritePDF(t, filepath.Join(dir, "in", "b.pdf"), "B", 1)
	out := filepath.Join(dir, "merged.pdf")

	svc := services.NewMergeService(services.MergeConfig{})
	req := models.MergeRequest{
		Inputs: []string{filepath.Join(dir, "in"), a},
		Output: out,
		Depth:  "*",
	}
	_, err := svc.Process(context.Background(), req)
	var runErr *services.RunError
	if !errors.As(err, &runErr) || runErr.Kind != services.InputRepeatedAfterExpansion {
		t.Fatalf("error = %v, want InputRepeatedAfterExpansion", err)
	}

	req.AllowRepetition = true
	res, err := svc.Process(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Pages != 3 {
		t.Errorf("merged %d pages, want 3", res.Pages)
	}
}

func TestMergeServiceBuildAndCheckErrors(t *testing.T) {
	svc := services.NewMergeService(services.MergeConfig{})

	_, err := svc.Process(context.Background(), models.MergeRequest{Output: "x.pdf"})
	var buildErr *services.BuildError
	if !errors.As(err, &buildErr) {
		t.Errorf("error = %v, want a BuildError", err)
	}

	a := pdftest.WritePDF(t, filepath.Join(t.TempDir(), "a.pdf"), "A", 1)
	_, err = svc.Process(context.Background(), models.MergeRequest{Inputs: []string{a}, Output: "x.pdf"})
	var checkErr *services.CheckError
	if !errors.As(err, &checkErr) || checkErr.Kind != services.InputIsSingleFile {
		t.Errorf("error = %v, want InputIsSingleFile", err)
	}
}
