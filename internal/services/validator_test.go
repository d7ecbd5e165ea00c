package services_test

import (
	"errors"
	"testing"

	"github.com/Lllllllleong/pdmerge/internal/models"
	"github.com/Lllllllleong/pdmerge/internal/services"
)

func TestBuildMerge(t *testing.T) {
	tests := []struct {
		name string
		req  models.MergeRequest
		want services.BuildErrorKind
	}{
		{"no inputs", models.MergeRequest{Output: "o.pdf"}, services.InputIsEmpty},
		{"blank inputs", models.MergeRequest{Inputs: []string{" ", ""}, Output: "o.pdf"}, services.InputIsEmpty},
		{"no output", models.MergeRequest{Inputs: []string{"a.pdf"}}, services.OutputIsEmpty},
		{"bad depth", models.MergeRequest{Inputs: []string{"a"}, Output: "o.pdf", Depth: "0"}, services.UnparseableDepth},
		{"bad order", models.MergeRequest{Inputs: []string{"a"}, Output: "o.pdf", OrderBy: "size"}, services.UnparseableOrderMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := services.BuildMerge(tt.req)
			var buildErr *services.BuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("error = %v, want a BuildError", err)
			}
			if buildErr.Kind != tt.want {
				t.Errorf("kind = %v, want %v", buildErr.Kind, tt.want)
			}
		})
	}

	m, err := services.BuildMerge(models.MergeRequest{
		Inputs:  []string{" a.pdf ", "", "b"},
		Output:  "out.pdf",
		Depth:   "*",
		OrderBy: "alpha",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Inputs) != 2 || m.Inputs[0] != "a.pdf" || m.Inputs[1] != "b" {
		t.Errorf("inputs = %q", m.Inputs)
	}
	if m.Depth != services.InfiniteDepth() || m.Order != services.OrderAlpha {
		t.Errorf("depth/order = %v/%v", m.Depth, m.Order)
	}
}

func TestMergeCheck(t *testing.T) {
	t.Chdir(t.TempDir())
	makeTree(t, ".", "a.pdf", "b.pdf", "notes.txt", "dir/c.pdf", "existing.pdf")

	tests := []struct {
		name  string
		merge services.Merge
		want  services.CheckErrorKind
	}{
		{
			name:  "single file",
			merge: services.Merge{Inputs: []string{"a.pdf"}, Output: "o.pdf"},
			want:  services.InputIsSingleFile,
		},
		{
			name:  "input parent reference",
			merge: services.Merge{Inputs: []string{"a.pdf", "../b.pdf"}, Output: "o.pdf"},
			want:  services.InputIsDirectoryReference,
		},
		{
			name:  "input current reference",
			merge: services.Merge{Inputs: []string{"./a.pdf", "b.pdf"}, Output: "o.pdf"},
			want:  services.InputIsDirectoryReference,
		},
		{
			name:  "output reference",
			merge: services.Merge{Inputs: []string{"a.pdf", "b.pdf"}, Output: "dir/../o.pdf"},
			want:  services.OutputIsDirectoryReference,
		},
		{
			name:  "non pdf input",
			merge: services.Merge{Inputs: []string{"a.pdf", "notes.txt"}, Output: "o.pdf"},
			want:  services.InputIsNotPdfFile,
		},
		{
			name:  "directory without depth",
			merge: services.Merge{Inputs: []string{"a.pdf", "dir"}, Output: "o.pdf"},
			want:  services.DepthNotSpecified,
		},
		{
			name:  "directory with explicit unset depth",
			merge: services.Merge{Inputs: []string{"a.pdf", "dir"}, Output: "o.pdf", Depth: services.Depth{Kind: services.DepthUnset}},
			want:  services.DepthNotSpecified,
		},
		{
			name:  "output is a directory",
			merge: services.Merge{Inputs: []string{"a.pdf", "b.pdf"}, Output: "dir"},
			want:  services.OutputIsDirectory,
		},
		{
			name:  "output is not a pdf",
			merge: services.Merge{Inputs: []string{"a.pdf", "b.pdf"}, Output: "out.txt"},
			want:  services.OutputIsNotPdfFile,
		},
		{
			name:  "repetition",
			merge: services.Merge{Inputs: []string{"a.pdf", "b.pdf", "a.pdf"}, Output: "o.pdf"},
			want:  services.InputRepetitionWithoutFlag,
		},
		{
			name:  "repetition after cleaning",
			merge: services.Merge{Inputs: []string{"dir/c.pdf", "dir//c.pdf"}, Output: "o.pdf"},
			want:  services.InputRepetitionWithoutFlag,
		},
		{
			name:  "missing parent",
			merge: services.Merge{Inputs: []string{"a.pdf", "b.pdf"}, Output: "new/sub/o.pdf"},
			want:  services.ParentOutputWithoutFlag,
		},
		{
			name:  "existing output",
			merge: services.Merge{Inputs: []string{"a.pdf", "b.pdf"}, Output: "existing.pdf"},
			want:  services.OutputAlreadyExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.merge.Check()
			var checkErr *services.CheckError
			if !errors.As(err, &checkErr) {
				t.Fatalf("Check() = %v, want a CheckError", err)
			}
			if checkErr.Kind != tt.want {
				t.Errorf("kind = %v, want %v (%v)", checkErr.Kind, tt.want, err)
			}
		})
	}
}

func TestMergeCheckFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	makeTree(t, ".", "a.pdf", "b.pdf", "existing.pdf", "dir/c.pdf")

	tests := []struct {
		name  string
		merge services.Merge
	}{
		{"allow repetition", services.Merge{Inputs: []string{"a.pdf", "a.pdf"}, Output: "o.pdf", AllowRepetition: true}},
		{"override", services.Merge{Inputs: []string{"a.pdf", "b.pdf"}, Output: "existing.pdf", Override: true}},
		{"create parents", services.Merge{Inputs: []string{"a.pdf", "b.pdf"}, Output: "new/sub/o.pdf", CreateParentDirs: true}},
		{"single directory", services.Merge{Inputs: []string{"dir"}, Output: "o.pdf", Depth: services.MaxDepth(1)}},
		{"missing input left for the run", services.Merge{Inputs: []string{"a.pdf", "gone.pdf"}, Output: "o.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.merge.Check(); err != nil {
				t.Errorf("Check() = %v, want nil", err)
			}
		})
	}
}

func TestMergeCheckOrder(t *testing.T) {
	t.Chdir(t.TempDir())
	makeTree(t, ".", "a.pdf", "notes.txt", "existing.pdf")

	// Traversal is reported before the non-pdf input and the existing output.
	m := services.Merge{Inputs: []string{"notes.txt", "../a.pdf"}, Output: "existing.pdf"}
	err := m.Check()
	var checkErr *services.CheckError
	if !errors.As(err, &checkErr) || checkErr.Kind != services.InputIsDirectoryReference {
		t.Fatalf("Check() = %v, want InputIsDirectoryReference", err)
	}
	if checkErr.Path != "../a.pdf" {
		t.Errorf("path = %q", checkErr.Path)
	}
}
