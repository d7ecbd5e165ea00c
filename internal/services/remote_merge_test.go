package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/Lllllllleong/pdmerge/internal/models"
)

func TestValidateRemoteRequest(t *testing.T) {
	valid := models.RemoteMergeRequest{
		Inputs: []string{"gs://bucket/a.pdf", "gs://bucket/batch/"},
		Output: "merged/out.pdf",
	}
	if err := validateRemoteRequest(valid); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(r *models.RemoteMergeRequest)
		wantErr string
	}{
		{"no inputs", func(r *models.RemoteMergeRequest) { r.Inputs = nil }, "input path(s)"},
		{"no output", func(r *models.RemoteMergeRequest) { r.Output = "" }, "output path"},
		{"not a gcs uri", func(r *models.RemoteMergeRequest) { r.Inputs = []string{"/tmp/a.pdf"} }, "gs://"},
		{"traversal in input", func(r *models.RemoteMergeRequest) { r.Inputs = []string{"gs://b/../a.pdf"} }, "directory reference"},
		{"absolute output", func(r *models.RemoteMergeRequest) { r.Output = "/out.pdf" }, "directory reference"},
		{"non pdf output", func(r *models.RemoteMergeRequest) { r.Output = "out.txt" }, "non pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Inputs = append([]string(nil), valid.Inputs...)
			tt.mutate(&req)
			err := validateRemoteRequest(req)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestRepeatedSource(t *testing.T) {
	a := sourceObject{bucket: "b", name: "a.pdf"}
	b := sourceObject{bucket: "b", name: "dir/b.pdf"}
	otherBucket := sourceObject{bucket: "c", name: "a.pdf"}

	tests := []struct {
		name    string
		sources []sourceObject
		want    string
		wantOK  bool
	}{
		{"distinct", []sourceObject{a, b, otherBucket}, "", false},
		{"literal then prefix", []sourceObject{a, b, a}, "gs://b/a.pdf", true},
		{"last repeat wins", []sourceObject{a, b, a, b}, "gs://b/dir/b.pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := repeatedSource(tt.sources)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("repeatedSource() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLastRepeated(t *testing.T) {
	tests := []struct {
		paths  []string
		want   string
		wantOK bool
	}{
		{[]string{"a.pdf", "b.pdf"}, "", false},
		{[]string{"a.pdf", "b.pdf", "a.pdf"}, "a.pdf", true},
		{[]string{"a.pdf", "b.pdf", "b.pdf", "a.pdf"}, "a.pdf", true},
		{[]string{"x/a.pdf", "x//a.pdf"}, "x//a.pdf", true},
	}
	for _, tt := range tests {
		got, ok := lastRepeated(tt.paths)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("lastRepeated(%q) = %q, %v, want %q, %v", tt.paths, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDescribeSource(t *testing.T) {
	localPaths := []string{"/tmp/x/00001.pdf", "/tmp/x/00002.pdf"}
	sources := []sourceObject{{bucket: "b", name: "one.pdf"}, {bucket: "b", name: "dir/two.pdf"}}

	cause := errors.New("boom")
	err := describeSource(&RunError{Kind: CouldNotLoadInput, Path: localPaths[1], Err: cause}, localPaths, sources)
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("error = %v, want a RunError", err)
	}
	if runErr.Path != "gs://b/dir/two.pdf" || runErr.Kind != CouldNotLoadInput {
		t.Errorf("got %v at %q", runErr.Kind, runErr.Path)
	}
	if !errors.Is(err, cause) {
		t.Error("cause was lost")
	}

	other := errors.New("other")
	if got := describeSource(other, localPaths, sources); got != other {
		t.Errorf("non RunError was rewritten to %v", got)
	}
}

func TestLocalNameKeepsOrder(t *testing.T) {
	names := []string{localName(0), localName(1), localName(9), localName(10), localName(99)}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("%q does not sort before %q", names[i-1], names[i])
		}
	}
	if names[0] != "00001.pdf" {
		t.Errorf("localName(0) = %q", names[0])
	}
}

func TestIsManifest(t *testing.T) {
	for name, want := range map[string]bool{
		"jobs/monthly.merge.json": true,
		"monthly.json":            false,
		"a.pdf":                   false,
	} {
		if got := IsManifest(name); got != want {
			t.Errorf("IsManifest(%q) = %v, want %v", name, got, want)
		}
	}
}
