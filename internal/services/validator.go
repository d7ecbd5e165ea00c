package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Check decides whether the merge is safe to run. It only stats the
// literal arguments; directories are not expanded and no PDF is read.
// Checks run in a fixed order and the first failure is returned as a
// *CheckError.
func (m *Merge) Check() error {
	// --- 1. A single literal file cannot be merged with anything ---
	if len(m.Inputs) == 1 && isRegularFile(m.Inputs[0]) {
		return &CheckError{Kind: InputIsSingleFile, Path: m.Inputs[0]}
	}

	// --- 2. No traversal components anywhere ---
	for _, p := range m.Inputs {
		if hasDirectoryReference(p) {
			return &CheckError{Kind: InputIsDirectoryReference, Path: p}
		}
	}
	if hasDirectoryReference(m.Output) {
		return &CheckError{Kind: OutputIsDirectoryReference, Path: m.Output}
	}

	// --- 3. Literal files must be PDFs ---
	for _, p := range m.Inputs {
		if isRegularFile(p) && filepath.Ext(p) != ".pdf" {
			return &CheckError{Kind: InputIsNotPdfFile, Path: p}
		}
	}

	// --- 4. Directories need a depth ---
	if m.Depth.Kind == DepthUnset {
		for _, p := range m.Inputs {
			if isDir(p) {
				return &CheckError{Kind: DepthNotSpecified, Path: p}
			}
		}
	}

	// --- 5. Output must name a PDF file ---
	if isDir(m.Output) {
		return &CheckError{Kind: OutputIsDirectory, Path: m.Output}
	}
	if filepath.Ext(m.Output) != ".pdf" {
		return &CheckError{Kind: OutputIsNotPdfFile, Path: m.Output}
	}

	// --- 6. Literal repetition ---
	if !m.AllowRepetition {
		if p, ok := lastRepeated(m.Inputs); ok {
			return &CheckError{Kind: InputRepetitionWithoutFlag, Path: p}
		}
	}

	// --- 7. Parent directories ---
	if !m.CreateParentDirs {
		if dir := filepath.Dir(m.Output); dir != "." {
			if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
				return &CheckError{Kind: ParentOutputWithoutFlag, Path: m.Output, Err: err}
			}
		}
	}

	// --- 8. Existing output ---
	_, err := os.Lstat(m.Output)
	switch {
	case err == nil:
		if !m.Override {
			return &CheckError{Kind: OutputAlreadyExists, Path: m.Output}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return &CheckError{Kind: CouldNotReadOrCheckFilePath, Path: m.Output, Err: err}
	}
	return nil
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// hasDirectoryReference reports whether p contains a "." or ".."
// component.
func hasDirectoryReference(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r < utf8.RuneSelf && os.IsPathSeparator(uint8(r))
	})
	for _, part := range parts {
		if part == "." || part == ".." {
			return true
		}
	}
	return false
}

// pathKey is the form in which two paths are compared for repetition.
// Paths are compared after cleaning and Unicode NFC normalization, so
// "a//b.pdf" repeats "a/b.pdf" and a decomposed "é" repeats a composed one.
func pathKey(p string) string {
	return norm.NFC.String(filepath.Clean(p))
}

// lastRepeated scans from the end and returns the last path that also
// appears earlier in paths.
func lastRepeated(paths []string) (string, bool) {
	seen := make(map[string]int, len(paths))
	for _, p := range paths {
		seen[pathKey(p)]++
	}
	for i := len(paths) - 1; i >= 0; i-- {
		if seen[pathKey(paths[i])] > 1 {
			return paths[i], true
		}
	}
	return "", false
}
