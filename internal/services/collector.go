package services

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CollectPaths expands inputs into the ordered list of PDF files to merge.
// Files are taken as given; directories are walked up to depth levels
// below the argument. Directory entries come in os.ReadDir order, which is
// sorted by name.
func CollectPaths(inputs []string, depth Depth) ([]string, error) {
	return collect(inputs, depth, 0, nil)
}

// collect walks inputs found at level. ancestors holds the directories
// currently being walked so that symlink loops end instead of recursing
// until the bound, or forever under an infinite depth.
func collect(inputs []string, depth Depth, level int, ancestors []os.FileInfo) ([]string, error) {
	if depth.exceeded(level) {
		return nil, nil
	}
	var files []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &RunError{Kind: EntryDoesNotExist, Path: input, Err: err}
		}
		if err != nil {
			return nil, &RunError{Kind: CouldNotReadEntry, Path: input, Err: err}
		}

		switch {
		case info.Mode().IsRegular():
			if strings.HasSuffix(input, ".pdf") {
				files = append(files, input)
			}
		case info.IsDir():
			if isAncestor(info, ancestors) {
				continue
			}
			entries, err := os.ReadDir(input)
			if err != nil {
				return nil, &RunError{Kind: CouldNotReadEntry, Path: input, Err: err}
			}
			children := make([]string, 0, len(entries))
			for _, e := range entries {
				children = append(children, filepath.Join(input, e.Name()))
			}
			nested, err := collect(children, depth, level+1, append(ancestors, info))
			if err != nil {
				return nil, err
			}
			files = append(files, nested...)
		}
	}
	return files, nil
}

func isAncestor(dir os.FileInfo, ancestors []os.FileInfo) bool {
	for _, a := range ancestors {
		if os.SameFile(a, dir) {
			return true
		}
	}
	return false
}
