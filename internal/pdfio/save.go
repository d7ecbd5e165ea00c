package pdfio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Optimize runs the encoded document through pdfcpu's optimizer, which
// drops duplicate resources and packs objects into compressed object and
// cross-reference streams.
func Optimize(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &buf, newConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to optimize PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveFile writes data to path. The bytes go to a temporary file in the
// same directory first and are renamed over path once complete, so an
// existing file is never left half written. With createParents set,
// missing parent directories are created.
func SaveFile(path string, data []byte, createParents bool) (err error) {
	dir := filepath.Dir(path)
	if createParents {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create parent directories: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".pdmerge-*.pdf")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move temp file into place: %w", err)
	}
	return nil
}
