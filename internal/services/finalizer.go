package services

import (
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdmerge/internal/pdfgraph"
	"github.com/Lllllllleong/pdmerge/internal/pdfio"
)

// Finalizer turns a merged document into output bytes.
type Finalizer struct {
	Optimize bool
	Logger   *slog.Logger
}

func (f *Finalizer) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// Finalize renumbers doc, attaches the bookmark outline and compresses it.
// It returns the page count.
func (f *Finalizer) Finalize(doc *pdfgraph.Document) (int, error) {
	logCtx := f.logger()

	doc.MaxID = uint32(len(doc.Objects))
	doc.RenumberContiguous()

	if n := doc.AdjustZeroPages(); n > 0 {
		logCtx.Info("Retargeted bookmarks of sources without pages", "count", n)
	}
	doc.BuildOutline()

	if removed := doc.Prune(); removed > 0 {
		logCtx.Debug("Pruned unreachable objects", "count", removed)
		doc.RenumberContiguous()
	}
	compressed, err := doc.Compress()
	if err != nil {
		return 0, fmt.Errorf("failed to compress streams: %w", err)
	}
	logCtx.Debug("Compressed streams", "count", compressed)

	return len(doc.Pages()), nil
}

// Encode serializes doc, running the optimizer when enabled. An optimizer
// failure is logged and the unoptimized bytes are returned.
func (f *Finalizer) Encode(doc *pdfgraph.Document) ([]byte, error) {
	data, err := pdfio.Encode(doc)
	if err != nil {
		return nil, err
	}
	if !f.Optimize {
		return data, nil
	}
	optimized, err := pdfio.Optimize(data)
	if err != nil {
		f.logger().Warn("Optimization failed, keeping unoptimized output", "error", err)
		return data, nil
	}
	f.logger().Debug("Optimized output", "before", len(data), "after", len(optimized))
	return optimized, nil
}

// Save finalizes doc and writes it atomically to output.
func (f *Finalizer) Save(doc *pdfgraph.Document, output string, createParents bool) (int, error) {
	pages, err := f.Finalize(doc)
	if err != nil {
		return 0, &RunError{Kind: CouldNotSaveTheOutput, Path: output, Err: err}
	}
	data, err := f.Encode(doc)
	if err != nil {
		return 0, &RunError{Kind: CouldNotSaveTheOutput, Path: output, Err: err}
	}
	if err := pdfio.SaveFile(output, data, createParents); err != nil {
		return 0, &RunError{Kind: CouldNotSaveTheOutput, Path: output, Err: err}
	}
	return pages, nil
}
