package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdmerge/internal/pdfgraph"
	"github.com/Lllllllleong/pdmerge/internal/pdfio"
)

// bookmarkColor is the outline item color of every source bookmark.
var bookmarkColor = [3]float64{0, 0, 1}

// Merger loads source PDFs and combines them into one object graph.
type Merger struct {
	workers int
	logger  *slog.Logger
}

// NewMerger returns a Merger that decodes up to workers files at once.
func NewMerger(workers int, logger *slog.Logger) *Merger {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{workers: workers, logger: logger}
}

// Merge loads paths and merges them in order.
func (m *Merger) Merge(ctx context.Context, paths []string) (*pdfgraph.Document, error) {
	docs, err := m.loadAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	return MergeDocuments(docs)
}

// loadAll decodes every path into its own slot. All loads run to
// completion so the error reported is the first one in input order, the
// same error a sequential load would hit.
func (m *Merger) loadAll(ctx context.Context, paths []string) ([]*pdfgraph.Document, error) {
	docs := make([]*pdfgraph.Document, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(m.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			doc, err := pdfio.LoadFile(path)
			if err != nil {
				errs[i] = loadError(path, err)
				return nil
			}
			m.logger.Debug("Loaded source", "path", path, "objects", len(doc.Objects))
			docs[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func loadError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &RunError{Kind: EntryDoesNotExist, Path: path, Err: err}
	}
	return &RunError{Kind: CouldNotLoadInput, Path: path, Err: err}
}

type pageEntry struct {
	id   pdfgraph.ObjectID
	dict pdfgraph.Dict
}

// MergeDocuments combines docs into a new document. The sources are
// renumbered in place and must not be used afterwards.
//
// Every page keeps its content and resources; the page trees are flattened
// under the first Pages node, the first catalog is kept and source outlines
// are replaced by one bookmark per source pointing at its first page.
func MergeDocuments(docs []*pdfgraph.Document) (*pdfgraph.Document, error) {
	target := pdfgraph.New()
	nextID := uint32(1)

	var (
		pages       []pageEntry
		catalogID   pdfgraph.ObjectID
		catalog     pdfgraph.Dict
		haveCatalog bool
		pagesID     pdfgraph.ObjectID
		pagesDict   pdfgraph.Dict
		havePages   bool
	)

	for n, doc := range docs {
		doc.Renumber(nextID - 1)
		if doc.MaxID+1 > nextID {
			nextID = doc.MaxID + 1
		}

		// --- 1. Pages and the source bookmark ---
		srcPages := doc.Pages()
		for _, id := range srcPages {
			doc.InheritAttributes(id)
		}
		var first pdfgraph.ObjectID
		if len(srcPages) > 0 {
			first = srcPages[0]
		}
		target.AddBookmark(pdfgraph.Bookmark{
			Title: fmt.Sprintf("Page_%d", n+1),
			Color: bookmarkColor,
			Page:  first,
		})
		for _, id := range srcPages {
			if dict := pdfgraph.AsDict(doc.Objects[id]); dict != nil {
				pages = append(pages, pageEntry{id: id, dict: dict})
			}
		}

		// --- 2. Classify the remaining objects ---
		for _, id := range doc.IDs() {
			obj := doc.Objects[id]
			switch kind := pdfgraph.Classify(obj); kind {
			case pdfgraph.KindCatalog:
				if !haveCatalog {
					catalogID, catalog, haveCatalog = id, pdfgraph.AsDict(obj).Clone(), true
				}
			case pdfgraph.KindPages:
				dict := pdfgraph.AsDict(obj).Clone()
				if !havePages {
					pagesID, pagesDict, havePages = id, dict, true
					continue
				}
				for k, v := range pagesDict {
					dict[k] = v
				}
				pagesDict = dict
			case pdfgraph.KindPage, pdfgraph.KindOutlines:
			case pdfgraph.KindOther:
				target.Set(id, obj)
			default:
				panic(fmt.Sprintf("services: unhandled object kind %v", kind))
			}
		}

		if n == 0 {
			if info, ok := doc.Trailer["Info"]; ok {
				target.Trailer["Info"] = info
			}
		}
	}

	// --- 3. Rebuild the page tree ---
	if !havePages {
		return nil, &RunError{Kind: RootPageNotFound}
	}
	kids := make(pdfgraph.Array, 0, len(pages))
	for _, p := range pages {
		p.dict["Parent"] = pdfgraph.Ref(pagesID)
		target.Set(p.id, p.dict)
		kids = append(kids, pdfgraph.Ref(p.id))
	}

	if !haveCatalog {
		return nil, &RunError{Kind: CatalogIsNone}
	}
	// Nested intermediate nodes fold their Parent into the root; drop it.
	delete(pagesDict, "Parent")
	pagesDict["Count"] = pdfgraph.Integer(len(pages))
	pagesDict["Kids"] = kids
	target.Set(pagesID, pagesDict)

	catalog["Pages"] = pdfgraph.Ref(pagesID)
	delete(catalog, "Outlines")
	target.Set(catalogID, catalog)
	target.Trailer["Root"] = pdfgraph.Ref(catalogID)

	return target, nil
}
