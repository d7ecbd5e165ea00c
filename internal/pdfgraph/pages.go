package pdfgraph

// inheritable lists the page attributes a page may take from its ancestors
// in the page tree.
var inheritable = []Name{"Resources", "MediaBox", "CropBox", "Rotate"}

const maxTreeDepth = 256

// Pages returns the ids of the document's pages in page-tree order. Nodes
// that were already visited are skipped, so malformed trees with cycles
// still terminate.
func (d *Document) Pages() []ObjectID {
	cat, err := d.Catalog()
	if err != nil {
		return nil
	}
	root, ok := cat["Pages"].(Reference)
	if !ok {
		return nil
	}

	var pages []ObjectID
	seen := make(map[ObjectID]bool)
	var walk func(id ObjectID, depth int)
	walk = func(id ObjectID, depth int) {
		if seen[id] || depth > maxTreeDepth {
			return
		}
		seen[id] = true
		node, ok := d.Objects[id].(Dict)
		if !ok {
			return
		}
		kids, hasKids := d.Resolve(node["Kids"]).(Array)
		if Type(node) == "Page" || (!hasKids && Type(node) != "Pages") {
			pages = append(pages, id)
			return
		}
		for _, kid := range kids {
			if ref, ok := kid.(Reference); ok {
				walk(ref.ID(), depth+1)
			}
		}
	}
	walk(root.ID(), 0)
	return pages
}

// InheritAttributes copies inheritable attributes the page does not set
// itself from the nearest ancestor that does. It must run before the page
// is detached from its original tree.
func (d *Document) InheritAttributes(page ObjectID) {
	dict, ok := d.Objects[page].(Dict)
	if !ok {
		return
	}
	var missing []Name
	for _, key := range inheritable {
		if _, ok := dict[key]; !ok {
			missing = append(missing, key)
		}
	}

	seen := map[ObjectID]bool{page: true}
	parent := dict["Parent"]
	for depth := 0; len(missing) > 0 && depth < maxTreeDepth; depth++ {
		ref, ok := parent.(Reference)
		if !ok || seen[ref.ID()] {
			return
		}
		seen[ref.ID()] = true
		node, ok := d.Objects[ref.ID()].(Dict)
		if !ok {
			return
		}
		remaining := missing[:0]
		for _, key := range missing {
			if v, ok := node[key]; ok {
				dict[key] = Clone(v)
			} else {
				remaining = append(remaining, key)
			}
		}
		missing = remaining
		parent = node["Parent"]
	}
}
