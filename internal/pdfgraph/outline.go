package pdfgraph

// AddBookmark records a bookmark to be turned into an outline entry by
// BuildOutline.
func (d *Document) AddBookmark(b Bookmark) {
	d.Bookmarks = append(d.Bookmarks, b)
}

// AdjustZeroPages retargets bookmarks whose page does not exist (a source
// without pages) to the first page of the document. It returns the number
// of bookmarks changed.
func (d *Document) AdjustZeroPages() int {
	pages := d.Pages()
	if len(pages) == 0 {
		return 0
	}
	valid := make(map[ObjectID]bool, len(pages))
	for _, id := range pages {
		valid[id] = true
	}
	n := 0
	for i := range d.Bookmarks {
		if !valid[d.Bookmarks[i].Page] {
			d.Bookmarks[i].Page = pages[0]
			n++
		}
	}
	return n
}

// BuildOutline turns the recorded bookmarks into a flat outline and
// attaches it to the catalog. Bookmarks that still point nowhere are
// skipped. It reports whether an outline was created.
func (d *Document) BuildOutline() (ObjectID, bool) {
	cat, err := d.Catalog()
	if err != nil {
		return ObjectID{}, false
	}
	var marks []Bookmark
	for _, b := range d.Bookmarks {
		if _, ok := d.Objects[b.Page].(Dict); ok {
			marks = append(marks, b)
		}
	}
	if len(marks) == 0 {
		return ObjectID{}, false
	}

	rootID := d.Add(Dict{"Type": Name("Outlines")})
	items := make([]ObjectID, len(marks))
	for i := range marks {
		items[i] = d.Add(Null{})
	}
	for i, b := range marks {
		item := Dict{
			"Title":  TextString(b.Title),
			"Parent": Ref(rootID),
			"Dest":   Array{Ref(b.Page), Name("Fit")},
			"C":      Array{Real(b.Color[0]), Real(b.Color[1]), Real(b.Color[2])},
			"F":      Integer(b.Flags),
		}
		if i > 0 {
			item["Prev"] = Ref(items[i-1])
		}
		if i < len(items)-1 {
			item["Next"] = Ref(items[i+1])
		}
		d.Objects[items[i]] = item
	}
	d.Objects[rootID] = Dict{
		"Type":  Name("Outlines"),
		"First": Ref(items[0]),
		"Last":  Ref(items[len(items)-1]),
		"Count": Integer(len(items)),
	}
	cat["Outlines"] = Ref(rootID)
	return rootID, true
}
