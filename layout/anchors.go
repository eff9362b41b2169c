package layout

// AnchorMap resolves anchor names to final 1-based page numbers.
type AnchorMap map[string]int

// BuildAnchorMap collects the anchors a pack pass registered, keyed by
// name. Duplicate names keep the first (earliest) page, matching document
// order.
func BuildAnchorMap(l *Layout) AnchorMap {
	m := AnchorMap{}
	if l == nil {
		return m
	}
	for _, a := range l.Anchors {
		if _, ok := m[a.Name]; !ok {
			m[a.Name] = a.Page
		}
	}
	return m
}

// BlockPages maps block ids to the page their first fragment landed on.
func BlockPages(l *Layout) map[string]int {
	m := map[string]int{}
	if l == nil {
		return m
	}
	for _, pg := range l.Pages {
		for _, col := range pg.Columns {
			for _, f := range col.Fragments {
				if _, ok := m[f.BlockID]; !ok {
					m[f.BlockID] = pg.Number
				}
			}
		}
	}
	return m
}
