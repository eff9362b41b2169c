package layout

import "github.com/ByLCY/folio/flow"

// PageBuilder owns the page/column/cursor state the packer advances through.
// The table module mutates the same state through it instead of through
// closure-captured callbacks, which keeps the state machine testable on its
// own.
type PageBuilder struct {
	size    flow.PageSize
	margins flow.Margins
	columns flow.ColumnLayout

	headerHeight float64
	footerHeight float64

	pages   []Page
	col     int
	cursorY float64
}

// Checkpoint captures the builder position before a block is placed, so an
// incremental pass can rewind to it and repack forward.
type Checkpoint struct {
	Page    int
	Col     int
	Frags   int
	CursorY float64
}

// NewPageBuilder returns a builder with no pages yet; the first page is
// opened by EnsurePage.
func NewPageBuilder(opts Options) *PageBuilder {
	return &PageBuilder{
		size:         opts.PageSize,
		margins:      opts.Margins,
		columns:      opts.Columns.Normalize(),
		headerHeight: opts.HeaderHeight,
		footerHeight: opts.FooterHeight,
	}
}

// ContentTop is the y where content starts on every page: the top margin or
// the header band, whichever reaches lower.
func (b *PageBuilder) ContentTop() float64 {
	if band := b.margins.Header + b.headerHeight; band > b.margins.Top {
		return band
	}
	return b.margins.Top
}

// ContentBottom is the y where the content box ends.
func (b *PageBuilder) ContentBottom() float64 {
	reserved := b.margins.Bottom
	if band := b.margins.Footer + b.footerHeight; band > reserved {
		reserved = band
	}
	return b.size.Height - reserved
}

// ContentHeight is the full usable column height.
func (b *PageBuilder) ContentHeight() float64 {
	return b.ContentBottom() - b.ContentTop()
}

// ColumnWidth returns the width of one column.
func (b *PageBuilder) ColumnWidth() float64 {
	content := b.size.Width - b.margins.Left - b.margins.Right
	n := float64(b.columns.Count)
	return (content - float64(b.columns.Count-1)*b.columns.Gutter) / n
}

// ColumnX returns the x of the current column's left edge.
func (b *PageBuilder) ColumnX() float64 {
	return b.margins.Left + float64(b.col)*(b.ColumnWidth()+b.columns.Gutter)
}

// CursorY returns the current vertical cursor.
func (b *PageBuilder) CursorY() float64 { return b.cursorY }

// Avail returns the remaining height in the current column.
func (b *PageBuilder) Avail() float64 { return b.ContentBottom() - b.cursorY }

// AtColumnTop reports whether nothing has been placed in the current
// column. The packer uses it to force progress on oversize content.
func (b *PageBuilder) AtColumnTop() bool {
	return b.cursorY == b.ContentTop()
}

// PageNumber returns the 1-based number of the current page, or 0 before
// EnsurePage.
func (b *PageBuilder) PageNumber() int { return len(b.pages) }

// EnsurePage opens the first page if none exists yet.
func (b *PageBuilder) EnsurePage() {
	if len(b.pages) == 0 {
		b.openPage()
	}
}

// AdvanceColumn moves to the next column, opening a new page after the
// last one.
func (b *PageBuilder) AdvanceColumn() {
	b.EnsurePage()
	if b.col+1 < b.columns.Count {
		b.col++
		b.cursorY = b.ContentTop()
		b.openColumn()
		return
	}
	b.AdvancePage()
}

// AdvancePage opens a fresh page and resets to its first column.
func (b *PageBuilder) AdvancePage() {
	b.openPage()
}

// Place appends the fragment to the current column and advances the cursor
// past it. The caller positions the fragment at (ColumnX, CursorY) first.
func (b *PageBuilder) Place(f Fragment) {
	b.EnsurePage()
	col := b.currentColumn()
	col.Fragments = append(col.Fragments, f)
	b.cursorY += f.Height
}

// Pages returns the pages built so far.
func (b *PageBuilder) Pages() []Page { return b.pages }

// Checkpoint records the current position.
func (b *PageBuilder) Checkpoint() Checkpoint {
	if len(b.pages) == 0 {
		return Checkpoint{Page: -1}
	}
	return Checkpoint{
		Page:    len(b.pages) - 1,
		Col:     b.col,
		Frags:   len(b.currentColumn().Fragments),
		CursorY: b.cursorY,
	}
}

// Restore rewinds to a previously recorded checkpoint, discarding every
// fragment, column and page placed after it.
func (b *PageBuilder) Restore(cp Checkpoint) {
	if cp.Page < 0 {
		b.pages = nil
		b.col = 0
		b.cursorY = 0
		return
	}
	b.pages = b.pages[:cp.Page+1]
	pg := &b.pages[cp.Page]
	pg.Columns = pg.Columns[:cp.Col+1]
	b.col = cp.Col
	col := &pg.Columns[cp.Col]
	col.Fragments = col.Fragments[:cp.Frags]
	b.cursorY = cp.CursorY
}

func (b *PageBuilder) openPage() {
	b.pages = append(b.pages, Page{
		Number:  len(b.pages) + 1,
		Size:    b.size,
		Margins: b.margins,
	})
	b.col = 0
	b.cursorY = b.ContentTop()
	b.openColumn()
}

func (b *PageBuilder) openColumn() {
	pg := &b.pages[len(b.pages)-1]
	pg.Columns = append(pg.Columns, Column{
		X:     b.ColumnX(),
		Y:     b.ContentTop(),
		Width: b.ColumnWidth(),
	})
}

func (b *PageBuilder) currentColumn() *Column {
	pg := &b.pages[len(b.pages)-1]
	return &pg.Columns[len(pg.Columns)-1]
}
