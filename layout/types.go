// Package layout turns an ordered sequence of document blocks plus
// precomputed measurements into paginated page layouts: positioned
// fragments grouped into columns and pages. A layout pass is a pure
// function of (blocks, measures, options); it never mutates its inputs.
package layout

import "github.com/ByLCY/folio/flow"

// Fragment is a placed, positioned slice of a block's content. A block
// yields one fragment when it fits, or several when split across
// columns/pages. The ordered concatenation of a block's fragment ranges
// always equals the block's full content range.
type Fragment struct {
	BlockID    string     `json:"blockId"`
	BlockIndex int        `json:"blockIndex"`
	Range      flow.Range `json:"range"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Overflow marks a non-splittable fragment that was placed even
	// though it exceeds the column, to avoid dropping content.
	Overflow bool `json:"overflow,omitempty"`

	Table *TableFragment `json:"table,omitempty"`
}

// TableFragment carries the table-specific portion of a fragment: which
// body rows it holds and how it relates to neighbouring continuations.
type TableFragment struct {
	// RowY holds, per row in Fragment.Range, the row's y offset relative
	// to the fragment top (after any repeated header rows).
	RowY []float64 `json:"rowY"`

	// Continued marks a fragment that resumes a table started on an
	// earlier column/page.
	Continued bool `json:"continued,omitempty"`

	// RepeatsHeader marks the explicit, intentional duplication of the
	// table's header rows at the top of a continuation fragment.
	RepeatsHeader bool `json:"repeatsHeader,omitempty"`

	// HeaderHeight is the height consumed by repeated header rows.
	HeaderHeight float64 `json:"headerHeight,omitempty"`
}

// Column is one vertical band of a page's content box. Fragments are
// y-monotonic and non-overlapping.
type Column struct {
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Width     float64    `json:"width"`
	Fragments []Fragment `json:"fragments"`
}

// Page holds the columns laid out on one page. Number is 1-based.
type Page struct {
	Number  int          `json:"number"`
	Size    flow.PageSize `json:"size"`
	Margins flow.Margins  `json:"margins"`
	Columns []Column      `json:"columns"`
}

// Anchor is a named position registered while packing, consumed later for
// cross-reference resolution.
type Anchor struct {
	Name       string  `json:"name"`
	Page       int     `json:"page"` // 1-based
	BlockID    string  `json:"blockId"`
	BlockIndex int     `json:"blockIndex"`
	Y          float64 `json:"y"`
}

// Layout is the disposable output of a pack pass.
type Layout struct {
	Pages   []Page   `json:"pages"`
	Anchors []Anchor `json:"anchors,omitempty"`
}

// PageCount returns the number of pages.
func (l *Layout) PageCount() int {
	if l == nil {
		return 0
	}
	return len(l.Pages)
}

// Overflowed reports whether any fragment was placed with the overflow
// marker.
func (l *Layout) Overflowed() bool {
	if l == nil {
		return false
	}
	for _, pg := range l.Pages {
		for _, col := range pg.Columns {
			for _, f := range col.Fragments {
				if f.Overflow {
					return true
				}
			}
		}
	}
	return false
}

// Fragments returns all fragments in page/column/placement order.
func (l *Layout) Fragments() []Fragment {
	if l == nil {
		return nil
	}
	var out []Fragment
	for _, pg := range l.Pages {
		for _, col := range pg.Columns {
			out = append(out, col.Fragments...)
		}
	}
	return out
}

// DecorativeImage is a behind-document asset positioned by a header/footer
// pass. PageRelative images are anchored to the page box rather than the
// band.
type DecorativeImage struct {
	Source       string  `json:"source"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	PageRelative bool    `json:"pageRelative,omitempty"`
}

// HeaderFooterLayout is the independent coordinate-space layout of a single
// header or footer band.
type HeaderFooterLayout struct {
	Height     float64           `json:"height"`
	Fragments  []Fragment        `json:"fragments"`
	Decorative []DecorativeImage `json:"decorative,omitempty"`
}
