package layout

import "github.com/ByLCY/folio/flow"

// RemeasureFunc re-wraps a paragraph at a new width after a column/page
// transition. It is the engine's only external call; an error aborts the
// whole pass, since a layout built on a failed measurement would violate
// the content-preservation invariant.
type RemeasureFunc func(block *flow.Block, maxWidth, firstLineIndent float64) (*flow.ParagraphMeasure, error)

// Options configures a pack pass.
type Options struct {
	PageSize flow.PageSize
	Margins  flow.Margins
	Columns  flow.ColumnLayout

	// Remeasure is optional. When nil, paragraphs keep the measure they
	// were supplied with even if the column width differs.
	Remeasure RemeasureFunc

	// HeaderHeight/FooterHeight reserve band space beyond the margins,
	// typically the Height of a HeaderFooter pass. The effective content
	// top is max(Margins.Top, Margins.Header+HeaderHeight), and likewise
	// at the bottom.
	HeaderHeight float64
	FooterHeight float64
}
