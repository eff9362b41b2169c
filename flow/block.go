// Package flow defines the document content model consumed by the layout
// engine: typed blocks in document order, their leaf spans, and the
// precomputed geometry (measures) produced by a measurement provider.
// All coordinates and lengths are in points (pt).
package flow

// BlockKind tags the Block union.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindTable
	KindImage
	KindPageBreak
)

// String returns the human-readable block kind.
func (k BlockKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	case KindPageBreak:
		return "page-break"
	default:
		return "unknown"
	}
}

// Block is one semantic unit of document content. Exactly one payload
// pointer matching Kind is set; the others stay nil.
type Block struct {
	ID   string    `json:"id"`
	Kind BlockKind `json:"kind"`

	Paragraph *Paragraph `json:"paragraph,omitempty"`
	Table     *Table     `json:"table,omitempty"`
	Image     *Image     `json:"image,omitempty"`

	// Pagination hints. KeepWithNext forbids a page/column break between
	// this block and the start of the next one; KeepTogether forbids
	// splitting the block itself. Both are relaxed rather than producing
	// an oversize page.
	KeepWithNext bool `json:"keepWithNext,omitempty"`
	KeepTogether bool `json:"keepTogether,omitempty"`

	// AnchorNames are bookmark/section names registered at the block's
	// first fragment for later page-reference resolution.
	AnchorNames []string `json:"anchorNames,omitempty"`
}

// SpanKind tags the Span union.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanTab
	SpanLineBreak
	SpanHardBreak
)

// Span is an ordered leaf unit within a paragraph. Text spans carry their
// measured advance; tab spans carry a stable id used to map resolved tab
// widths back onto decorations.
type Span struct {
	ID    string   `json:"id"`
	Kind  SpanKind `json:"kind"`
	Text  string   `json:"text,omitempty"`
	Width float64  `json:"width,omitempty"`
}

// Node is an element of a paragraph's content tree. A leaf holds a Span;
// a container (hyperlink, styled run group) holds children. The in-order
// sequence of leaves is the paragraph's span sequence.
type Node struct {
	Span     *Span   `json:"span,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Comment is an annotation attached to a run.
type Comment struct {
	ID       string `json:"id"`
	Internal bool   `json:"internal,omitempty"`
}

// Run is the editing-model unit a paragraph is made of. Runs only feed the
// incremental diff engine; layout itself works on spans.
type Run struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	StyleKey string    `json:"styleKey,omitempty"`
	Comments []Comment `json:"comments,omitempty"`
}

// Indents holds paragraph indentation in pt.
type Indents struct {
	Left      float64 `json:"left,omitempty"`
	Right     float64 `json:"right,omitempty"`
	FirstLine float64 `json:"firstLine,omitempty"`
}

// Leader is the fill style drawn in the space a tab skips over. It affects
// rendering only, never width.
type Leader string

const (
	LeaderNone       Leader = "none"
	LeaderDot        Leader = "dot"
	LeaderHeavy      Leader = "heavy"
	LeaderHyphen     Leader = "hyphen"
	LeaderMiddleDot  Leader = "middleDot"
	LeaderUnderscore Leader = "underscore"
)

// TabAlignment selects how text following a tab aligns to the stop.
type TabAlignment string

const (
	TabLeft    TabAlignment = "left"
	TabCenter  TabAlignment = "center"
	TabRight   TabAlignment = "right"
	TabDecimal TabAlignment = "decimal"
)

// TabStop is a configured horizontal alignment target within a paragraph.
type TabStop struct {
	Position  float64      `json:"position"`
	Alignment TabAlignment `json:"alignment,omitempty"`
	Leader    Leader       `json:"leader,omitempty"`
}

// DefaultTabDistance is the fallback tab grid (0.5in) used when a paragraph
// does not override it.
const DefaultTabDistance = 36.0

// TextStyle carries the properties the measurement provider needs.
type TextStyle struct {
	Font       string  `json:"font,omitempty"`
	Size       float64 `json:"size,omitempty"`       // pt
	LineHeight float64 `json:"lineHeight,omitempty"` // pt, 0 means size*1.2
}

// Paragraph is ordered rich-text content. Nodes is the canonical content
// tree; Spans() flattens it for the resolvers that walk leaves in order.
type Paragraph struct {
	Nodes              []*Node   `json:"nodes"`
	Runs               []Run     `json:"runs,omitempty"`
	TabStops           []TabStop `json:"tabStops,omitempty"`
	Indents            Indents   `json:"indents,omitempty"`
	DefaultTabDistance float64   `json:"defaultTabDistance,omitempty"`
	Style              TextStyle `json:"style,omitempty"`
}

// Spans returns the paragraph's leaf spans in document order.
func (p *Paragraph) Spans() []*Span {
	if p == nil {
		return nil
	}
	var out []*Span
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if n.Span != nil {
				out = append(out, n.Span)
				continue
			}
			walk(n.Children)
		}
	}
	walk(p.Nodes)
	return out
}

// TabDistance returns the effective default tab grid for the paragraph.
func (p *Paragraph) TabDistance() float64 {
	if p != nil && p.DefaultTabDistance > 0 {
		return p.DefaultTabDistance
	}
	return DefaultTabDistance
}

// Table is rows of cells with span/merge metadata.
type Table struct {
	Rows []TableRow `json:"rows"`
	// ColumnWidths is the authored column grid in pt; empty means columns
	// share the available width evenly.
	ColumnWidths []float64 `json:"columnWidths,omitempty"`
	// HeaderRows counts leading rows treated as the table header;
	// RepeatHeader re-emits them at the top of every continuation.
	HeaderRows   int  `json:"headerRows,omitempty"`
	RepeatHeader bool `json:"repeatHeader,omitempty"`
}

// TableRow is one table row.
type TableRow struct {
	Cells []TableCell `json:"cells"`
}

// TableCell holds cell content plus horizontal/vertical span counts.
// RowSpan > 1 starts a vertical merge group covering the following rows;
// covered positions carry no cell of their own.
type TableCell struct {
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	ColSpan   int        `json:"colSpan,omitempty"`
	RowSpan   int        `json:"rowSpan,omitempty"`
}

// Image is a replaced block. Width/Height are the authored display size in
// pt (0 means unknown; the measurer falls back to a default). Behind marks
// decorative assets that sit behind document content; Offset positions them
// relative to their anchor (the page for header/footer decorations).
type Image struct {
	Source string    `json:"source"`
	Width  float64   `json:"width,omitempty"`
	Height float64   `json:"height,omitempty"`
	Behind bool      `json:"behind,omitempty"`
	Offset *Position `json:"offset,omitempty"`
}

// Position is an x/y offset in pt.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
