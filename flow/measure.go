package flow

import "fmt"

// This file defines precomputed geometry, index-aligned with blocks.

// Range is a half-open slice of a block's content. Units depend on the
// block kind: line indices for paragraphs, row indices for tables, and
// [0,1) for images and page breaks.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of content units covered.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether the range covers nothing.
func (r Range) Empty() bool { return r.End <= r.Start }

// LineBox is one measured paragraph line: the half-open span index range it
// consumes plus its geometry.
type LineBox struct {
	StartSpan int     `json:"startSpan"`
	EndSpan   int     `json:"endSpan"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Baseline  float64 `json:"baseline"`
}

// ParagraphMeasure is the line-break result for a paragraph at a given
// wrapping width.
type ParagraphMeasure struct {
	Lines []LineBox `json:"lines"`
	// Width is the wrapping width the lines were computed at. The packer
	// compares it against the current column width to decide whether a
	// remeasure is needed after a column/page transition.
	Width float64 `json:"width"`
}

// Height returns the summed line heights.
func (m *ParagraphMeasure) Height() float64 {
	var h float64
	for _, ln := range m.Lines {
		h += ln.Height
	}
	return h
}

// TableMeasure carries per-row heights and resolved column widths.
type TableMeasure struct {
	RowHeights   []float64 `json:"rowHeights"`
	ColumnWidths []float64 `json:"columnWidths"`
}

// RowHeight returns the height of row i, or 0 when the entry is missing.
// Missing entries mean "not specified" rather than an error.
func (m *TableMeasure) RowHeight(i int) float64 {
	if m == nil || i < 0 || i >= len(m.RowHeights) {
		return 0
	}
	return m.RowHeights[i]
}

// Width returns the summed column widths.
func (m *TableMeasure) Width() float64 {
	var w float64
	for _, cw := range m.ColumnWidths {
		w += cw
	}
	return w
}

// ImageMeasure is the intrinsic size of an image block.
type ImageMeasure struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Measure is precomputed geometry for one block, same union shape as Block.
type Measure struct {
	Kind BlockKind `json:"kind"`

	Paragraph *ParagraphMeasure `json:"paragraph,omitempty"`
	Table     *TableMeasure     `json:"table,omitempty"`
	Image     *ImageMeasure     `json:"image,omitempty"`
}

// ContentLen returns the block's content length in range units.
func (m Measure) ContentLen() int {
	switch m.Kind {
	case KindParagraph:
		if m.Paragraph == nil {
			return 0
		}
		return len(m.Paragraph.Lines)
	case KindTable:
		if m.Table == nil {
			return 0
		}
		return len(m.Table.RowHeights)
	default:
		return 1
	}
}

// Height returns the block's full measured height.
func (m Measure) Height() float64 {
	switch m.Kind {
	case KindParagraph:
		if m.Paragraph == nil {
			return 0
		}
		return m.Paragraph.Height()
	case KindTable:
		var h float64
		if m.Table != nil {
			for _, rh := range m.Table.RowHeights {
				h += rh
			}
		}
		return h
	case KindImage:
		if m.Image == nil {
			return 0
		}
		return m.Image.Height
	default:
		return 0
	}
}

// CheckAligned verifies the blocks/measures pairing contract: equal length
// and matching kinds at every index.
func CheckAligned(blocks []Block, measures []Measure) error {
	if len(blocks) != len(measures) {
		return fmt.Errorf("flow: %d blocks but %d measures", len(blocks), len(measures))
	}
	for i := range blocks {
		if blocks[i].Kind != measures[i].Kind {
			return fmt.Errorf("flow: block %d is %s but measure is %s",
				i, blocks[i].Kind, measures[i].Kind)
		}
	}
	return nil
}
