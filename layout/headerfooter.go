package layout

import (
	"fmt"

	"github.com/ByLCY/folio/flow"
)

// Header/footer bands are laid out with the same block/measure primitives
// as the main packer, but in an independent coordinate space and never
// across a page boundary: content that does not fit the band simply
// extends past it.

// HeaderFooterConstraints fixes the band geometry for one pass.
type HeaderFooterConstraints struct {
	// Width is the band's content width.
	Width float64

	// Height fixes the band height when positive; otherwise the height is
	// derived from the stacked content.
	Height float64

	// OverflowBaseHeight caps how far a decorative (behind-document)
	// asset may grow the derived band height. Without it a single
	// far-offset decoration would inflate the visible band.
	OverflowBaseHeight float64

	// PageSize/PageMargins, when set, switch decorative assets to
	// page-relative positioning.
	PageSize    *flow.PageSize
	PageMargins *flow.Margins
}

// HeaderFooter lays out one header or footer band for a section.
func HeaderFooter(blocks []flow.Block, measures []flow.Measure, c HeaderFooterConstraints) (*HeaderFooterLayout, error) {
	if err := flow.CheckAligned(blocks, measures); err != nil {
		return nil, err
	}
	if c.Width <= 0 {
		return nil, fmt.Errorf("layout: header/footer band width must be positive, got %g", c.Width)
	}

	out := &HeaderFooterLayout{}
	var cursorY float64
	var decorBottom float64

	for i := range blocks {
		blk := &blocks[i]
		m := measures[i]

		if blk.Kind == flow.KindImage && blk.Image != nil && blk.Image.Behind {
			d := decorativeImage(blk, m, c)
			out.Decorative = append(out.Decorative, d)
			if !d.PageRelative {
				if bottom := d.Y + d.Height; bottom > decorBottom {
					decorBottom = bottom
				}
			}
			continue
		}

		h := m.Height()
		frag := Fragment{
			BlockID:    blk.ID,
			BlockIndex: i,
			Range:      flow.Range{Start: 0, End: m.ContentLen()},
			X:          0,
			Y:          cursorY,
			Width:      c.Width,
			Height:     h,
		}
		if blk.Kind == flow.KindTable {
			frag.Table = bandTableFragment(blk, m)
		}
		out.Fragments = append(out.Fragments, frag)
		cursorY += h
	}

	out.Height = bandHeight(cursorY, decorBottom, c)
	return out, nil
}

// decorativeImage positions a behind-document asset. With page geometry
// supplied the offset is taken from the page origin; otherwise from the
// band origin.
func decorativeImage(blk *flow.Block, m flow.Measure, c HeaderFooterConstraints) DecorativeImage {
	var w, h float64
	if m.Image != nil {
		w, h = m.Image.Width, m.Image.Height
	}
	d := DecorativeImage{Source: blk.Image.Source, Width: w, Height: h}
	if blk.Image.Offset != nil {
		d.X = blk.Image.Offset.X
		d.Y = blk.Image.Offset.Y
	}
	if c.PageSize != nil {
		d.PageRelative = true
		if c.PageMargins != nil {
			d.X += c.PageMargins.Left
		}
	}
	return d
}

// bandHeight derives the band height: fixed when constrained, otherwise the
// stacked content height, grown by in-band decorations up to the overflow
// base cap.
func bandHeight(contentHeight, decorBottom float64, c HeaderFooterConstraints) float64 {
	if c.Height > 0 {
		return c.Height
	}
	h := contentHeight
	if decorBottom > h {
		capped := decorBottom
		if c.OverflowBaseHeight > 0 && capped > c.OverflowBaseHeight {
			capped = c.OverflowBaseHeight
		}
		if capped > h {
			h = capped
		}
	}
	return h
}

func bandTableFragment(blk *flow.Block, m flow.Measure) *TableFragment {
	n := tableRowCount(blk.Table, m.Table)
	rowY := make([]float64, 0, n)
	var h float64
	for r := 0; r < n; r++ {
		rowY = append(rowY, h)
		h += m.Table.RowHeight(r)
	}
	return &TableFragment{RowY: rowY}
}
