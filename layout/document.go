package layout

import (
	"fmt"

	"github.com/ByLCY/folio/flow"
)

// eps absorbs float noise in fit comparisons.
const eps = 1e-6

// Document packs blocks into pages in strict input order: no reordering, no
// skipped blocks. Fragment order matches block order. Identical inputs
// always produce an identical Layout.
func Document(blocks []flow.Block, measures []flow.Measure, opts Options) (*Layout, error) {
	p, err := newPacker(blocks, measures, opts)
	if err != nil {
		return nil, err
	}
	if err := p.packFrom(0); err != nil {
		return nil, err
	}
	return p.result(), nil
}

// packer drives one pass over the block sequence. It records a builder
// checkpoint per block so an incremental pass can rewind and repack from
// the first dirty block onward.
type packer struct {
	b        *PageBuilder
	opts     Options
	blocks   []flow.Block
	measures []flow.Measure

	anchors     []Anchor
	checkpoints []Checkpoint
}

func newPacker(blocks []flow.Block, measures []flow.Measure, opts Options) (*packer, error) {
	if err := flow.CheckAligned(blocks, measures); err != nil {
		return nil, err
	}
	if opts.PageSize.Width <= 0 || opts.PageSize.Height <= 0 {
		return nil, fmt.Errorf("layout: page size must be positive, got %gx%g",
			opts.PageSize.Width, opts.PageSize.Height)
	}
	return &packer{
		b:           NewPageBuilder(opts),
		opts:        opts,
		blocks:      blocks,
		measures:    measures,
		checkpoints: make([]Checkpoint, len(blocks)),
	}, nil
}

func (p *packer) packFrom(start int) error {
	p.b.EnsurePage()
	for i := start; i < len(p.blocks); i++ {
		p.checkpoints[i] = p.b.Checkpoint()
		if err := p.packBlock(i); err != nil {
			return err
		}
	}
	return nil
}

func (p *packer) result() *Layout {
	return &Layout{Pages: p.b.Pages(), Anchors: p.anchors}
}

func (p *packer) packBlock(i int) error {
	blk := &p.blocks[i]
	m := p.measures[i]

	// Honor keep-with-next before committing to this column: the block
	// plus the first chunk of the next one must fit together, unless even
	// a fresh column could not hold them.
	if blk.KeepWithNext {
		need := m.Height() + p.nextFirstChunkHeight(i)
		if need > p.b.Avail()+eps && !p.b.AtColumnTop() && need <= p.b.ContentHeight()+eps {
			p.b.AdvanceColumn()
		}
	}

	switch blk.Kind {
	case flow.KindPageBreak:
		p.packPageBreak(i, blk)
		return nil
	case flow.KindImage:
		p.packImage(i, blk, m.Image)
		return nil
	case flow.KindParagraph:
		return p.packParagraph(i, blk, m.Paragraph)
	case flow.KindTable:
		return p.packTable(i, blk, m.Table)
	default:
		return fmt.Errorf("layout: block %d has unknown kind %s", i, blk.Kind)
	}
}

// packPageBreak emits a zero-height marker fragment and moves to the next
// page.
func (p *packer) packPageBreak(i int, blk *flow.Block) {
	frag := Fragment{
		BlockID:    blk.ID,
		BlockIndex: i,
		Range:      flow.Range{Start: 0, End: 1},
		X:          p.b.ColumnX(),
		Y:          p.b.CursorY(),
		Width:      p.b.ColumnWidth(),
	}
	p.registerAnchors(i, blk)
	p.b.Place(frag)
	p.b.AdvancePage()
}

// packImage places the image whole. Images never split; one taller than a
// full column is still placed, flagged as overflow, rather than dropped.
func (p *packer) packImage(i int, blk *flow.Block, im *flow.ImageMeasure) {
	var w, h float64
	if im != nil {
		w, h = im.Width, im.Height
	}
	if h > p.b.Avail()+eps && !p.b.AtColumnTop() {
		p.b.AdvanceColumn()
	}
	if w > p.b.ColumnWidth() {
		w = p.b.ColumnWidth()
	}
	frag := Fragment{
		BlockID:    blk.ID,
		BlockIndex: i,
		Range:      flow.Range{Start: 0, End: 1},
		X:          p.b.ColumnX(),
		Y:          p.b.CursorY(),
		Width:      w,
		Height:     h,
		Overflow:   h > p.b.Avail()+eps,
	}
	p.registerAnchors(i, blk)
	p.b.Place(frag)
}

// packParagraph places measured lines greedily, splitting at line
// boundaries when the column runs out.
func (p *packer) packParagraph(i int, blk *flow.Block, pm *flow.ParagraphMeasure) error {
	pm, err := p.remeasure(blk, pm)
	if err != nil {
		return err
	}

	lines := pm.Lines
	if len(lines) == 0 {
		// Empty paragraphs still yield one (empty) fragment so fragment
		// order tracks block order.
		frag := Fragment{
			BlockID:    blk.ID,
			BlockIndex: i,
			X:          p.b.ColumnX(),
			Y:          p.b.CursorY(),
			Width:      p.b.ColumnWidth(),
		}
		p.registerAnchors(i, blk)
		p.b.Place(frag)
		return nil
	}

	start := 0
	for start < len(lines) {
		end, height := fitLines(lines, start, p.b.Avail())

		if end == start {
			if !p.b.AtColumnTop() {
				p.b.AdvanceColumn()
				continue
			}
			// A single line taller than the whole column: place it
			// anyway so the pass always makes progress.
			end = start + 1
			height = lines[start].Height
		}

		// keep-together: move the whole paragraph instead of splitting,
		// unless it cannot fit any column in one piece.
		if blk.KeepTogether && start == 0 && end < len(lines) &&
			!p.b.AtColumnTop() && pm.Height() <= p.b.ContentHeight()+eps {
			p.b.AdvanceColumn()
			continue
		}

		frag := Fragment{
			BlockID:    blk.ID,
			BlockIndex: i,
			Range:      flow.Range{Start: start, End: end},
			X:          p.b.ColumnX(),
			Y:          p.b.CursorY(),
			Width:      p.b.ColumnWidth(),
			Height:     height,
			Overflow:   height > p.b.Avail()+eps,
		}
		if start == 0 {
			p.registerAnchors(i, blk)
		}
		p.b.Place(frag)

		start = end
		if start < len(lines) {
			p.b.AdvanceColumn()
		}
	}
	return nil
}

// remeasure re-wraps a paragraph when its measure was computed at a width
// other than the current column's. It runs once per block, at the first
// fragment; columns on a page share one width, so continuations never need
// another pass.
func (p *packer) remeasure(blk *flow.Block, pm *flow.ParagraphMeasure) (*flow.ParagraphMeasure, error) {
	if pm == nil {
		return &flow.ParagraphMeasure{Width: p.b.ColumnWidth()}, nil
	}
	width := p.b.ColumnWidth()
	if p.opts.Remeasure == nil || equalWidth(pm.Width, width) {
		return pm, nil
	}
	var firstIndent float64
	if blk.Paragraph != nil {
		firstIndent = blk.Paragraph.Indents.FirstLine
	}
	next, err := p.opts.Remeasure(blk, width, firstIndent)
	if err != nil {
		return nil, fmt.Errorf("layout: remeasure of block %s failed: %w", blk.ID, err)
	}
	if next == nil {
		return pm, nil
	}
	return next, nil
}

// nextFirstChunkHeight returns the height of the smallest leading piece of
// the following block, for keep-with-next decisions.
func (p *packer) nextFirstChunkHeight(i int) float64 {
	if i+1 >= len(p.blocks) {
		return 0
	}
	m := p.measures[i+1]
	switch m.Kind {
	case flow.KindParagraph:
		if m.Paragraph != nil && len(m.Paragraph.Lines) > 0 {
			return m.Paragraph.Lines[0].Height
		}
	case flow.KindTable:
		if m.Table != nil && len(m.Table.RowHeights) > 0 {
			return m.Table.RowHeights[0]
		}
	case flow.KindImage:
		return m.Height()
	}
	return 0
}

func (p *packer) registerAnchors(i int, blk *flow.Block) {
	for _, name := range blk.AnchorNames {
		p.anchors = append(p.anchors, Anchor{
			Name:       name,
			Page:       p.b.PageNumber(),
			BlockID:    blk.ID,
			BlockIndex: i,
			Y:          p.b.CursorY(),
		})
	}
}

// fitLines returns the widest [start,end) line window whose summed height
// fits avail, plus that height.
func fitLines(lines []flow.LineBox, start int, avail float64) (int, float64) {
	end := start
	var h float64
	for end < len(lines) && h+lines[end].Height <= avail+eps {
		h += lines[end].Height
		end++
	}
	return end, h
}

func equalWidth(a, b float64) bool {
	d := a - b
	return d < eps && d > -eps
}
