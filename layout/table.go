package layout

import "github.com/ByLCY/folio/flow"

// Table placement. Rows are atomic: a row never splits across a column or
// page boundary, and a vertical merge group (rowspan) moves to the
// continuation as a whole. Each row belongs to exactly one fragment; the
// only intentional duplication is a repeated header, which the fragment
// marks explicitly.

func (p *packer) packTable(i int, blk *flow.Block, tm *flow.TableMeasure) error {
	tbl := blk.Table
	n := tableRowCount(tbl, tm)
	if n == 0 {
		frag := Fragment{
			BlockID:    blk.ID,
			BlockIndex: i,
			X:          p.b.ColumnX(),
			Y:          p.b.CursorY(),
			Width:      p.b.ColumnWidth(),
			Table:      &TableFragment{},
		}
		p.registerAnchors(i, blk)
		p.b.Place(frag)
		return nil
	}

	heights := make([]float64, n)
	var total float64
	for r := 0; r < n; r++ {
		heights[r] = tm.RowHeight(r)
		total += heights[r]
	}
	boundary := splitBoundaries(tbl, n)

	hdr := 0
	if tbl != nil {
		hdr = tbl.HeaderRows
	}
	if hdr > n {
		hdr = n
	}
	repeat := tbl != nil && tbl.RepeatHeader && hdr > 0
	var headerHeight float64
	for r := 0; r < hdr; r++ {
		headerHeight += heights[r]
	}

	width := tableWidth(tm, p.b.ColumnWidth())

	if blk.KeepTogether && total > p.b.Avail()+eps &&
		!p.b.AtColumnTop() && total <= p.b.ContentHeight()+eps {
		p.b.AdvanceColumn()
	}

	start := 0
	first := true
	for start < n {
		repeatHere := !first && repeat && start >= hdr
		var hdrH float64
		if repeatHere {
			hdrH = headerHeight
		}

		end, overflow := fitRows(heights, boundary, start, p.b.Avail()-hdrH)
		if end == start {
			if !p.b.AtColumnTop() {
				p.b.AdvanceColumn()
				continue
			}
			// The next merge group is taller than a whole column. Place
			// it anyway, flagged, so no row is ever dropped.
			end = start + 1
			for end < n && !boundary[end] {
				end++
			}
			overflow = true
		}

		var h float64
		rowY := make([]float64, 0, end-start)
		for r := start; r < end; r++ {
			rowY = append(rowY, hdrH+h)
			h += heights[r]
		}

		frag := Fragment{
			BlockID:    blk.ID,
			BlockIndex: i,
			Range:      flow.Range{Start: start, End: end},
			X:          p.b.ColumnX(),
			Y:          p.b.CursorY(),
			Width:      width,
			Height:     hdrH + h,
			Overflow:   overflow,
			Table: &TableFragment{
				RowY:          rowY,
				Continued:     !first,
				RepeatsHeader: repeatHere,
				HeaderHeight:  hdrH,
			},
		}
		if first {
			p.registerAnchors(i, blk)
		}
		p.b.Place(frag)

		first = false
		start = end
		if start < n {
			p.b.AdvanceColumn()
		}
	}
	return nil
}

// AnchoredTableFragment builds a single fragment for a floating/anchored
// table positioned at fixed coordinates. Anchored tables never split; the
// fragment carries the whole row range. BlockIndex is -1 to mark the
// fragment as out of flow.
func AnchoredTableFragment(blk *flow.Block, m flow.Measure, x, y float64) Fragment {
	tm := m.Table
	n := tableRowCount(blk.Table, tm)
	rowY := make([]float64, 0, n)
	var h float64
	for r := 0; r < n; r++ {
		rowY = append(rowY, h)
		h += tm.RowHeight(r)
	}
	var w float64
	if tm != nil {
		w = tm.Width()
	}
	return Fragment{
		BlockID:    blk.ID,
		BlockIndex: -1,
		Range:      flow.Range{Start: 0, End: n},
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		Table:      &TableFragment{RowY: rowY},
	}
}

// splitBoundaries reports, for every s in [0,n], whether the table may be
// split so that rows [.,s) and [s,.) land in different fragments. s is
// invalid while a merge group started above is still open.
func splitBoundaries(tbl *flow.Table, n int) []bool {
	valid := make([]bool, n+1)
	maxEnd := 0
	for s := 0; s <= n; s++ {
		valid[s] = maxEnd <= s
		if tbl == nil || s >= len(tbl.Rows) {
			continue
		}
		for _, c := range tbl.Rows[s].Cells {
			if c.RowSpan > 1 {
				end := s + c.RowSpan
				if end > n {
					end = n
				}
				if end > maxEnd {
					maxEnd = end
				}
			}
		}
	}
	return valid
}

// fitRows returns the largest valid split point end > start whose rows fit
// in avail. end == start means not even the first merge group fits.
func fitRows(heights []float64, boundary []bool, start int, avail float64) (end int, overflow bool) {
	n := len(heights)
	end = start
	var h float64
	for end < n && h+heights[end] <= avail+eps {
		h += heights[end]
		end++
	}
	for end > start && !boundary[end] {
		end--
	}
	return end, false
}

func tableRowCount(tbl *flow.Table, tm *flow.TableMeasure) int {
	if tbl != nil {
		return len(tbl.Rows)
	}
	if tm != nil {
		return len(tm.RowHeights)
	}
	return 0
}

func tableWidth(tm *flow.TableMeasure, columnWidth float64) float64 {
	if tm == nil {
		return columnWidth
	}
	if w := tm.Width(); w > 0 && w < columnWidth {
		return w
	}
	return columnWidth
}
