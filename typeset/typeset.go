// Package typeset produces block measures for the layout engine using
// github.com/tdewolff/canvas font shaping. It owns everything that needs a
// font face: text span widths, greedy line wrapping, table row heights and
// image extents. All values are in pt.
package typeset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/folio/flow"
	"github.com/ByLCY/folio/layout"
)

const (
	defaultFontSize    = 12.0
	defaultImageExtent = 96.0
	cellPadding        = 3.0
	eps                = 1e-6
)

// Resource supplies a font either by raw bytes or by file path.
type Resource struct {
	Bytes []byte
	Path  string
}

// Options configures a Measurer.
type Options struct {
	// BaseDir anchors relative font and image paths.
	BaseDir string
	// Fonts maps font names used in text styles to their sources.
	Fonts map[string]Resource
}

// Measurer computes flow.Measure values. Font families are loaded lazily
// and cached; a Measurer is safe for concurrent use.
type Measurer struct {
	baseDir string
	fonts   map[string]Resource

	mu       sync.Mutex
	families map[string]*canvas.FontFamily
}

// NewMeasurer creates a Measurer.
func NewMeasurer(opts Options) *Measurer {
	fonts := map[string]Resource{}
	for name, res := range opts.Fonts {
		if name != "" {
			fonts[name] = res
		}
	}
	return &Measurer{
		baseDir:  opts.BaseDir,
		fonts:    fonts,
		families: map[string]*canvas.FontFamily{},
	}
}

// Block measures one block against the given content width.
func (m *Measurer) Block(b *flow.Block, width float64) (flow.Measure, error) {
	switch b.Kind {
	case flow.KindParagraph:
		pm, err := m.Paragraph(b.Paragraph, width)
		if err != nil {
			return flow.Measure{}, err
		}
		return flow.Measure{Kind: flow.KindParagraph, Paragraph: pm}, nil
	case flow.KindTable:
		tm, err := m.Table(b.Table, width)
		if err != nil {
			return flow.Measure{}, err
		}
		return flow.Measure{Kind: flow.KindTable, Table: tm}, nil
	case flow.KindImage:
		im, err := m.Image(b.Image)
		if err != nil {
			return flow.Measure{}, err
		}
		return flow.Measure{Kind: flow.KindImage, Image: im}, nil
	default:
		return flow.Measure{Kind: flow.KindPageBreak}, nil
	}
}

// MeasureAll measures a block sequence at one width, for a full layout pass.
func (m *Measurer) MeasureAll(blocks []flow.Block, width float64) ([]flow.Measure, error) {
	out := make([]flow.Measure, len(blocks))
	for i := range blocks {
		mm, err := m.Block(&blocks[i], width)
		if err != nil {
			return nil, fmt.Errorf("typeset: block %s: %w", blocks[i].ID, err)
		}
		out[i] = mm
	}
	return out, nil
}

// BlockMeasurer adapts the Measurer to the incremental session's callback.
func (m *Measurer) BlockMeasurer(width float64) layout.MeasureFunc {
	return func(_ int, b *flow.Block) (flow.Measure, error) {
		return m.Block(b, width)
	}
}

// Remeasure adapts the Measurer to layout.RemeasureFunc. The first-line
// indent is already part of the paragraph's own indents.
func (m *Measurer) Remeasure(b *flow.Block, maxWidth, _ float64) (*flow.ParagraphMeasure, error) {
	return m.Paragraph(b.Paragraph, maxWidth)
}

// Paragraph shapes and wraps a paragraph at maxWidth. It splits oversized
// text spans at whitespace runs (shaping mutates the paragraph's node tree),
// fills in span widths, resolves tab widths, and wraps greedily at span
// boundaries. Explicit line/hard breaks always end a line; a paragraph with
// content never measures to zero lines.
func (m *Measurer) Paragraph(p *flow.Paragraph, maxWidth float64) (*flow.ParagraphMeasure, error) {
	if p == nil {
		return &flow.ParagraphMeasure{Width: maxWidth}, nil
	}
	face, err := m.face(p.Style)
	if err != nil {
		return nil, err
	}
	lineH := effectiveLineHeight(p.Style, face)
	ascent := face.Metrics().Ascent * flow.MmToPt

	limit := maxWidth - p.Indents.Left - p.Indents.Right
	if limit < 0 {
		limit = 0
	}
	firstLimit := limit - p.Indents.FirstLine
	if firstLimit < 0 {
		firstLimit = 0
	}

	shapeParagraph(p, face, limit)
	spans := p.Spans()
	for _, s := range spans {
		if s.Kind == flow.SpanText {
			s.Width = textWidthPt(face, s.Text)
		}
	}

	tabs := layout.CalculateTabLayout(p, layout.TabLayoutRequest{
		ParagraphWidth:     maxWidth,
		Indents:            p.Indents,
		TabStops:           p.TabStops,
		DefaultTabDistance: p.TabDistance(),
		LineHeight:         lineH,
	})
	for _, s := range spans {
		if s.Kind == flow.SpanTab {
			if tp, ok := tabs.Tabs[s.ID]; ok {
				s.Width = tp.Width
			}
		}
	}

	var lines []flow.LineBox
	start, w, cur := 0, 0.0, firstLimit
	flush := func(end int) {
		lines = append(lines, flow.LineBox{
			StartSpan: start,
			EndSpan:   end,
			Width:     w,
			Height:    lineH,
			Baseline:  ascent,
		})
		start, w, cur = end, 0, limit
	}
	for i, s := range spans {
		switch s.Kind {
		case flow.SpanLineBreak, flow.SpanHardBreak:
			// The break span closes the line it ends.
			flush(i + 1)
		default:
			if w > 0 && w+s.Width > cur+eps {
				flush(i)
			}
			w += s.Width
		}
	}
	if start < len(spans) || (len(lines) == 0 && len(spans) > 0) {
		flush(len(spans))
	}
	return &flow.ParagraphMeasure{Lines: lines, Width: maxWidth}, nil
}

// Table measures a table at totalWidth: the column grid (authored widths,
// scaled down when they exceed the available width, or an even split), then
// per-row heights from the tallest cell. A vertical merge taller than its
// covered rows grows the last covered row.
func (m *Measurer) Table(t *flow.Table, totalWidth float64) (*flow.TableMeasure, error) {
	if t == nil || len(t.Rows) == 0 {
		return &flow.TableMeasure{}, nil
	}
	cols := columnGrid(t, totalWidth)
	heights := make([]float64, len(t.Rows))

	type pending struct {
		firstRow, lastRow int
		height            float64
	}
	var merges []pending

	for ri, row := range t.Rows {
		ci := 0
		rowH := 0.0
		for _, cell := range row.Cells {
			span := cell.ColSpan
			if span < 1 {
				span = 1
			}
			cellW := gridSpanWidth(cols, ci, span) - 2*cellPadding
			if cellW < 0 {
				cellW = 0
			}
			pm, err := m.Paragraph(cell.Paragraph, cellW)
			if err != nil {
				return nil, err
			}
			h := pm.Height() + 2*cellPadding
			if cell.RowSpan > 1 {
				last := ri + cell.RowSpan - 1
				if last >= len(t.Rows) {
					last = len(t.Rows) - 1
				}
				merges = append(merges, pending{firstRow: ri, lastRow: last, height: h})
			} else if h > rowH {
				rowH = h
			}
			ci += span
		}
		if rowH <= 0 {
			rowH = 2 * cellPadding
		}
		heights[ri] = rowH
	}

	// Stretch the last covered row when a merge is taller than its rows.
	for _, mg := range merges {
		covered := 0.0
		for i := mg.firstRow; i <= mg.lastRow; i++ {
			covered += heights[i]
		}
		if covered < mg.height-eps {
			heights[mg.lastRow] += mg.height - covered
		}
	}

	return &flow.TableMeasure{RowHeights: heights, ColumnWidths: cols}, nil
}

// Image measures a replaced block. Authored width/height win; otherwise the
// intrinsic pixel size is decoded at 96dpi, preserving aspect when only one
// extent is authored.
func (m *Measurer) Image(img *flow.Image) (*flow.ImageMeasure, error) {
	if img == nil {
		return &flow.ImageMeasure{Width: defaultImageExtent, Height: defaultImageExtent}, nil
	}
	w, h := img.Width, img.Height
	if w > 0 && h > 0 {
		return &flow.ImageMeasure{Width: w, Height: h}, nil
	}

	iw, ih := m.intrinsicSize(img.Source)
	switch {
	case w > 0 && ih > 0 && iw > 0:
		h = w * ih / iw
	case h > 0 && ih > 0 && iw > 0:
		w = h * iw / ih
	case iw > 0 && ih > 0:
		w, h = iw, ih
	default:
		if w <= 0 {
			w = defaultImageExtent
		}
		if h <= 0 {
			h = defaultImageExtent
		}
	}
	return &flow.ImageMeasure{Width: w, Height: h}, nil
}

// intrinsicSize decodes an image header for its pixel size, in pt at 96dpi.
// Unreadable sources fall back to zero; layout still places the block.
func (m *Measurer) intrinsicSize(source string) (float64, float64) {
	if source == "" {
		return 0, 0
	}
	path := source
	if !filepath.IsAbs(path) && m.baseDir != "" {
		path = filepath.Join(m.baseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return float64(cfg.Width) * 72.0 / 96.0, float64(cfg.Height) * 72.0 / 96.0
}

// face returns a cached font face for the style.
func (m *Measurer) face(style flow.TextStyle) (*canvas.FontFace, error) {
	size := style.Size
	if size <= 0 {
		size = defaultFontSize
	}
	family, err := m.family(style.Font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, canvas.Black, canvas.FontRegular, canvas.FontNormal), nil
}

func (m *Measurer) family(name string) (*canvas.FontFamily, error) {
	key := name
	if key == "" {
		key = "body"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if fam, ok := m.families[key]; ok {
		return fam, nil
	}
	data, err := m.fontBytes(name)
	if err != nil {
		return nil, err
	}
	fam := canvas.NewFontFamily(key)
	if err := fam.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("typeset: loading font %s: %w", key, err)
	}
	m.families[key] = fam
	return fam, nil
}

func (m *Measurer) fontBytes(name string) ([]byte, error) {
	res, ok := m.fonts[name]
	if !ok && name == "" {
		// Unnamed style: any registered font serves as the body face.
		for _, r := range m.fonts {
			res, ok = r, true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("typeset: no font registered for %q", name)
	}
	if len(res.Bytes) > 0 {
		return res.Bytes, nil
	}
	if res.Path == "" {
		return nil, fmt.Errorf("typeset: font %q has no bytes or path", name)
	}
	path := res.Path
	if !filepath.IsAbs(path) && m.baseDir != "" {
		path = filepath.Join(m.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("typeset: reading font %q: %w", name, err)
	}
	return data, nil
}

func effectiveLineHeight(style flow.TextStyle, face *canvas.FontFace) float64 {
	if style.LineHeight > 0 {
		return style.LineHeight
	}
	if h := face.Metrics().LineHeight * flow.MmToPt; h > 0 {
		return h
	}
	size := style.Size
	if size <= 0 {
		size = defaultFontSize
	}
	return size * 1.2
}

// textWidthPt converts the face's mm advance to pt; faces are sized in pt
// but canvas reports widths and metrics in mm.
func textWidthPt(face *canvas.FontFace, s string) float64 {
	return face.TextWidth(s) * flow.MmToPt
}

func columnGrid(t *flow.Table, totalWidth float64) []float64 {
	n := 0
	for _, row := range t.Rows {
		c := 0
		for _, cell := range row.Cells {
			if cell.ColSpan > 1 {
				c += cell.ColSpan
			} else {
				c++
			}
		}
		if c > n {
			n = c
		}
	}
	if n == 0 {
		n = 1
	}

	if len(t.ColumnWidths) > 0 {
		cols := make([]float64, len(t.ColumnWidths))
		copy(cols, t.ColumnWidths)
		sum := 0.0
		for _, w := range cols {
			sum += w
		}
		if sum > totalWidth+eps && sum > 0 {
			scale := totalWidth / sum
			for i := range cols {
				cols[i] *= scale
			}
		}
		return cols
	}

	cols := make([]float64, n)
	each := totalWidth / float64(n)
	for i := range cols {
		cols[i] = each
	}
	return cols
}

func gridSpanWidth(cols []float64, start, span int) float64 {
	w := 0.0
	for i := start; i < start+span && i < len(cols); i++ {
		w += cols[i]
	}
	return w
}
