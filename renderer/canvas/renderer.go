// Package canvasrenderer draws paginated layouts to PDF via
// github.com/tdewolff/canvas. The layout model is pt with a top-left
// origin; canvas draws in mm, so every coordinate converts at the draw
// call.
package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/folio/flow"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/refs"
	"github.com/ByLCY/folio/renderer"
)

const (
	tableBorderWidth = 0.5 // pt
	cellPadding      = 3.0 // pt
)

// Resource supplies a font either by raw bytes or by file path.
type Resource struct {
	Bytes []byte
	Path  string
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource
}

// Renderer implements renderer.Renderer on top of canvas's PDF backend.
type Renderer struct {
	baseDir   string
	fontBlobs map[string][]byte

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer {
	return NewRendererWithOptions(Options{BaseDir: baseDir})
}

// NewRendererWithOptions creates a renderer with injected font resources.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			path := res.Path
			if !filepath.IsAbs(path) && r.baseDir != "" {
				path = filepath.Join(r.baseDir, path)
			}
			data, _ := os.ReadFile(path) // errors surface when the font is used
			if len(data) > 0 {
				r.fontBlobs[name] = data
			}
		}
	}
	return r
}

// refContext carries what token interpolation needs while drawing one page.
type refContext struct {
	ownPage    int
	totalPages int
	anchors    layout.AnchorMap
}

func (rc refContext) resolve(text string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return refs.Interpolate(text, rc.ownPage, rc.totalPages, rc.anchors)
}

// Render renders the document into a PDF byte slice.
func (r *Renderer) Render(doc *renderer.Document) ([]byte, error) {
	if doc == nil || doc.Layout == nil {
		return nil, fmt.Errorf("canvasrenderer: nothing to render")
	}
	pages := doc.Layout.Pages
	if len(pages) == 0 {
		return nil, fmt.Errorf("canvasrenderer: layout has no pages")
	}

	anchors := layout.BuildAnchorMap(doc.Layout)
	total := doc.Layout.PageCount()

	var buf bytes.Buffer
	writer := pdf.New(&buf, toMm(pages[0].Size.Width), toMm(pages[0].Size.Height), nil)
	r.applyMeta(writer, doc.Meta)
	for i, page := range pages {
		if i > 0 {
			writer.NewPage(toMm(page.Size.Width), toMm(page.Size.Height))
		}
		c := canvas.New(toMm(page.Size.Width), toMm(page.Size.Height))
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV)

		rc := refContext{ownPage: page.Number, totalPages: total, anchors: anchors}
		if err := r.drawPage(ctx, doc, page, rc); err != nil {
			return nil, err
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("canvasrenderer: writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta renderer.Meta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

func (r *Renderer) drawPage(ctx *canvas.Context, doc *renderer.Document, page layout.Page, rc refContext) error {
	// Header band first so body content paints over any band overflow.
	if doc.Header != nil {
		if err := r.drawBand(ctx, doc.Header, page, page.Margins.Header, rc); err != nil {
			return err
		}
	}

	for _, col := range page.Columns {
		for _, frag := range col.Fragments {
			blk, m, ok := fragmentContent(doc.Blocks, doc.Measures, frag)
			if !ok {
				continue
			}
			if err := r.drawFragment(ctx, blk, m, frag, 0, 0, rc); err != nil {
				return err
			}
		}
	}

	if doc.Footer != nil {
		top := page.Size.Height - page.Margins.Footer - doc.Footer.Layout.Height
		if err := r.drawBand(ctx, doc.Footer, page, top, rc); err != nil {
			return err
		}
	}
	return nil
}

// drawBand draws a header/footer band. Band fragments are band-relative;
// decorative images marked page-relative are anchored to the page box.
func (r *Renderer) drawBand(ctx *canvas.Context, band *renderer.Band, page layout.Page, top float64, rc refContext) error {
	if band == nil || band.Layout == nil {
		return nil
	}
	left := page.Margins.Left
	for _, d := range band.Layout.Decorative {
		x, y := left+d.X, top+d.Y
		if d.PageRelative {
			x, y = d.X, d.Y
		}
		if err := r.drawImageFile(ctx, d.Source, x, y, d.Width); err != nil {
			return err
		}
	}
	for _, frag := range band.Layout.Fragments {
		blk, m, ok := fragmentContent(band.Blocks, band.Measures, frag)
		if !ok {
			continue
		}
		if err := r.drawFragment(ctx, blk, m, frag, left, top, rc); err != nil {
			return err
		}
	}
	return nil
}

// fragmentContent resolves a fragment back to its block and measure.
// Anchored fragments carry index -1 and resolve by id.
func fragmentContent(blocks []flow.Block, measures []flow.Measure, frag layout.Fragment) (*flow.Block, flow.Measure, bool) {
	i := frag.BlockIndex
	if i < 0 || i >= len(blocks) || blocks[i].ID != frag.BlockID {
		i = -1
		for j := range blocks {
			if blocks[j].ID == frag.BlockID {
				i = j
				break
			}
		}
	}
	if i < 0 || i >= len(measures) {
		return nil, flow.Measure{}, false
	}
	return &blocks[i], measures[i], true
}

func (r *Renderer) drawFragment(ctx *canvas.Context, blk *flow.Block, m flow.Measure, frag layout.Fragment, dx, dy float64, rc refContext) error {
	switch blk.Kind {
	case flow.KindParagraph:
		return r.drawParagraphFragment(ctx, blk, m.Paragraph, frag, dx, dy, rc)
	case flow.KindTable:
		return r.drawTableFragment(ctx, blk, m.Table, frag, dx, dy, rc)
	case flow.KindImage:
		if blk.Image == nil {
			return nil
		}
		x, y := frag.X+dx, frag.Y+dy
		if blk.Image.Offset != nil {
			x += blk.Image.Offset.X
			y += blk.Image.Offset.Y
		}
		return r.drawImageFile(ctx, blk.Image.Source, x, y, frag.Width)
	default:
		return nil
	}
}

func (r *Renderer) drawParagraphFragment(ctx *canvas.Context, blk *flow.Block, pm *flow.ParagraphMeasure, frag layout.Fragment, dx, dy float64, rc refContext) error {
	p := blk.Paragraph
	if p == nil || pm == nil || len(pm.Lines) == 0 {
		return nil
	}
	face, err := r.fontFace(p.Style)
	if err != nil {
		return err
	}
	spans := p.Spans()
	tabs := layout.CalculateTabLayout(p, layout.TabLayoutRequest{
		ParagraphWidth:     frag.Width,
		Indents:            p.Indents,
		TabStops:           p.TabStops,
		DefaultTabDistance: p.TabDistance(),
	})

	start, end := frag.Range.Start, frag.Range.End
	if start < 0 || end > len(pm.Lines) {
		return fmt.Errorf("canvasrenderer: fragment of %s addresses lines [%d,%d) of %d", blk.ID, start, end, len(pm.Lines))
	}

	y := frag.Y + dy
	for li := start; li < end; li++ {
		line := pm.Lines[li]
		x := frag.X + dx + p.Indents.Left
		if li == 0 {
			x += p.Indents.FirstLine
		}
		baseline := y + line.Baseline
		for si := line.StartSpan; si < line.EndSpan && si < len(spans); si++ {
			span := spans[si]
			switch span.Kind {
			case flow.SpanText:
				text := rc.resolve(span.Text)
				if text != "" {
					ctx.DrawText(toMm(x), toMm(baseline), canvas.NewTextLine(face, text, canvas.Left))
				}
				x += span.Width
			case flow.SpanTab:
				leader := flow.LeaderNone
				if tp, ok := tabs.Tabs[span.ID]; ok {
					leader = tp.Leader
				}
				r.drawLeader(ctx, face, leader, x, baseline, span.Width)
				x += span.Width
			}
		}
		y += line.Height
	}
	return nil
}

// drawLeader fills the horizontal gap a tab skips with its leader
// character, if any. Leaders affect rendering only, never layout widths.
func (r *Renderer) drawLeader(ctx *canvas.Context, face *canvas.FontFace, leader flow.Leader, x, baseline, width float64) {
	fill := leaderChar(leader)
	if fill == "" || width <= 0 {
		return
	}
	charW := face.TextWidth(fill) * flow.MmToPt
	if charW <= 0 {
		return
	}
	n := int(width / charW)
	if n <= 0 {
		return
	}
	run := strings.Repeat(fill, n)
	ctx.DrawText(toMm(x), toMm(baseline), canvas.NewTextLine(face, run, canvas.Left))
}

func leaderChar(leader flow.Leader) string {
	switch leader {
	case flow.LeaderDot:
		return "."
	case flow.LeaderHeavy, flow.LeaderUnderscore:
		return "_"
	case flow.LeaderHyphen:
		return "-"
	case flow.LeaderMiddleDot:
		return "·"
	default:
		return ""
	}
}

func (r *Renderer) drawTableFragment(ctx *canvas.Context, blk *flow.Block, tm *flow.TableMeasure, frag layout.Fragment, dx, dy float64, rc refContext) error {
	tbl := blk.Table
	tf := frag.Table
	if tbl == nil || tm == nil || tf == nil {
		return nil
	}
	cols := tm.ColumnWidths
	if len(cols) == 0 {
		return nil
	}

	if tf.RepeatsHeader {
		y := frag.Y + dy
		for ri := 0; ri < tbl.HeaderRows && ri < len(tbl.Rows); ri++ {
			if err := r.drawTableRow(ctx, tbl, tm, ri, frag.X+dx, y, cols, true, rc); err != nil {
				return err
			}
			y += tm.RowHeight(ri)
		}
	}

	for idx, ri := 0, frag.Range.Start; ri < frag.Range.End && ri < len(tbl.Rows); idx, ri = idx+1, ri+1 {
		var rowY float64
		if idx < len(tf.RowY) {
			rowY = tf.RowY[idx]
		}
		header := ri < tbl.HeaderRows
		if err := r.drawTableRow(ctx, tbl, tm, ri, frag.X+dx, frag.Y+dy+rowY, cols, header, rc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawTableRow(ctx *canvas.Context, tbl *flow.Table, tm *flow.TableMeasure, ri int, x, y float64, cols []float64, header bool, rc refContext) error {
	rowH := tm.RowHeight(ri)
	cx := x
	ci := 0
	for _, cell := range tbl.Rows[ri].Cells {
		span := cell.ColSpan
		if span < 1 {
			span = 1
		}
		w := 0.0
		for k := ci; k < ci+span && k < len(cols); k++ {
			w += cols[k]
		}
		h := rowH
		if cell.RowSpan > 1 {
			for k := ri + 1; k < ri+cell.RowSpan && k < len(tm.RowHeights); k++ {
				h += tm.RowHeight(k)
			}
		}

		fill := canvas.White
		if header {
			fill = canvas.Hex("#f8f8f8")
		}
		ctx.SetFillColor(fill)
		ctx.SetStrokeColor(canvas.Black)
		ctx.SetStrokeWidth(toMm(tableBorderWidth))
		ctx.DrawPath(toMm(cx), toMm(y), canvas.Rectangle(toMm(w), toMm(h)))

		if cell.Paragraph != nil {
			face, err := r.fontFace(cell.Paragraph.Style)
			if err != nil {
				return err
			}
			text := rc.resolve(paragraphText(cell.Paragraph))
			if text != "" {
				box := canvas.NewTextBox(face, text,
					toMm(w-2*cellPadding), toMm(h-2*cellPadding),
					canvas.Left, canvas.Top, nil)
				ctx.DrawText(toMm(cx+cellPadding), toMm(y+cellPadding), box)
			}
		}
		cx += w
		ci += span
	}
	return nil
}

// paragraphText flattens a paragraph's spans to plain text for cell drawing.
func paragraphText(p *flow.Paragraph) string {
	var b strings.Builder
	for _, s := range p.Spans() {
		switch s.Kind {
		case flow.SpanText:
			b.WriteString(s.Text)
		case flow.SpanTab:
			b.WriteByte(' ')
		case flow.SpanLineBreak, flow.SpanHardBreak:
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r *Renderer) drawImageFile(ctx *canvas.Context, source string, x, y, width float64) error {
	if source == "" {
		return nil
	}
	path := source
	if !filepath.IsAbs(path) {
		if r.baseDir == "" {
			return fmt.Errorf("canvasrenderer: relative image path %s needs a base directory", source)
		}
		path = filepath.Join(r.baseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("canvasrenderer: opening image %s: %w", source, err)
	}
	imgData, _, err := image.Decode(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("canvasrenderer: decoding image %s: %w", source, err)
	}

	w := width
	if w <= 0 {
		w = float64(imgData.Bounds().Dx()) * 72.0 / 96.0
	}
	dpmm := float64(imgData.Bounds().Dx()) / toMm(w)
	if dpmm <= 0 {
		dpmm = 1
	}
	ctx.DrawImage(toMm(x), toMm(y), imgData, canvas.DPMM(dpmm))
	return nil
}

func (r *Renderer) fontFace(style flow.TextStyle) (*canvas.FontFace, error) {
	size := style.Size
	if size <= 0 {
		size = 12
	}
	family, err := r.ensureFontFamily(style.Font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, canvas.Black, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string) (*canvas.FontFamily, error) {
	key := name
	if key == "" {
		key = "body"
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}
	data, ok := r.fontBlobs[name]
	if !ok && name == "" {
		for _, blob := range r.fontBlobs {
			data, ok = blob, true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("canvasrenderer: no font registered for %q", name)
	}
	family := canvas.NewFontFamily(key)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("canvasrenderer: loading font %s: %w", key, err)
	}
	r.fontFamilies[key] = family
	return family, nil
}

// toMm converts layout pt to canvas mm.
func toMm(pt float64) float64 { return pt * flow.PtToMm }
