package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/folio/flow"
)

// Compilation of the parsed AST into the flow document model. The compiler
// assigns stable ids ("b3", "b3.s2", "b3.r1") so layouts, decorations and
// diffs can refer back to blocks, spans and runs.

// BandSpec describes one header or footer band.
type BandSpec struct {
	Blocks       []flow.Block
	Height       float64
	OverflowBase float64
}

// DocumentSpec is the compiled document: page geometry plus blocks in
// document order. Measures are produced separately by a measurement
// provider.
type DocumentSpec struct {
	Name  string
	Meta  map[string]string
	Fonts map[string]string // font name -> source path

	PageSize flow.PageSize
	Margins  flow.Margins
	Columns  flow.ColumnLayout

	Blocks []flow.Block
	Header *BandSpec
	Footer *BandSpec
}

// Compile turns a parsed document into a DocumentSpec.
func Compile(doc *Document) (*DocumentSpec, error) {
	if doc == nil {
		return nil, fmt.Errorf("dsl: document is nil")
	}
	spec := &DocumentSpec{
		Name:    doc.Name,
		Meta:    map[string]string{},
		Fonts:   map[string]string{},
		Margins: flow.Margins{Top: 56.7, Right: 56.7, Bottom: 56.7, Left: 56.7},
		Columns: flow.ColumnLayout{Count: 1},
	}

	var page *PageSection
	for _, section := range doc.Sections {
		switch {
		case section.Meta != nil:
			collectMeta(section.Meta.Block, spec.Meta)
		case section.Resources != nil:
			collectFonts(section.Resources.Block, spec.Fonts)
		case section.Page != nil:
			if page == nil {
				page = section.Page
			}
		}
	}
	if page == nil {
		return nil, fmt.Errorf("dsl: document %s has no page section", doc.Name)
	}
	if err := spec.applyPageSpec(page.Spec); err != nil {
		return nil, err
	}

	c := &compiler{}
	if page.Block == nil {
		return nil, fmt.Errorf("dsl: page section has no content")
	}
	for _, stmt := range page.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		switch cmd.Name {
		case "header", "footer":
			band, err := c.compileBand(cmd)
			if err != nil {
				return nil, err
			}
			if cmd.Name == "header" {
				spec.Header = band
			} else {
				spec.Footer = band
			}
		default:
			blk, err := c.compileBlock(cmd)
			if err != nil {
				return nil, err
			}
			spec.Blocks = append(spec.Blocks, blk)
		}
	}
	return spec, nil
}

func (s *DocumentSpec) applyPageSpec(ps PageSpec) error {
	landscape := false
	params := ps.Params
	for i := 0; i < len(params); i++ {
		switch params[i].Value {
		case "landscape":
			landscape = true
		case "portrait":
		case "margin":
			vals := []float64{}
			for j := i + 1; j < len(params) && len(vals) < 4; j++ {
				l := flow.ParseLength(params[j].Value)
				if l.Unit == flow.UnitNone && l.Value == 0 {
					break
				}
				vals = append(vals, l.Pt())
			}
			switch len(vals) {
			case 1:
				v := vals[0]
				s.Margins = flow.Margins{Top: v, Right: v, Bottom: v, Left: v}
			case 2:
				s.Margins = flow.Margins{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
			case 3:
				s.Margins = flow.Margins{Top: vals[0], Right: vals[1], Bottom: vals[2]}
			case 4:
				s.Margins = flow.Margins{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
			}
			i += len(vals)
		case "columns":
			if i+1 < len(params) {
				if n, err := strconv.Atoi(params[i+1].Value); err == nil && n > 0 {
					s.Columns.Count = n
					i++
				}
			}
		case "gutter":
			if i+1 < len(params) {
				s.Columns.Gutter = flow.ParsePt(params[i+1].Value)
				i++
			}
		}
	}
	size, err := flow.PresetPageSize(ps.Size, landscape)
	if err != nil {
		return err
	}
	s.PageSize = size
	return nil
}

type compiler struct {
	blockSeq int
}

func (c *compiler) nextID() string {
	c.blockSeq++
	return fmt.Sprintf("b%d", c.blockSeq)
}

func (c *compiler) compileBand(cmd *Command) (*BandSpec, error) {
	_, attrs := parseAttrs(cmd.Args)
	band := &BandSpec{
		Height:       flow.ParsePt(attrs["height"]),
		OverflowBase: flow.ParsePt(attrs["overflow-base"]),
	}
	if cmd.Block == nil {
		return band, nil
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		blk, err := c.compileBlock(stmt.Command)
		if err != nil {
			return nil, err
		}
		band.Blocks = append(band.Blocks, blk)
	}
	return band, nil
}

func (c *compiler) compileBlock(cmd *Command) (flow.Block, error) {
	id := c.nextID()
	flags, attrs := parseAttrs(cmd.Args)

	blk := flow.Block{
		ID:           id,
		KeepWithNext: flags["keep-with-next"],
		KeepTogether: flags["keep-together"],
	}
	if name := attrs["anchor"]; name != "" {
		blk.AnchorNames = append(blk.AnchorNames, name)
	}

	switch cmd.Name {
	case "p":
		blk.Kind = flow.KindParagraph
		para, err := c.compileParagraph(cmd.Block, id, attrs)
		if err != nil {
			return blk, err
		}
		blk.Paragraph = para
	case "table":
		blk.Kind = flow.KindTable
		tbl, err := c.compileTable(cmd.Block, id, flags, attrs)
		if err != nil {
			return blk, err
		}
		blk.Table = tbl
	case "image":
		blk.Kind = flow.KindImage
		img := &flow.Image{
			Source: attrs["src"],
			Width:  flow.ParsePt(attrs["width"]),
			Height: flow.ParsePt(attrs["height"]),
			Behind: flags["behind"],
		}
		if attrs["x"] != "" || attrs["y"] != "" {
			img.Offset = &flow.Position{
				X: flow.ParsePt(attrs["x"]),
				Y: flow.ParsePt(attrs["y"]),
			}
		}
		if img.Source == "" {
			return blk, fmt.Errorf("dsl: image %s needs a src", id)
		}
		blk.Image = img
	case "pagebreak":
		blk.Kind = flow.KindPageBreak
	default:
		return blk, fmt.Errorf("dsl: unknown block command %q at %s", cmd.Name, cmd.Pos)
	}
	return blk, nil
}

func (c *compiler) compileParagraph(block *Block, id string, attrs map[string]string) (*flow.Paragraph, error) {
	para := &flow.Paragraph{
		Indents: flow.Indents{
			Left:      flow.ParsePt(attrs["indent-left"]),
			Right:     flow.ParsePt(attrs["indent-right"]),
			FirstLine: flow.ParsePt(attrs["indent-first"]),
		},
		DefaultTabDistance: flow.ParsePt(attrs["tab-distance"]),
		Style: flow.TextStyle{
			Font:       attrs["font"],
			Size:       flow.ParsePt(attrs["size"]),
			LineHeight: flow.ParsePt(attrs["line-height"]),
		},
	}
	if v := attrs["tabstops"]; v != "" {
		stops, err := parseTabStops(v)
		if err != nil {
			return nil, fmt.Errorf("dsl: paragraph %s: %w", id, err)
		}
		para.TabStops = stops
	}

	seq := &spanSeq{prefix: id}
	nodes, runs, err := seq.compileContent(block)
	if err != nil {
		return nil, err
	}
	para.Nodes = nodes
	para.Runs = runs
	return para, nil
}

// spanSeq numbers spans and runs within one paragraph.
type spanSeq struct {
	prefix  string
	spanSeq int
	runSeq  int
}

func (s *spanSeq) nextSpan() string {
	s.spanSeq++
	return fmt.Sprintf("%s.s%d", s.prefix, s.spanSeq)
}

func (s *spanSeq) nextRun() string {
	s.runSeq++
	return fmt.Sprintf("%s.r%d", s.prefix, s.runSeq)
}

func (s *spanSeq) compileContent(block *Block) ([]*flow.Node, []flow.Run, error) {
	var nodes []*flow.Node
	var runs []flow.Run
	if block == nil {
		return nodes, runs, nil
	}
	for _, stmt := range block.Statements {
		switch {
		case stmt.Text != nil:
			text := string(stmt.Text.Value)
			nodes = append(nodes, &flow.Node{Span: &flow.Span{
				ID:   s.nextSpan(),
				Kind: flow.SpanText,
				Text: text,
			}})
			runs = append(runs, flow.Run{ID: s.nextRun(), Text: text})
		case stmt.Command != nil:
			cmd := stmt.Command
			switch cmd.Name {
			case "tab":
				nodes = append(nodes, &flow.Node{Span: &flow.Span{
					ID:   s.nextSpan(),
					Kind: flow.SpanTab,
				}})
				runs = append(runs, flow.Run{ID: s.nextRun(), Text: "\t"})
			case "br":
				nodes = append(nodes, &flow.Node{Span: &flow.Span{
					ID:   s.nextSpan(),
					Kind: flow.SpanLineBreak,
				}})
				runs = append(runs, flow.Run{ID: s.nextRun(), Text: "\n"})
			case "hbr":
				nodes = append(nodes, &flow.Node{Span: &flow.Span{
					ID:   s.nextSpan(),
					Kind: flow.SpanHardBreak,
				}})
				runs = append(runs, flow.Run{ID: s.nextRun(), Text: "\n"})
			case "run":
				// A styled/annotated run container: its text nests under
				// one node, and its runs carry style and comment keys.
				_, attrs := parseAttrs(cmd.Args)
				children, childRuns, err := s.compileContent(cmd.Block)
				if err != nil {
					return nil, nil, err
				}
				comments := parseComments(attrs["comments"])
				for i := range childRuns {
					childRuns[i].StyleKey = attrs["style"]
					childRuns[i].Comments = comments
				}
				nodes = append(nodes, &flow.Node{Children: children})
				runs = append(runs, childRuns...)
			default:
				return nil, nil, fmt.Errorf("dsl: unknown span command %q at %s", cmd.Name, cmd.Pos)
			}
		}
	}
	return nodes, runs, nil
}

func (c *compiler) compileTable(block *Block, id string, flags map[string]bool, attrs map[string]string) (*flow.Table, error) {
	tbl := &flow.Table{RepeatHeader: flags["repeat-header"]}
	if v := attrs["widths"]; v != "" {
		for _, field := range strings.Fields(v) {
			tbl.ColumnWidths = append(tbl.ColumnWidths, flow.ParsePt(field))
		}
	}
	if block == nil {
		return tbl, nil
	}
	cellSeq := 0
	for _, stmt := range block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		if cmd.Name != "row" && cmd.Name != "header" {
			continue
		}
		row := flow.TableRow{}
		if cmd.Block != nil {
			for _, cs := range cmd.Block.Statements {
				if cs.Command == nil || cs.Command.Name != "cell" {
					continue
				}
				cellSeq++
				_, cattrs := parseAttrs(cs.Command.Args)
				cell := flow.TableCell{
					RowSpan: parseCount(cattrs["rowspan"]),
					ColSpan: parseCount(cattrs["colspan"]),
				}
				para, err := c.compileParagraph(cs.Command.Block,
					fmt.Sprintf("%s.c%d", id, cellSeq), cattrs)
				if err != nil {
					return nil, err
				}
				cell.Paragraph = para
				row.Cells = append(row.Cells, cell)
			}
		}
		if cmd.Name == "header" {
			if len(tbl.Rows) != tbl.HeaderRows {
				return nil, fmt.Errorf("dsl: table %s header rows must come first", id)
			}
			tbl.HeaderRows++
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl, nil
}

// parseAttrs splits command arguments into bare flags and key/value pairs.
// An argument followed by another argument on the same line is taken as a
// key; a trailing or flag-like argument stands alone.
func parseAttrs(args []*Lexeme) (map[string]bool, map[string]string) {
	flags := map[string]bool{}
	attrs := map[string]string{}
	i := 0
	for i < len(args) {
		name := args[i].Value
		if isFlag(name) || i+1 >= len(args) {
			flags[name] = true
			i++
			continue
		}
		attrs[name] = args[i+1].Value
		i += 2
	}
	return flags, attrs
}

func isFlag(name string) bool {
	switch name {
	case "keep-with-next", "keep-together", "repeat-header", "behind", "landscape", "portrait":
		return true
	default:
		return false
	}
}

// parseTabStops parses "100pt right dot, 3cm" style lists.
func parseTabStops(v string) ([]flow.TabStop, error) {
	var stops []flow.TabStop
	for _, part := range strings.Split(v, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		stop := flow.TabStop{
			Position:  flow.ParsePt(fields[0]),
			Alignment: flow.TabLeft,
			Leader:    flow.LeaderNone,
		}
		if stop.Position <= 0 {
			return nil, fmt.Errorf("invalid tab stop position %q", fields[0])
		}
		for _, f := range fields[1:] {
			switch f {
			case "left", "center", "right", "decimal":
				stop.Alignment = flow.TabAlignment(f)
			case "dot", "heavy", "hyphen", "middleDot", "underscore", "none":
				stop.Leader = flow.Leader(f)
			default:
				return nil, fmt.Errorf("unknown tab stop modifier %q", f)
			}
		}
		stops = append(stops, stop)
	}
	return stops, nil
}

// parseComments parses "c1:internal|c2" into comment annotations.
func parseComments(v string) []flow.Comment {
	if v == "" {
		return nil
	}
	var out []flow.Comment
	for _, part := range strings.Split(v, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c := flow.Comment{ID: part}
		if name, rest, ok := strings.Cut(part, ":"); ok {
			c.ID = name
			c.Internal = rest == "internal"
		}
		out = append(out, c)
	}
	return out
}

func parseCount(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func collectMeta(block *Block, meta map[string]string) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		if stmt.Assignment == nil || stmt.Assignment.Value == nil {
			continue
		}
		meta[strings.ToLower(stmt.Assignment.Key)] = valueToString(stmt.Assignment.Value)
	}
}

func collectFonts(block *Block, fonts map[string]string) {
	if block == nil {
		return
	}
	for _, stmt := range block.Statements {
		if stmt.Command == nil || stmt.Command.Name != "font" || len(stmt.Command.Args) == 0 {
			continue
		}
		name := stmt.Command.Args[0].Value
		if stmt.Command.Block == nil {
			continue
		}
		for _, as := range stmt.Command.Block.Statements {
			if as.Assignment != nil && as.Assignment.Key == "src" {
				fonts[name] = valueToString(as.Assignment.Value)
			}
		}
	}
}

func valueToString(v *Value) string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Ident != nil:
		return *v.Ident
	default:
		return ""
	}
}
