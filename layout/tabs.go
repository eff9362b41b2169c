package layout

import (
	"unicode/utf8"

	"github.com/ByLCY/folio/flow"
)

// Tab stop resolution. Tab widths are a per-line affair: every explicit
// line break resets the running x to the line-start offset, so repeated
// tab layouts inside one paragraph never accumulate across lines.

// TabLayoutRequest fixes the horizontal frame tabs are resolved in.
type TabLayoutRequest struct {
	ParagraphWidth     float64
	Indents            flow.Indents
	TabStops           []flow.TabStop
	DefaultTabDistance float64
	// LineHeight is carried onto placements for decoration sizing.
	LineHeight float64
}

// TabPlacement is the resolved geometry for a single tab span.
type TabPlacement struct {
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Leader flow.Leader `json:"leader"`
}

// TabLayoutResult maps tab span ids to their placements.
type TabLayoutResult struct {
	Tabs map[string]TabPlacement `json:"tabs"`
}

// Decoration is a positioned tab-fill instruction for the editing view,
// addressed in document offsets.
type Decoration struct {
	From   int         `json:"from"`
	To     int         `json:"to"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Leader flow.Leader `json:"leader"`
}

// CalculateTabLayout walks the paragraph's span sequence in order and
// resolves every tab span's width. A text span advances the running x by
// its measured width; a line/hard break resets it to the line-start offset.
func CalculateTabLayout(p *flow.Paragraph, req TabLayoutRequest) TabLayoutResult {
	result := TabLayoutResult{Tabs: map[string]TabPlacement{}}
	if p == nil {
		return result
	}

	dist := req.DefaultTabDistance
	if dist <= 0 {
		dist = p.TabDistance()
	}
	firstLineX := req.Indents.Left + req.Indents.FirstLine
	lineX := req.Indents.Left
	maxX := req.ParagraphWidth - req.Indents.Right

	currentX := firstLineX
	for _, span := range p.Spans() {
		switch span.Kind {
		case flow.SpanText:
			currentX += span.Width
		case flow.SpanLineBreak, flow.SpanHardBreak:
			currentX = lineX
		case flow.SpanTab:
			target, leader := tabTarget(req.TabStops, currentX, dist, maxX)
			width := target - currentX
			if width < 0 {
				width = 0
			}
			result.Tabs[span.ID] = TabPlacement{
				Width:  width,
				Height: req.LineHeight,
				Leader: leader,
			}
			currentX += width
		}
	}
	return result
}

// tabTarget picks the first configured stop strictly past x, falling back
// to the next default-distance multiple, clamped to the usable width.
func tabTarget(stops []flow.TabStop, x, dist, maxX float64) (float64, flow.Leader) {
	for _, stop := range stops {
		if stop.Position > x {
			leader := stop.Leader
			if leader == "" {
				leader = flow.LeaderNone
			}
			return clampTab(stop.Position, maxX), leader
		}
	}
	var target float64
	if dist > 0 {
		steps := int(x/dist) + 1
		target = float64(steps) * dist
	} else {
		target = x
	}
	return clampTab(target, maxX), flow.LeaderNone
}

func clampTab(target, maxX float64) float64 {
	if maxX > 0 && target > maxX {
		return maxX
	}
	return target
}

// ApplyTabLayout walks the paragraph's node tree, recursing into nested run
// containers, and emits one decoration per tab span present in the result
// map. Tabs without layout data — stale results after an edit — are
// skipped, never an error.
func ApplyTabLayout(result TabLayoutResult, nodes []*flow.Node, baseOffset int) []Decoration {
	var out []Decoration
	offset := baseOffset
	var walk func(nodes []*flow.Node)
	walk = func(nodes []*flow.Node) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if n.Span == nil {
				walk(n.Children)
				continue
			}
			span := n.Span
			if span.Kind == flow.SpanTab {
				if placed, ok := result.Tabs[span.ID]; ok {
					out = append(out, Decoration{
						From:   offset,
						To:     offset + 1,
						Width:  placed.Width,
						Height: placed.Height,
						Leader: placed.Leader,
					})
				}
			}
			offset += spanLen(span)
		}
	}
	walk(nodes)
	return out
}

// spanLen is the span's extent in document offsets: rune count for text,
// one position for tabs and breaks.
func spanLen(s *flow.Span) int {
	if s.Kind == flow.SpanText {
		return utf8.RuneCountInString(s.Text)
	}
	return 1
}
