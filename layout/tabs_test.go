package layout

import (
	"math"
	"testing"

	"github.com/ByLCY/folio/flow"
)

func textSpan(id string, width float64) *flow.Node {
	return &flow.Node{Span: &flow.Span{ID: id, Kind: flow.SpanText, Text: "x", Width: width}}
}

func tabSpan(id string) *flow.Node {
	return &flow.Node{Span: &flow.Span{ID: id, Kind: flow.SpanTab}}
}

func breakSpan(id string) *flow.Node {
	return &flow.Node{Span: &flow.Span{ID: id, Kind: flow.SpanLineBreak}}
}

func tabWidth(t *testing.T, res TabLayoutResult, id string) float64 {
	t.Helper()
	tp, ok := res.Tabs[id]
	if !ok {
		t.Fatalf("no placement for tab %s", id)
	}
	return tp.Width
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTabResetsPerLine(t *testing.T) {
	// Two lines, each: 50pt of text then a tab to the 100pt stop. The line
	// break resets the running x, so both tabs resolve to 50pt — not a
	// cumulative walk across the paragraph.
	p := &flow.Paragraph{
		Nodes: []*flow.Node{
			textSpan("s1", 50), tabSpan("t1"), breakSpan("b1"),
			textSpan("s2", 50), tabSpan("t2"),
		},
		TabStops: []flow.TabStop{{Position: 100}},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{ParagraphWidth: 400})

	if w := tabWidth(t, res, "t1"); !almost(w, 50) {
		t.Errorf("first line tab width = %g, want 50", w)
	}
	if w := tabWidth(t, res, "t2"); !almost(w, 50) {
		t.Errorf("second line tab width = %g, want 50", w)
	}
}

func TestTabAsFirstSpan(t *testing.T) {
	p := &flow.Paragraph{
		Nodes:    []*flow.Node{tabSpan("t1"), textSpan("s1", 30)},
		TabStops: []flow.TabStop{{Position: 100}},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{ParagraphWidth: 400})
	if w := tabWidth(t, res, "t1"); !almost(w, 100) {
		t.Errorf("leading tab width = %g, want 100", w)
	}
}

func TestTabStopMustBeStrictlyPast(t *testing.T) {
	// x is exactly on the stop; the stop is not "past" it, so the default
	// grid takes over.
	p := &flow.Paragraph{
		Nodes:    []*flow.Node{textSpan("s1", 100), tabSpan("t1")},
		TabStops: []flow.TabStop{{Position: 100}},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{
		ParagraphWidth:     400,
		DefaultTabDistance: 36,
	})
	// Next grid multiple after 100 at 36pt spacing is 108.
	if w := tabWidth(t, res, "t1"); !almost(w, 8) {
		t.Errorf("tab width = %g, want 8", w)
	}
}

func TestTabFallsBackToDefaultGrid(t *testing.T) {
	p := &flow.Paragraph{
		Nodes: []*flow.Node{textSpan("s1", 40), tabSpan("t1")},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{
		ParagraphWidth:     400,
		DefaultTabDistance: 36,
	})
	if w := tabWidth(t, res, "t1"); !almost(w, 32) {
		t.Errorf("tab width = %g, want 32 (next 36pt multiple)", w)
	}
}

func TestTabClampedToUsableWidth(t *testing.T) {
	p := &flow.Paragraph{
		Nodes:    []*flow.Node{textSpan("s1", 80), tabSpan("t1")},
		TabStops: []flow.TabStop{{Position: 300}},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{
		ParagraphWidth: 200,
		Indents:        flow.Indents{Right: 20},
	})
	// Usable width is 200-20=180; the 300pt stop clamps there.
	if w := tabWidth(t, res, "t1"); !almost(w, 100) {
		t.Errorf("tab width = %g, want 100", w)
	}
}

func TestTabPastUsableWidthIsZero(t *testing.T) {
	p := &flow.Paragraph{
		Nodes:    []*flow.Node{textSpan("s1", 190), tabSpan("t1")},
		TabStops: []flow.TabStop{{Position: 300}},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{
		ParagraphWidth: 200,
		Indents:        flow.Indents{Right: 20},
	})
	// Already past the clamp target: width floors at zero, never negative.
	if w := tabWidth(t, res, "t1"); w != 0 {
		t.Errorf("tab width = %g, want 0", w)
	}
}

func TestFirstLineIndentShiftsStart(t *testing.T) {
	p := &flow.Paragraph{
		Nodes:    []*flow.Node{tabSpan("t1"), breakSpan("b1"), tabSpan("t2")},
		TabStops: []flow.TabStop{{Position: 100}},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{
		ParagraphWidth: 400,
		Indents:        flow.Indents{Left: 10, FirstLine: 20},
	})
	// First line starts at 30, later lines at 10.
	if w := tabWidth(t, res, "t1"); !almost(w, 70) {
		t.Errorf("first line tab = %g, want 70", w)
	}
	if w := tabWidth(t, res, "t2"); !almost(w, 90) {
		t.Errorf("second line tab = %g, want 90", w)
	}
}

func TestLeaderPassesThroughUntouched(t *testing.T) {
	p := &flow.Paragraph{
		Nodes: []*flow.Node{tabSpan("t1"), textSpan("s1", 150), tabSpan("t2")},
		TabStops: []flow.TabStop{
			{Position: 100, Leader: flow.LeaderDot},
			{Position: 200, Leader: flow.LeaderMiddleDot},
		},
	}
	res := CalculateTabLayout(p, TabLayoutRequest{ParagraphWidth: 400})
	if got := res.Tabs["t1"].Leader; got != flow.LeaderDot {
		t.Errorf("t1 leader = %q, want dot", got)
	}
	if got := res.Tabs["t2"].Leader; got != flow.LeaderMiddleDot {
		t.Errorf("t2 leader = %q, want middleDot", got)
	}
}

func TestDefaultGridTabsHaveNoLeader(t *testing.T) {
	p := &flow.Paragraph{Nodes: []*flow.Node{tabSpan("t1")}}
	res := CalculateTabLayout(p, TabLayoutRequest{ParagraphWidth: 400, DefaultTabDistance: 36})
	if got := res.Tabs["t1"].Leader; got != flow.LeaderNone {
		t.Errorf("grid tab leader = %q, want none", got)
	}
}

func TestApplyTabLayoutOffsets(t *testing.T) {
	// "héllo" (5 runes), tab, nested container holding text (2 runes) and a
	// second tab. Offsets count runes, not bytes, and recursion enters
	// containers.
	nodes := []*flow.Node{
		{Span: &flow.Span{ID: "s1", Kind: flow.SpanText, Text: "héllo", Width: 40}},
		tabSpan("t1"),
		{Children: []*flow.Node{
			{Span: &flow.Span{ID: "s2", Kind: flow.SpanText, Text: "ab", Width: 10}},
			tabSpan("t2"),
		}},
	}
	res := TabLayoutResult{Tabs: map[string]TabPlacement{
		"t1": {Width: 20, Height: 12, Leader: flow.LeaderDot},
		"t2": {Width: 5, Height: 12, Leader: flow.LeaderNone},
	}}

	decs := ApplyTabLayout(res, nodes, 100)
	if len(decs) != 2 {
		t.Fatalf("got %d decorations, want 2", len(decs))
	}
	if decs[0].From != 105 || decs[0].To != 106 {
		t.Errorf("t1 decoration at [%d,%d), want [105,106)", decs[0].From, decs[0].To)
	}
	if decs[0].Leader != flow.LeaderDot || decs[0].Width != 20 {
		t.Errorf("t1 decoration = %+v", decs[0])
	}
	if decs[1].From != 108 || decs[1].To != 109 {
		t.Errorf("t2 decoration at [%d,%d), want [108,109)", decs[1].From, decs[1].To)
	}
}

func TestApplyTabLayoutSkipsStaleTabs(t *testing.T) {
	nodes := []*flow.Node{tabSpan("gone"), tabSpan("kept")}
	res := TabLayoutResult{Tabs: map[string]TabPlacement{"kept": {Width: 9}}}
	decs := ApplyTabLayout(res, nodes, 0)
	if len(decs) != 1 || decs[0].From != 1 {
		t.Fatalf("decorations = %+v, want one at offset 1", decs)
	}
}
