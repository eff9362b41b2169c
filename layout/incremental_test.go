package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/folio/flow"
)

func runBlock(id string, runs ...flow.Run) flow.Block {
	return flow.Block{ID: id, Kind: flow.KindParagraph, Paragraph: &flow.Paragraph{Runs: runs}}
}

func TestCommentKey(t *testing.T) {
	cases := []struct {
		name string
		run  flow.Run
		want string
	}{
		{"no comments", flow.Run{}, ""},
		{"single", flow.Run{Comments: []flow.Comment{{ID: "c1"}}}, "c1:false"},
		{"internal flag", flow.Run{Comments: []flow.Comment{{ID: "c1", Internal: true}}}, "c1:true"},
		{"order preserved", flow.Run{Comments: []flow.Comment{{ID: "b"}, {ID: "a"}}}, "b:false|a:false"},
	}
	for _, tc := range cases {
		if got := CommentKey(tc.run); got != tc.want {
			t.Errorf("%s: CommentKey = %q, want %q", tc.name, got, tc.want)
		}
	}

	// Same ids in a different order must key differently.
	ab := CommentKey(flow.Run{Comments: []flow.Comment{{ID: "a"}, {ID: "b"}}})
	ba := CommentKey(flow.Run{Comments: []flow.Comment{{ID: "b"}, {ID: "a"}}})
	if ab == ba {
		t.Fatal("comment order not reflected in key")
	}
}

func TestRunKeyDistinguishesFields(t *testing.T) {
	base := flow.Run{Text: "hello", StyleKey: "s1"}
	if keyOf(base) != keyOf(flow.Run{Text: "hello", StyleKey: "s1"}) {
		t.Fatal("identical runs key differently")
	}
	if keyOf(base) == keyOf(flow.Run{Text: "hello", StyleKey: "s2"}) {
		t.Fatal("style change not detected")
	}
	if keyOf(base) == keyOf(flow.Run{Text: "hellp", StyleKey: "s1"}) {
		t.Fatal("text change not detected")
	}
	withComment := flow.Run{Text: "hello", StyleKey: "s1", Comments: []flow.Comment{{ID: "c"}}}
	if keyOf(base) == keyOf(withComment) {
		t.Fatal("comment change not detected")
	}
}

func TestComputeDirtyRegions(t *testing.T) {
	prev := []flow.Block{
		runBlock("p1", flow.Run{ID: "r1", Text: "a"}),
		runBlock("p2", flow.Run{ID: "r2", Text: "b"}),
		runBlock("p3", flow.Run{ID: "r3", Text: "c"}),
	}
	next := []flow.Block{
		runBlock("p1", flow.Run{ID: "r1", Text: "a"}),
		runBlock("p2", flow.Run{ID: "r2", Text: "B!"}), // edited
		runBlock("p4", flow.Run{ID: "r4", Text: "d"}),  // added; p3 removed
	}

	dirty := ComputeDirtyRegions(prev, next)
	want := map[string]bool{"p2": true, "p3": true, "p4": true}
	if diff := cmp.Diff(want, dirty); diff != "" {
		t.Fatalf("dirty regions mismatch (-want +got):\n%s", diff)
	}
}

func TestDirtyDetectsTableShapeChanges(t *testing.T) {
	mk := func(rowSpan int) []flow.Block {
		return []flow.Block{{ID: "t1", Kind: flow.KindTable, Table: &flow.Table{
			Rows: []flow.TableRow{{Cells: []flow.TableCell{{RowSpan: rowSpan}}}, {Cells: []flow.TableCell{{}}}},
		}}}
	}
	if dirty := ComputeDirtyRegions(mk(1), mk(2)); !dirty["t1"] {
		t.Fatal("rowspan change not dirty")
	}
	if dirty := ComputeDirtyRegions(mk(2), mk(2)); len(dirty) != 0 {
		t.Fatalf("unchanged table dirty: %v", dirty)
	}
}

func TestFirstDirtyIndex(t *testing.T) {
	a := runBlock("a", flow.Run{ID: "r", Text: "x"})
	b := runBlock("b", flow.Run{ID: "r", Text: "y"})
	c := runBlock("c", flow.Run{ID: "r", Text: "z"})

	prev := []flow.Block{a, b, c}

	if got := firstDirtyIndex(prev, []flow.Block{a, b, c}, nil); got != -1 {
		t.Errorf("unchanged: first = %d, want -1", got)
	}
	if got := firstDirtyIndex(prev, []flow.Block{a, b, c}, map[string]bool{"b": true}); got != 1 {
		t.Errorf("edited b: first = %d, want 1", got)
	}
	// Reorder: divergence position wins even without content changes.
	if got := firstDirtyIndex(prev, []flow.Block{a, c, b}, nil); got != 1 {
		t.Errorf("reorder: first = %d, want 1", got)
	}
	// Append: repack from the old length.
	appended := []flow.Block{a, b, c, runBlock("d")}
	if got := firstDirtyIndex(prev, appended, map[string]bool{"d": true}); got != 3 {
		t.Errorf("append: first = %d, want 3", got)
	}
	// Truncate: repack from the new length (nothing, but anchors trim).
	if got := firstDirtyIndex(prev, []flow.Block{a, b}, map[string]bool{"c": true}); got != 2 {
		t.Errorf("truncate: first = %d, want 2", got)
	}
}

// heightsMeasure builds a MeasureFunc serving paragraph line heights by
// block id and counting invocations.
func heightsMeasure(heights map[string][]float64, calls map[string]int) MeasureFunc {
	return func(_ int, b *flow.Block) (flow.Measure, error) {
		if calls != nil {
			calls[b.ID]++
		}
		hs := heights[b.ID]
		lines := make([]flow.LineBox, len(hs))
		for i, h := range hs {
			lines[i] = flow.LineBox{StartSpan: i, EndSpan: i + 1, Height: h}
		}
		return flow.Measure{Kind: flow.KindParagraph, Paragraph: &flow.ParagraphMeasure{Lines: lines, Width: 80}}, nil
	}
}

func TestSessionRelayoutMatchesFullPass(t *testing.T) {
	mkBlocks := func(midText string) []flow.Block {
		return []flow.Block{
			runBlock("p1", flow.Run{ID: "r1", Text: "intro"}),
			runBlock("p2", flow.Run{ID: "r2", Text: midText}),
			runBlock("p3", flow.Run{ID: "r3", Text: "tail"}),
		}
	}
	prevHeights := map[string][]float64{
		"p1": {30, 30},
		"p2": {20},
		"p3": {30, 30},
	}
	// The edit grows p2 from one line to three: p3 must shift.
	nextHeights := map[string][]float64{
		"p1": {30, 30},
		"p2": {20, 20, 20},
		"p3": {30, 30},
	}

	s := NewSession(testOptions())
	if _, err := s.Layout(mkBlocks("old"), heightsMeasure(prevHeights, nil)); err != nil {
		t.Fatalf("Layout: %v", err)
	}

	calls := map[string]int{}
	got, err := s.Relayout(mkBlocks("new"), heightsMeasure(nextHeights, calls))
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}

	// Clean blocks keep their cached measures.
	if calls["p1"] != 0 || calls["p3"] != 0 {
		t.Fatalf("clean blocks remeasured: %v", calls)
	}
	if calls["p2"] != 1 {
		t.Fatalf("dirty block measured %d times, want 1", calls["p2"])
	}

	fresh := NewSession(testOptions())
	want, err := fresh.Layout(mkBlocks("new"), heightsMeasure(nextHeights, nil))
	if err != nil {
		t.Fatalf("fresh Layout: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("incremental layout diverges from full pass (-full +incremental):\n%s", diff)
	}
}

func TestSessionNoEditReturnsSameLayout(t *testing.T) {
	blocks := []flow.Block{runBlock("p1", flow.Run{ID: "r1", Text: "a"})}
	heights := map[string][]float64{"p1": {30}}

	s := NewSession(testOptions())
	first, err := s.Layout(blocks, heightsMeasure(heights, nil))
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	calls := map[string]int{}
	again, err := s.Relayout(blocks, heightsMeasure(heights, calls))
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	if again != first {
		t.Fatal("unchanged document rebuilt the layout")
	}
	if len(calls) != 0 {
		t.Fatalf("unchanged document triggered measures: %v", calls)
	}
}

func TestSessionRelayoutBeforeLayoutRunsFullPass(t *testing.T) {
	blocks := []flow.Block{runBlock("p1", flow.Run{ID: "r1", Text: "a"})}
	s := NewSession(testOptions())
	l, err := s.Relayout(blocks, heightsMeasure(map[string][]float64{"p1": {30}}, nil))
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	if l.PageCount() != 1 {
		t.Fatalf("pages = %d, want 1", l.PageCount())
	}
}

func TestSessionEditOnFirstBlockRestartsFromTop(t *testing.T) {
	mk := func(text string) []flow.Block {
		return []flow.Block{
			runBlock("p1", flow.Run{ID: "r1", Text: text}),
			runBlock("p2", flow.Run{ID: "r2", Text: "b"}),
		}
	}
	h1 := map[string][]float64{"p1": {70}, "p2": {30}}
	h2 := map[string][]float64{"p1": {10}, "p2": {30}}

	s := NewSession(testOptions())
	if _, err := s.Layout(mk("tall"), heightsMeasure(h1, nil)); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	// p2 did not fit behind the 70pt paragraph and went to page two.
	got, err := s.Relayout(mk("short"), heightsMeasure(h2, nil))
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	// After shrinking p1, everything fits one page again.
	if got.PageCount() != 1 {
		t.Fatalf("pages = %d, want 1", got.PageCount())
	}
}
