package refs

import (
	"testing"

	"github.com/ByLCY/folio/flow"
	"github.com/ByLCY/folio/layout"
)

func refPara(id string, runs ...flow.Run) (flow.Block, flow.Measure) {
	blk := flow.Block{ID: id, Kind: flow.KindParagraph, Paragraph: &flow.Paragraph{Runs: runs}}
	m := flow.Measure{Kind: flow.KindParagraph, Paragraph: &flow.ParagraphMeasure{
		Lines: []flow.LineBox{{Height: 60}},
		Width: 80,
	}}
	return blk, m
}

func buildLayout(t *testing.T, blocks []flow.Block, measures []flow.Measure) *layout.Layout {
	t.Helper()
	l, err := layout.Document(blocks, measures, layout.Options{
		PageSize: flow.PageSize{Width: 100, Height: 100},
		Margins:  flow.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10},
	})
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	return l
}

func TestResolve(t *testing.T) {
	b1, m1 := refPara("p1", flow.Run{ID: "r1", Text: "Contents ... ${page:summary}"})
	b2, m2 := refPara("p2", flow.Run{ID: "r2", Text: "plain text"})
	b3, m3 := refPara("p3",
		flow.Run{ID: "r3", Text: "Page ${page} of ${pages}"},
		flow.Run{ID: "r4", Text: "see ${page:missing}"},
	)
	b3.AnchorNames = []string{"summary"}

	blocks := []flow.Block{b1, b2, b3}
	l := buildLayout(t, blocks, []flow.Measure{m1, m2, m3})
	// 60pt blocks on an 80pt page: one block per page, three pages.
	if l.PageCount() != 3 {
		t.Fatalf("pages = %d, want 3", l.PageCount())
	}

	res := Resolve(blocks, l)
	if len(res) != 2 {
		t.Fatalf("got %d resolutions, want 2: %+v", len(res), res)
	}

	if res[0].BlockID != "p1" || res[0].RunID != "r1" {
		t.Fatalf("first resolution = %+v", res[0])
	}
	if res[0].Text != "Contents ... 3" {
		t.Errorf("anchor ref = %q, want page 3", res[0].Text)
	}

	if res[1].RunID != "r3" {
		t.Fatalf("second resolution = %+v", res[1])
	}
	if res[1].Text != "Page 3 of 3" {
		t.Errorf("page/pages = %q, want %q", res[1].Text, "Page 3 of 3")
	}

	// The source model is never mutated.
	if got := blocks[0].Paragraph.Runs[0].Text; got != "Contents ... ${page:summary}" {
		t.Fatalf("source run mutated to %q", got)
	}
}

func TestResolveLeavesUnknownAnchorUntouched(t *testing.T) {
	b, m := refPara("p1", flow.Run{ID: "r1", Text: "see ${page:nowhere}"})
	l := buildLayout(t, []flow.Block{b}, []flow.Measure{m})

	if res := Resolve([]flow.Block{b}, l); len(res) != 0 {
		t.Fatalf("unresolvable token produced resolutions: %+v", res)
	}
}

func TestInterpolate(t *testing.T) {
	anchors := layout.AnchorMap{"ch1": 4}
	cases := []struct {
		in   string
		want string
	}{
		{"${page}", "7"},
		{"${pages}", "12"},
		{"${page:ch1}", "4"},
		{"${page:ch1} of ${pages}", "4 of 12"},
		{"${page:nope}", "${page:nope}"},
		{"${unknown}", "${unknown}"},
		{"no tokens", "no tokens"},
		{"$ {page}", "$ {page}"}, // whitespace breaks the token form
	}
	for _, tc := range cases {
		if got := Interpolate(tc.in, 7, 12, anchors); got != tc.want {
			t.Errorf("Interpolate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInterpolateZeroContextKeepsTokens(t *testing.T) {
	if got := Interpolate("${page} ${pages}", 0, 0, nil); got != "${page} ${pages}" {
		t.Fatalf("zero context interpolated to %q", got)
	}
}
