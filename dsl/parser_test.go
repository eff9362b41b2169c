package dsl

import (
	"strings"
	"testing"
)

const sampleDoc = `doc report {
	meta {
		title: "Q3 Report"
		author: "Ops"
	}
	resources {
		font Body {
			src: "fonts/Inter-Regular.ttf"
		}
	}
	page a4 landscape margin 20pt 30pt columns 2 gutter 12pt {
		header height 24pt {
			p font Body size 9pt {
				"Page ${page} of ${pages}"
			}
		}
		p font Body size 12pt keep-with-next anchor intro tabstops "100pt right dot, 200pt" {
			"Hello"
			tab
			run style em comments "c1:internal|c2" {
				"world"
			}
			br
			"second line"
		}
		table repeat-header widths "40pt 60pt" {
			header {
				cell { "H1" }
				cell { "H2" }
			}
			row {
				cell rowspan 2 { "a" }
				cell { "b" }
			}
			row {
				cell { "c" }
			}
		}
		image src "logo.png" width 50pt height 20pt
		pagebreak
	}
}
`

func TestParseSampleDocument(t *testing.T) {
	doc, err := ParseString(sampleDoc)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if doc.Name != "report" {
		t.Fatalf("doc name = %q, want report", doc.Name)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(doc.Sections))
	}

	var page *PageSection
	for _, s := range doc.Sections {
		if s.Page != nil {
			page = s.Page
		}
	}
	if page == nil {
		t.Fatal("no page section parsed")
	}
	if page.Spec.Size != "a4" {
		t.Fatalf("page size = %q, want a4", page.Spec.Size)
	}
	var params []string
	for _, p := range page.Spec.Params {
		params = append(params, p.Value)
	}
	want := "landscape margin 20pt 30pt columns 2 gutter 12pt"
	if got := strings.Join(params, " "); got != want {
		t.Fatalf("page params = %q, want %q", got, want)
	}

	var names []string
	for _, stmt := range page.Block.Statements {
		if stmt.Command != nil {
			names = append(names, stmt.Command.Name)
		}
	}
	wantNames := []string{"header", "p", "table", "image", "pagebreak"}
	if got := strings.Join(names, " "); got != strings.Join(wantNames, " ") {
		t.Fatalf("page commands = %v, want %v", names, wantNames)
	}
}

func TestParseUnquotesStrings(t *testing.T) {
	doc, err := ParseString(`doc d {
	page a4 {
		p {
			"say \"hi\""
		}
	}
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	p := doc.Sections[0].Page.Block.Statements[0].Command
	text := p.Block.Statements[0].Text
	if text == nil {
		t.Fatal("text literal not parsed")
	}
	if got := string(text.Value); got != `say "hi"` {
		t.Fatalf("unquoted text = %q", got)
	}
}

func TestParseCommentsElided(t *testing.T) {
	doc, err := ParseString(`doc d {
	// line comment
	/* block
	   comment */
	page a4 {
		p { "x" }
	}
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	if doc.Name != "d" {
		t.Fatalf("doc name = %q", doc.Name)
	}
}

func TestParseMetaAssignments(t *testing.T) {
	doc, err := ParseString(sampleDoc)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	meta := doc.Sections[0].Meta
	if meta == nil {
		t.Fatal("meta section missing")
	}
	a := meta.Block.Statements[0].Assignment
	if a == nil || a.Key != "title" {
		t.Fatalf("first meta statement = %+v", meta.Block.Statements[0])
	}
	if a.Value.String == nil || string(*a.Value.String) != "Q3 Report" {
		t.Fatalf("title value = %+v", a.Value)
	}
}

func TestParseErrorOnGarbage(t *testing.T) {
	if _, err := ParseString("doc {{{"); err == nil {
		t.Fatal("garbage input parsed")
	}
}
