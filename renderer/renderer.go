// Package renderer defines the output surface for paginated layouts.
package renderer

import (
	"github.com/ByLCY/folio/flow"
	"github.com/ByLCY/folio/layout"
)

// Meta carries PDF document information.
type Meta struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Keywords []string
}

// Band pairs header/footer content with its band layout. Measures align
// with Blocks one-to-one.
type Band struct {
	Blocks   []flow.Block
	Measures []flow.Measure
	Layout   *layout.HeaderFooterLayout
}

// Document is everything a renderer needs to draw a paginated result:
// the packed layout plus the content and measures its fragments refer to.
type Document struct {
	Meta     Meta
	Blocks   []flow.Block
	Measures []flow.Measure
	Layout   *layout.Layout

	Header *Band
	Footer *Band
}

// Renderer turns a layout into final output bytes, e.g. a PDF.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
}
