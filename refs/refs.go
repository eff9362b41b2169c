// Package refs resolves page-reference tokens after a full layout pass.
// Because resolved text can itself change a paragraph's line wrapping, the
// resolution is a bounded approximation: page numbers come from the first
// pass's assignments and no second reflow is triggered.
package refs

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ByLCY/folio/flow"
	"github.com/ByLCY/folio/layout"
)

// Token forms: ${page} — the page the token's own block landed on,
// ${pages} — the total page count, ${page:name} — the page of a named
// anchor (bookmark, section start, TOC target).
var tokenPattern = regexp.MustCompile(`\$\{(page|pages|page:[^}]*)\}`)

// Resolution is the substituted text for one run. The document model is
// never mutated; the consumer applies resolutions as view decorations or
// during export.
type Resolution struct {
	BlockID string `json:"blockId"`
	RunID   string `json:"runId"`
	Text    string `json:"text"`
}

// Resolve substitutes page-reference tokens in every paragraph run, using
// the anchor map and page assignments of the given layout. Runs without
// tokens produce no resolution. Tokens naming an unknown anchor are left
// untouched rather than failing the pass.
func Resolve(blocks []flow.Block, l *layout.Layout) []Resolution {
	anchors := layout.BuildAnchorMap(l)
	pages := layout.BlockPages(l)
	total := l.PageCount()

	var out []Resolution
	for i := range blocks {
		blk := &blocks[i]
		if blk.Kind != flow.KindParagraph || blk.Paragraph == nil {
			continue
		}
		for _, run := range blk.Paragraph.Runs {
			if !strings.Contains(run.Text, "${") {
				continue
			}
			resolved := Interpolate(run.Text, pages[blk.ID], total, anchors)
			if resolved == run.Text {
				continue
			}
			out = append(out, Resolution{
				BlockID: blk.ID,
				RunID:   run.ID,
				Text:    resolved,
			})
		}
	}
	return out
}

// Interpolate replaces the tokens in text. ownPage is the page the text's
// block was placed on; unresolvable tokens keep their placeholder form.
func Interpolate(text string, ownPage, totalPages int, anchors layout.AnchorMap) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		switch {
		case key == "page":
			if ownPage <= 0 {
				return match
			}
			return strconv.Itoa(ownPage)
		case key == "pages":
			if totalPages <= 0 {
				return match
			}
			return strconv.Itoa(totalPages)
		case strings.HasPrefix(key, "page:"):
			name := strings.TrimSpace(strings.TrimPrefix(key, "page:"))
			if page, ok := anchors[name]; ok && page > 0 {
				return strconv.Itoa(page)
			}
			return match
		default:
			return match
		}
	})
}
