package typeset

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/folio/flow"
)

// Shaping splits text spans into wrappable pieces so the line breaker can
// work at span granularity: each text leaf becomes a run of whitespace and
// word tokens, and a token wider than the wrap limit is further split by
// width. Derived spans get ids suffixed ".1", ".2", ... under the original
// span id. Shaping is idempotent for already-shaped trees (single tokens
// stay leaves).

func shapeParagraph(p *flow.Paragraph, face *canvas.FontFace, limit float64) {
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
			if n.Span.Kind != flow.SpanText {
				continue
			}
			pieces := shapeText(n.Span.Text, face, limit)
			if len(pieces) <= 1 {
				continue
			}
			children := make([]*flow.Node, len(pieces))
			for i, piece := range pieces {
				children[i] = &flow.Node{Span: &flow.Span{
					ID:   fmt.Sprintf("%s.%d", n.Span.ID, i+1),
					Kind: flow.SpanText,
					Text: piece,
				}}
			}
			n.Span = nil
			n.Children = children
		}
	}
	walk(p.Nodes)
}

func shapeText(text string, face *canvas.FontFace, limit float64) []string {
	var out []string
	for _, token := range tokenize(text) {
		if limit > 0 && textWidthPt(face, token) > limit {
			out = append(out, splitTokenByWidth(token, limit, face)...)
			continue
		}
		out = append(out, token)
	}
	return out
}

// tokenize splits text into alternating runs of whitespace and
// non-whitespace.
func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	lastWasSpace := false
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tokens = append(tokens, b.String())
		b.Reset()
	}
	for _, r := range s {
		if r == '\r' || r == '\n' {
			continue
		}
		isSpace := unicode.IsSpace(r)
		if b.Len() > 0 && lastWasSpace != isSpace {
			flush()
		}
		lastWasSpace = isSpace
		b.WriteRune(r)
	}
	flush()
	return tokens
}

// splitTokenByWidth breaks a single token into chunks that each fit limit,
// keeping at least one rune per chunk so splitting always terminates.
func splitTokenByWidth(token string, limit float64, face *canvas.FontFace) []string {
	var parts []string
	var b strings.Builder
	for _, r := range token {
		b.WriteRune(r)
		if textWidthPt(face, b.String()) > limit && b.Len() > 1 {
			runes := []rune(b.String())
			parts = append(parts, string(runes[:len(runes)-1]))
			b.Reset()
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}
