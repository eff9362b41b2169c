package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/folio/flow"
)

// Incremental re-layout. Each run reduces to a comparable structural key;
// a block is dirty when its key sequence changed. The packer is then
// re-run from the first dirty block onward — later blocks may keep their
// content but still shift when an earlier height changed — while fragments
// and measures before that point are carried over unchanged.

// runKey is a value-comparable run digest. A struct key avoids the
// separator-collision ambiguity of concatenated string keys.
type runKey struct {
	text     string
	styleKey string
	comments string
}

// CommentKey serializes a run's comment annotations as
// "commentId:internalFlag" pairs joined by "|", order-preserving: two runs
// with the same comments in a different order, or with different
// internal/external flags, key differently. A run without comments keys to
// the empty string.
func CommentKey(r flow.Run) string {
	if len(r.Comments) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range r.Comments {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(c.ID)
		b.WriteByte(':')
		b.WriteString(strconv.FormatBool(c.Internal))
	}
	return b.String()
}

func keyOf(r flow.Run) runKey {
	return runKey{text: r.Text, styleKey: r.StyleKey, comments: CommentKey(r)}
}

// blockRunKeys flattens a block to the key sequence the diff compares.
// Non-paragraph blocks contribute synthetic structural keys so edits to
// cell shape, image source or merge metadata dirty the block too.
func blockRunKeys(b *flow.Block) []runKey {
	switch b.Kind {
	case flow.KindParagraph:
		if b.Paragraph == nil {
			return nil
		}
		keys := make([]runKey, 0, len(b.Paragraph.Runs))
		for _, r := range b.Paragraph.Runs {
			keys = append(keys, keyOf(r))
		}
		return keys
	case flow.KindTable:
		if b.Table == nil {
			return nil
		}
		var keys []runKey
		for ri, row := range b.Table.Rows {
			for ci, cell := range row.Cells {
				keys = append(keys, runKey{
					styleKey: fmt.Sprintf("cell/%d/%d/%d/%d", ri, ci, cell.RowSpan, cell.ColSpan),
				})
				if cell.Paragraph == nil {
					continue
				}
				for _, r := range cell.Paragraph.Runs {
					keys = append(keys, keyOf(r))
				}
			}
		}
		return keys
	case flow.KindImage:
		if b.Image == nil {
			return nil
		}
		return []runKey{{text: b.Image.Source, styleKey: fmt.Sprintf("image/%t", b.Image.Behind)}}
	default:
		return []runKey{{styleKey: "page-break"}}
	}
}

// ComputeDirtyRegions returns the ids of blocks whose layout must be
// recomputed: key sequence changed, block added, or block removed.
func ComputeDirtyRegions(prev, next []flow.Block) map[string]bool {
	prevKeys := make(map[string][]runKey, len(prev))
	for i := range prev {
		prevKeys[prev[i].ID] = blockRunKeys(&prev[i])
	}
	dirty := map[string]bool{}
	seen := make(map[string]bool, len(next))
	for i := range next {
		id := next[i].ID
		seen[id] = true
		pk, ok := prevKeys[id]
		if !ok || !equalKeys(pk, blockRunKeys(&next[i])) {
			dirty[id] = true
		}
	}
	for id := range prevKeys {
		if !seen[id] {
			dirty[id] = true
		}
	}
	return dirty
}

func equalKeys(a, b []runKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// firstDirtyIndex finds the earliest position the packer must resume from:
// the first index where the block order diverges or a block is dirty. -1
// means nothing changed.
func firstDirtyIndex(prev, next []flow.Block, dirty map[string]bool) int {
	n := len(prev)
	if len(next) < n {
		n = len(next)
	}
	for i := 0; i < n; i++ {
		if prev[i].ID != next[i].ID || dirty[next[i].ID] {
			return i
		}
	}
	if len(prev) != len(next) {
		return n
	}
	return -1
}

// MeasureFunc supplies geometry for a block that needs (re)measurement.
// During an incremental pass it is invoked only for dirty blocks; clean
// blocks keep their cached measure.
type MeasureFunc func(i int, b *flow.Block) (flow.Measure, error)

// Session wraps repeated pack passes across edits, scoping recomputation
// to the smallest dirty-forward window. A Session is not safe for
// concurrent use, and each Relayout invalidates the previously returned
// Layout.
type Session struct {
	opts   Options
	blocks []flow.Block
	p      *packer
	layout *Layout
}

// NewSession creates an incremental layout session.
func NewSession(opts Options) *Session {
	return &Session{opts: opts}
}

// Layout runs a full pass, measuring every block.
func (s *Session) Layout(blocks []flow.Block, measure MeasureFunc) (*Layout, error) {
	measures := make([]flow.Measure, len(blocks))
	for i := range blocks {
		m, err := measure(i, &blocks[i])
		if err != nil {
			return nil, fmt.Errorf("layout: measuring block %s: %w", blocks[i].ID, err)
		}
		measures[i] = m
	}
	p, err := newPacker(blocks, measures, s.opts)
	if err != nil {
		return nil, err
	}
	if err := p.packFrom(0); err != nil {
		return nil, err
	}
	s.blocks = blocks
	s.p = p
	s.layout = p.result()
	return s.layout, nil
}

// Relayout recomputes layout after an edit. Blocks before the first dirty
// index keep their fragments and positions; the packer rewinds to the
// checkpoint recorded there and repacks forward.
func (s *Session) Relayout(blocks []flow.Block, measure MeasureFunc) (*Layout, error) {
	if s.p == nil {
		return s.Layout(blocks, measure)
	}

	dirty := ComputeDirtyRegions(s.blocks, blocks)
	first := firstDirtyIndex(s.blocks, blocks, dirty)
	if first < 0 {
		return s.layout, nil
	}

	prevMeasure := make(map[string]flow.Measure, len(s.blocks))
	for i := range s.blocks {
		prevMeasure[s.blocks[i].ID] = s.p.measures[i]
	}
	measures := make([]flow.Measure, len(blocks))
	for i := range blocks {
		id := blocks[i].ID
		if !dirty[id] {
			if m, ok := prevMeasure[id]; ok {
				measures[i] = m
				continue
			}
		}
		m, err := measure(i, &blocks[i])
		if err != nil {
			return nil, fmt.Errorf("layout: measuring block %s: %w", id, err)
		}
		measures[i] = m
	}

	p := s.p
	if first < len(s.blocks) {
		p.b.Restore(p.checkpoints[first])
	}
	checkpoints := make([]Checkpoint, len(blocks))
	copy(checkpoints, p.checkpoints[:min(first, len(p.checkpoints))])
	p.checkpoints = checkpoints
	p.blocks = blocks
	p.measures = measures

	kept := p.anchors[:0]
	for _, a := range p.anchors {
		if a.BlockIndex < first {
			kept = append(kept, a)
		}
	}
	p.anchors = kept

	if err := p.packFrom(first); err != nil {
		// The session's cached state is stale now; force a full pass on
		// the next call.
		s.p = nil
		s.layout = nil
		return nil, err
	}
	s.blocks = blocks
	s.layout = p.result()
	return s.layout, nil
}
