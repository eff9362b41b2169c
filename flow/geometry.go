package flow

import "fmt"

// Page geometry. Everything is in pt.

// PageSize is the physical page extent.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Margins bounds the content box. Header/Footer are the band distances from
// the page edge reserved for page furniture; the effective content top is
// max(Top, header band height) and likewise for the bottom.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Header float64 `json:"header,omitempty"`
	Footer float64 `json:"footer,omitempty"`
}

// ColumnLayout describes the multi-column grid of the content box.
type ColumnLayout struct {
	Count  int     `json:"count"`
	Gutter float64 `json:"gutter,omitempty"`
}

// Normalize clamps the column count to at least one.
func (c ColumnLayout) Normalize() ColumnLayout {
	if c.Count < 1 {
		c.Count = 1
	}
	return c
}

// pagePresets maps paper names to width/height in pt.
var pagePresets = map[string]PageSize{
	"A4":     {Width: 595.28, Height: 841.89},
	"A5":     {Width: 419.53, Height: 595.28},
	"LETTER": {Width: 612, Height: 792},
	"LEGAL":  {Width: 612, Height: 1008},
}

// PresetPageSize resolves a named paper size, optionally rotated to
// landscape.
func PresetPageSize(name string, landscape bool) (PageSize, error) {
	size, ok := pagePresets[normalizePresetName(name)]
	if !ok {
		return PageSize{}, fmt.Errorf("flow: unsupported paper size %q", name)
	}
	if landscape {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, nil
}

func normalizePresetName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
