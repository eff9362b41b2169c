package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ByLCY/folio/dsl"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/renderer"
	canvasrenderer "github.com/ByLCY/folio/renderer/canvas"
	"github.com/ByLCY/folio/typeset"
)

func main() {
	input := flag.String("in", "examples/demo.folio", "document file path")
	output := flag.String("out", "output/demo.pdf", "PDF output path")
	debug := flag.String("debug", "", "layout debug JSON output path")
	flag.Parse()

	if err := run(*input, *output, *debug); err != nil {
		log.Fatalf("generating PDF failed: %v", err)
	}
	fmt.Printf("wrote %s\n", *output)
}

// run chains parsing, measurement, pagination and rendering.
func run(inputPath, outputPath, debugPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("opening document %s: %w", inputPath, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("parsing document: %w", err)
	}
	spec, err := dsl.Compile(doc)
	if err != nil {
		return fmt.Errorf("compiling document: %w", err)
	}

	baseDir := filepath.Dir(inputPath)
	fonts := make(map[string]typeset.Resource, len(spec.Fonts))
	rendererFonts := make(map[string]canvasrenderer.Resource, len(spec.Fonts))
	for name, src := range spec.Fonts {
		fonts[name] = typeset.Resource{Path: src}
		rendererFonts[name] = canvasrenderer.Resource{Path: src}
	}
	measurer := typeset.NewMeasurer(typeset.Options{BaseDir: baseDir, Fonts: fonts})

	contentWidth := spec.PageSize.Width - spec.Margins.Left - spec.Margins.Right
	header, headerBand, err := buildBand(measurer, spec, spec.Header, contentWidth)
	if err != nil {
		return fmt.Errorf("laying out header: %w", err)
	}
	footer, footerBand, err := buildBand(measurer, spec, spec.Footer, contentWidth)
	if err != nil {
		return fmt.Errorf("laying out footer: %w", err)
	}

	opts := layout.Options{
		PageSize:  spec.PageSize,
		Margins:   spec.Margins,
		Columns:   spec.Columns,
		Remeasure: measurer.Remeasure,
	}
	if header != nil {
		opts.HeaderHeight = header.Height
	}
	if footer != nil {
		opts.FooterHeight = footer.Height
	}

	measures, err := measurer.MeasureAll(spec.Blocks, columnWidth(spec, contentWidth))
	if err != nil {
		return fmt.Errorf("measuring document: %w", err)
	}
	result, err := layout.Document(spec.Blocks, measures, opts)
	if err != nil {
		return fmt.Errorf("paginating document: %w", err)
	}

	if debugPath != "" {
		if err := writeDebug(result, debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir: baseDir,
		Fonts:   rendererFonts,
	})
	pdfBytes, err := r.Render(&renderer.Document{
		Meta: renderer.Meta{
			Title:   spec.Meta["title"],
			Author:  spec.Meta["author"],
			Subject: spec.Meta["subject"],
			Creator: spec.Meta["creator"],
		},
		Blocks:   spec.Blocks,
		Measures: measures,
		Layout:   result,
		Header:   headerBand,
		Footer:   footerBand,
	})
	if err != nil {
		return fmt.Errorf("rendering PDF: %w", err)
	}
	if err := os.WriteFile(outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("writing PDF file: %w", err)
	}
	return nil
}

// buildBand measures and lays out one header/footer band, if declared.
func buildBand(m *typeset.Measurer, spec *dsl.DocumentSpec, band *dsl.BandSpec, width float64) (*layout.HeaderFooterLayout, *renderer.Band, error) {
	if band == nil {
		return nil, nil, nil
	}
	measures, err := m.MeasureAll(band.Blocks, width)
	if err != nil {
		return nil, nil, err
	}
	hf, err := layout.HeaderFooter(band.Blocks, measures, layout.HeaderFooterConstraints{
		Width:              width,
		Height:             band.Height,
		OverflowBaseHeight: band.OverflowBase,
		PageSize:           &spec.PageSize,
		PageMargins:        &spec.Margins,
	})
	if err != nil {
		return nil, nil, err
	}
	return hf, &renderer.Band{Blocks: band.Blocks, Measures: measures, Layout: hf}, nil
}

func columnWidth(spec *dsl.DocumentSpec, contentWidth float64) float64 {
	cols := spec.Columns.Normalize()
	return (contentWidth - float64(cols.Count-1)*cols.Gutter) / float64(cols.Count)
}

func writeDebug(result *layout.Layout, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("creating debug directory: %w", err)
	}
	if err := layout.WriteDebugJSON(result, debugPath); err != nil {
		return fmt.Errorf("writing debug JSON: %w", err)
	}
	return nil
}
