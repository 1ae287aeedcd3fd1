package mdexport

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/alnah/go-mdexport/internal/docmodel"
	"github.com/alnah/go-mdexport/internal/docx"
	"github.com/alnah/go-mdexport/internal/fonts"
	"github.com/alnah/go-mdexport/internal/media"
	"github.com/alnah/go-mdexport/internal/pipeline"
	"github.com/alnah/go-mdexport/internal/sizing"
)

// renderHTML produces a standalone document with vector-preferred images
// at their natural size.
func (e *Exporter) renderHTML(ctx context.Context, doc *docmodel.Document, table *media.Table) ([]byte, []string, error) {
	body, err := pipeline.NewBodyRenderer(pipeline.RenderOptions{
		Profile:     pipeline.ProfileStandard,
		Prefer:      media.PreferVector,
		Box:         sizing.Box{},
		Highlighter: e.highlighter,
	}).Render(ctx, doc, table)
	if err != nil {
		return nil, nil, renderError(err)
	}

	page, warnings, err := e.document(ctx, body, pipeline.ProfileStandard, e.assets.htmlCSS+"\n"+e.highlighter.CSS())
	if err != nil {
		return nil, nil, err
	}
	return []byte(page), warnings, nil
}

// renderPDF prints a print-profile document with embedded fonts and
// raster-preferred images fitted to the page content box.
func (e *Exporter) renderPDF(ctx context.Context, doc *docmodel.Document, table *media.Table, page *PageSettings) ([]byte, []string, error) {
	set, err := e.loadFonts()
	if err != nil {
		return nil, nil, err
	}
	wrapper := set.NewWrapper()

	width, height, margin := resolvePageDimensions(page)
	body, err := pipeline.NewBodyRenderer(pipeline.RenderOptions{
		Profile:     pipeline.ProfilePrint,
		Prefer:      media.PreferRaster,
		Box:         sizing.ContentBox(width, height, margin),
		Highlighter: e.highlighter,
		Text:        wrapper.HTML,
	}).Render(ctx, doc, table)
	if err != nil {
		return nil, nil, renderError(err)
	}

	coverage := wrapper.Check()
	if coverage != nil && e.cfg.requireCoverage {
		return nil, nil, translateInternal(coverage)
	}

	htmlContent, warnings, err := e.document(ctx, body, pipeline.ProfilePrint, e.assets.printCSS+"\n"+e.highlighter.CSS())
	if err != nil {
		return nil, nil, err
	}
	if coverage != nil {
		e.logger.Warn("characters outside embedded fonts", "count", len(wrapper.Uncovered()))
		warnings = append(warnings, coverage.Error())
	}
	htmlContent = e.cssInjector.InjectCSS(ctx, htmlContent, set.FontFaceCSS())

	data, err := e.pdf.Print(ctx, htmlContent, &pdfOptions{PaperWidth: width, PaperHeight: height, Margin: margin})
	if err != nil {
		return nil, nil, err
	}
	return normalizePDF(data), warnings, nil
}

// renderDOCX writes the document model directly as OOXML.
func (e *Exporter) renderDOCX(ctx context.Context, doc *docmodel.Document, table *media.Table, page *PageSettings) ([]byte, []string, error) {
	width, height, _ := resolvePageDimensions(page)
	out, err := docx.NewWriter(docx.Options{PageWidth: width, PageHeight: height}).Write(ctx, doc, table)
	if err != nil {
		return nil, nil, renderError(err)
	}
	return out.Data, out.Warnings, nil
}

// document wraps body in the shell and makes it self-contained.
func (e *Exporter) document(ctx context.Context, body *pipeline.Body, profile pipeline.Profile, css string) (string, []string, error) {
	page, err := e.shell.Render(ctx, pipeline.ShellData{
		Title:   body.Title,
		Profile: profile,
		CSS:     template.CSS(css), // #nosec G203 -- stylesheets come from the asset loader
		Body:    template.HTML(body.HTML),
	})
	if err != nil {
		return "", nil, renderError(err)
	}

	page, replaced, err := pipeline.EnsureSelfContained(page)
	if err != nil {
		return "", nil, renderError(err)
	}
	warnings := body.Warnings
	if replaced > 0 {
		warnings = append(warnings, fmt.Sprintf("%d non-embedded image(s) replaced by placeholders", replaced))
	}
	return page, warnings, nil
}

// loadFonts parses the embedded and fallback fonts once per Exporter.
func (e *Exporter) loadFonts() (*fonts.Set, error) {
	e.fontsOnce.Do(func() {
		e.fontSet, e.fontErr = fonts.Load(e.cfg.fallbackFonts)
		if e.fontErr != nil {
			e.fontErr = translateInternal(e.fontErr)
		}
	})
	return e.fontSet, e.fontErr
}

// renderError wraps renderer failures. Context errors pass through so
// they are reported as timeouts or cancellations.
func renderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrRender, err)
}
