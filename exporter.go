package mdexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alnah/go-mdexport/internal/docmodel"
	"github.com/alnah/go-mdexport/internal/fonts"
	"github.com/alnah/go-mdexport/internal/media"
	"github.com/alnah/go-mdexport/internal/pipeline"
)

// Compile-time interface implementation checks.
var (
	_ pipeline.MarkdownPreprocessor = (*pipeline.CommonMarkPreprocessor)(nil)
	_ pipeline.CSSInjector          = (*pipeline.CSSInjection)(nil)
	_ docmodel.Lookup               = (*media.Table)(nil)
)

// State is a stage of one export.
type State int

// Export states. Every export moves forward through them in order and ends
// in Succeeded or Failed.
const (
	StateReceived State = iota
	StateResolving
	StateBuilding
	StateRendering
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateReceived:  "received",
	StateResolving: "resolving",
	StateBuilding:  "building",
	StateRendering: "rendering",
	StateSucceeded: "succeeded",
	StateFailed:    "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Transition is one state change. Err is set when To is StateFailed.
type Transition struct {
	From State
	To   State
	Err  *Error
}

// StateObserver receives state transitions.
type StateObserver func(Transition)

// Exporter turns markdown documents into PDF, DOCX or HTML.
// Create with NewExporter, call Export any number of times, and Close when
// done. Export is safe for concurrent use; PDF printing is serialized per
// Exporter, use an ExporterPool for parallel PDF output.
type Exporter struct {
	cfg          exporterConfig
	logger       *slog.Logger
	observer     StateObserver
	loader       AssetLoader
	assets       *exporterAssets
	preprocessor pipeline.MarkdownPreprocessor
	cssInjector  pipeline.CSSInjector
	highlighter  *pipeline.Highlighter
	shell        *pipeline.DocumentShell
	pdf          pdfRenderer

	fontsOnce sync.Once
	fontSet   *fonts.Set
	fontErr   error
}

// NewExporter creates an Exporter with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithRoot, WithPageSettings).
// Returns error if the defaults are invalid or assets cannot be loaded.
func NewExporter(opts ...Option) (*Exporter, error) {
	e := &Exporter{
		cfg:          exporterConfig{timeout: defaultTimeout, highlightStyle: defaultHighlightStyle},
		preprocessor: &pipeline.CommonMarkPreprocessor{},
		cssInjector:  &pipeline.CSSInjection{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if err := e.cfg.page.Validate(); err != nil {
		return nil, err
	}
	if _, err := media.ValidateDPI(e.cfg.dpi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDPI, err)
	}

	if e.loader == nil {
		loader, err := NewAssetLoader(e.cfg.assetPath)
		if err != nil {
			return nil, err
		}
		e.loader = loader
	}
	loaded, err := loadExporterAssets(e.loader)
	if err != nil {
		return nil, fmt.Errorf("loading assets: %w", err)
	}
	e.assets = loaded

	e.shell, err = pipeline.NewDocumentShell(loaded.shell)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	}
	e.highlighter = pipeline.NewHighlighter(e.cfg.highlightStyle)

	// Create PDF renderer if not injected (e.g., by tests)
	if e.pdf == nil {
		e.pdf = newRodRenderer(e.cfg.timeout)
	}

	return e, nil
}

// Close releases resources (headless Chrome browser).
func (e *Exporter) Close() error {
	if e.pdf != nil {
		return e.pdf.Close()
	}
	return nil
}

// Export runs one request through the export states and returns the
// encoded document. Failures are returned as *Error; KindOf classifies
// them. Images and diagrams that cannot be embedded never fail an export:
// they become placeholders listed in Result.Warnings.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (e *Exporter) Export(ctx context.Context, req Request) (result *Result, err error) {
	run := &exportRun{exporter: e, req: req, state: StateReceived, start: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = run.fail(fmt.Errorf("%w: internal error: %v", ErrRender, r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.timeout)
	defer cancel()

	run.advance(StateResolving)
	resolved, err := e.resolve(ctx, req)
	if err != nil {
		return nil, run.fail(err)
	}

	run.advance(StateBuilding)
	doc, warnings, err := e.build(req, resolved)
	if err != nil {
		return nil, run.fail(err)
	}

	run.advance(StateRendering)
	data, renderWarnings, err := e.render(ctx, req, doc, resolved.table)
	if err != nil {
		return nil, run.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, run.fail(err)
	}

	result = &Result{
		Data:     data,
		MIMEType: req.Format.MIMEType(),
		Filename: SuggestedFilename(req.Path, req.Format),
		Warnings: append(warnings, renderWarnings...),
	}
	run.advance(StateSucceeded)
	e.logger.Info("export finished",
		"path", req.Path,
		"format", string(req.Format),
		"bytes", len(data),
		"warnings", len(result.Warnings),
		"duration", time.Since(run.start))
	return result, nil
}

// resolvedSource is the output of the resolving state.
type resolvedSource struct {
	src    *source
	parsed *docmodel.Source
	table  *media.Table
	title  string // front matter title
}

// resolve validates the request, reads the document and loads its images.
func (e *Exporter) resolve(ctx context.Context, req Request) (*resolvedSource, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	src, err := openSource(req.Path, e.cfg.root)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			e.logger.Warn("document outside permitted root",
				"event", "security",
				"path", req.Path,
				"root", e.cfg.root)
		}
		return nil, err
	}

	prepared := e.preprocessor.Preprocess(ctx, src.markdown)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parsed := docmodel.Parse(prepared.Markdown)

	resolver := &media.Resolver{Root: src.root, Workers: e.cfg.workers, Logger: e.logger}
	table, err := resolver.ResolveRefs(ctx, src.dir, parsed.ImageRefs())
	if err != nil {
		return nil, err
	}
	return &resolvedSource{src: src, parsed: parsed, table: table, title: prepared.FrontMatter.Title}, nil
}

// build produces the document model and binds captured diagrams. The
// returned warnings describe every placeholder in the model, plus a
// mismatch between captures and diagram blocks. A document with no title
// of its own is named after its file.
func (e *Exporter) build(req Request, r *resolvedSource) (*docmodel.Document, []string, error) {
	doc := r.parsed.Build(r.table)
	doc.Name = r.title
	if doc.Title() == "" {
		doc.Name = fileStem(req.Path)
	}

	var warnings []string
	if fences := r.parsed.DiagramCount(); len(req.Diagrams) > 0 && fences != len(req.Diagrams) {
		e.logger.Warn("diagram captures do not match diagram blocks",
			"path", req.Path,
			"captures", len(req.Diagrams),
			"blocks", fences)
		warnings = append(warnings, fmt.Sprintf("%d diagram captures for %d diagram blocks", len(req.Diagrams), fences))
	}

	dpi := req.DPI
	if dpi == 0 {
		dpi = e.cfg.dpi
	}
	descriptors := make([]media.Descriptor, len(req.Diagrams))
	for i, d := range req.Diagrams {
		descriptors[i] = d.descriptor()
	}
	bound, err := media.BindDiagrams(doc, r.table, descriptors, dpi)
	if err != nil {
		return nil, nil, err
	}
	if err := doc.Validate(r.table.Has); err != nil {
		return nil, nil, err
	}

	placeholders := 0
	for _, blk := range doc.Blocks {
		if p, ok := blk.(*docmodel.Placeholder); ok {
			warnings = append(warnings, p.Message)
			placeholders++
		}
	}
	e.logger.Debug("document built",
		"path", req.Path,
		"blocks", len(doc.Blocks),
		"images", r.table.Len(),
		"diagrams", bound,
		"placeholders", placeholders)
	return doc, warnings, nil
}

// render encodes doc in the requested format.
func (e *Exporter) render(ctx context.Context, req Request, doc *docmodel.Document, table *media.Table) ([]byte, []string, error) {
	page := req.Page
	if page == nil {
		page = e.cfg.page
	}

	switch req.Format {
	case FormatHTML:
		return e.renderHTML(ctx, doc, table)
	case FormatPDF:
		return e.renderPDF(ctx, doc, table, page)
	case FormatDOCX:
		return e.renderDOCX(ctx, doc, table, page)
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
}

// exportRun tracks the state of one Export call.
type exportRun struct {
	exporter *Exporter
	req      Request
	state    State
	start    time.Time
}

func (r *exportRun) advance(to State) {
	t := Transition{From: r.state, To: to}
	r.state = to
	r.notify(t)
}

// fail moves the run to StateFailed and returns err as a classified *Error.
// A failure after a terminal state is returned without a transition.
func (r *exportRun) fail(err error) *Error {
	exportErr := toExportError(err, r.exporter.cfg.timeout)
	if r.state.Terminal() {
		return exportErr
	}
	t := Transition{From: r.state, To: StateFailed, Err: exportErr}
	r.state = StateFailed
	r.notify(t)

	r.exporter.logger.Warn("export failed",
		"path", r.req.Path,
		"format", string(r.req.Format),
		"stage", t.From.String(),
		"kind", exportErr.Kind.String(),
		"error", exportErr.Message)
	return exportErr
}

func (r *exportRun) notify(t Transition) {
	if r.exporter.observer != nil {
		r.exporter.observer(t)
	}
}

// toExportError classifies err. Context errors are render failures.
func toExportError(err error, timeout time.Duration) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: RenderFailure, Message: fmt.Sprintf("export timed out after %s", timeout), Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: RenderFailure, Message: "export cancelled", Err: err}
	}
	return asError(translateInternal(err))
}
