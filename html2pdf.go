package mdexport

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-mdexport/internal/fileutil"
	"github.com/alnah/go-mdexport/internal/process"
)

// pdfRenderer prints a complete HTML document to PDF. Tests substitute a
// fake so they run without a browser.
type pdfRenderer interface {
	Print(ctx context.Context, htmlContent string, opts *pdfOptions) ([]byte, error)
	Close() error
}

var _ pdfRenderer = (*rodRenderer)(nil)

// pdfOptions is the paper geometry in inches.
type pdfOptions struct {
	PaperWidth  float64
	PaperHeight float64
	Margin      float64
}

// fontsReadyScript resolves after every @font-face has loaded.
const fontsReadyScript = `() => document.fonts.ready.then(() => true)`

// rodRenderer drives one headless Chrome through go-rod. The browser
// starts on the first Print and serves every later one; mu serializes
// pages.
type rodRenderer struct {
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

func newRodRenderer(timeout time.Duration) *rodRenderer {
	return &rodRenderer{timeout: timeout}
}

// chromeLauncher honours ROD_BROWSER_BIN and drops the sandbox when asked
// to, in CI, or with a system browser.
func chromeLauncher() *launcher.Launcher {
	l := launcher.New()
	bin := os.Getenv("ROD_BROWSER_BIN")
	if bin != "" {
		l = l.Bin(bin)
	}
	noSandbox := os.Getenv("ROD_NO_SANDBOX") == "1" || os.Getenv("CI") == "true" || bin != ""
	return l.NoSandbox(noSandbox)
}

func (r *rodRenderer) start() error {
	if r.browser != nil {
		return nil
	}

	l := chromeLauncher()
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		stopChrome(l)
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.launcher, r.browser = l, browser
	return nil
}

// stopChrome kills the whole process group, since Chrome forks helpers
// that outlive the main process, then removes the profile directory.
func stopChrome(l *launcher.Launcher) {
	if pid := l.PID(); pid > 0 {
		process.KillProcessGroup(pid)
	}
	l.Kill()
	l.Cleanup()
}

// Close shuts the browser down. It is safe to call before any Print.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
	}
	if r.launcher != nil {
		stopChrome(r.launcher)
	}
	r.launcher, r.browser = nil, nil
	return err
}

// Print stages htmlContent as a file so relative and data URLs resolve
// the way they do when the HTML export is opened locally.
func (r *rodRenderer) Print(ctx context.Context, htmlContent string, opts *pdfOptions) ([]byte, error) {
	path, cleanup, err := fileutil.WriteTemp([]byte(htmlContent), "html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	defer cleanup()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderFile(ctx, path, opts)
}

// pageTimeout is the time left before ctx's deadline, or the configured
// timeout when ctx has none.
func (r *rodRenderer) pageTimeout(ctx context.Context) (time.Duration, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return r.timeout, nil
	}
	left := time.Until(deadline)
	if left <= 0 {
		return 0, context.DeadlineExceeded
	}
	return left, nil
}

func (r *rodRenderer) renderFile(ctx context.Context, path string, opts *pdfOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout, err := r.pageTimeout(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.start(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + path})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()
	page = page.Context(ctx).Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if _, err := page.Eval(fontsReadyScript); err != nil {
		return nil, fmt.Errorf("%w: fonts: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := page.PDF(buildPDFOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: reading stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// buildPDFOptions maps opts to Chrome's print parameters. Missing paper
// dimensions fall back to letter portrait and a zero margin to the
// default one. Paper size always comes from the request, never @page.
func buildPDFOptions(opts *pdfOptions) *proto.PagePrintToPDF {
	width, height, margin := resolvePageDimensions(nil)
	if opts != nil && opts.PaperWidth > 0 && opts.PaperHeight > 0 {
		width, height = opts.PaperWidth, opts.PaperHeight
	}
	if opts != nil && opts.Margin > 0 {
		margin = opts.Margin
	}

	inches := func(v float64) *float64 { return &v }
	return &proto.PagePrintToPDF{
		PaperWidth:      inches(width),
		PaperHeight:     inches(height),
		MarginTop:       inches(margin),
		MarginBottom:    inches(margin),
		MarginLeft:      inches(margin),
		MarginRight:     inches(margin),
		PrintBackground: true,
	}
}
