package browser

import (
	"context"
	"fmt"
	"os"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromePage drives a headless Chrome tab via chromedp and exposes the page
// capabilities a check consumes.
type ChromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	log         *zap.SugaredLogger
}

// NewChromePage launches a headless browser tab. The browser starts eagerly
// so construction fails fast when no Chrome binary is available.
func NewChromePage(parent context.Context, log *zap.SugaredLogger) (*ChromePage, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, chromedp.DefaultExecAllocatorOptions[:]...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	log.Debugw("chrome started")
	return &ChromePage{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		log:         log,
	}, nil
}

// Navigate loads url and waits for the document body to be ready.
func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// CurrentURL returns the tab's current location.
func (p *ChromePage) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

// BodyText returns the rendered text of the document body.
func (p *ChromePage) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("extracting body text: %w", err)
	}
	return text, nil
}

// Screenshot captures the full page as PNG and writes it to path.
func (p *ChromePage) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("capturing screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}
	p.log.Debugw("screenshot saved", "path", path)
	return nil
}

// Close shuts down the tab and the browser.
func (p *ChromePage) Close() error {
	p.cancel()
	p.allocCancel()
	return nil
}

// run executes actions on the tab's own context while honoring the caller's
// cancellation. chromedp actions must run on a context derived from the tab.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if ctx != nil {
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
	}
	return chromedp.Run(tabCtx, actions...)
}
