package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/procurebot/backend/internal/domain"
)

// ErrRender indicates the headless browser could not be started or failed
// mid-render. No partial document is ever returned.
var ErrRender = errors.New("pdf render failed")

// Exporter renders a negotiation into PDF bytes.
type Exporter interface {
	Render(ctx context.Context, n *domain.Negotiation) ([]byte, error)
}

var _ Exporter = (*Generator)(nil)

// Generator renders documents through a headless Chromium instance. Each
// Render launches a fresh browser; export is an infrequent operation and a
// shared long-lived browser would just be one more thing to supervise.
type Generator struct {
	timeout time.Duration
}

// NewGenerator creates a Generator with the given per-render timeout.
func NewGenerator(timeout time.Duration) *Generator {
	return &Generator{timeout: timeout}
}

// Render produces the PDF for a negotiation.
func (g *Generator) Render(ctx context.Context, n *domain.Negotiation) ([]byte, error) {
	html, err := RenderHTML(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	renderCtx, cancelRender := context.WithTimeout(browserCtx, g.timeout)
	defer cancelRender()

	var pdf []byte
	err = chromedp.Run(renderCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	return pdf, nil
}
