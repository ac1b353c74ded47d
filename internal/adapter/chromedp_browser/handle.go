package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/user/page-insight-service/internal/repository"
	"github.com/user/page-insight-service/pkg/useragent"
	"go.uber.org/zap"
)

type browserHandle struct {
	sessionID     string
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	userAgents    *useragent.Rotator
	logger        *zap.Logger

	mu           sync.Mutex
	disconnected bool
}

var _ repository.BrowserHandle = (*browserHandle)(nil)

func (h *browserHandle) SessionID() string {
	return h.sessionID
}

// NewPage opens a new tab in the remote browser.
func (h *browserHandle) NewPage(ctx context.Context) (repository.PageView, error) {
	if !h.IsConnected() {
		return nil, fmt.Errorf("session %s is not connected", h.sessionID)
	}

	pageCtx, pageCancel := chromedp.NewContext(h.browserCtx)

	// Creating the target happens on the first Run, which must use pageCtx.
	stop := context.AfterFunc(ctx, pageCancel)
	err := chromedp.Run(pageCtx, emulation.SetUserAgentOverride(h.userAgents.Next()))
	stop()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		pageCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	return &pageView{ctx: pageCtx, cancel: pageCancel}, nil
}

func (h *browserHandle) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.disconnected && h.browserCtx.Err() == nil
}

// Disconnect closes the handle's own tab and the websocket. It never sends
// Browser.close, so the remote browser keeps running and becomes unclaimed.
func (h *browserHandle) Disconnect() error {
	h.mu.Lock()
	if h.disconnected {
		h.mu.Unlock()
		return nil
	}
	h.disconnected = true
	h.mu.Unlock()

	err := chromedp.Cancel(h.browserCtx)
	h.allocCancel()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		h.logger.Debug("tab close during disconnect failed", zap.Error(err))
		return fmt.Errorf("failed to close session tab: %w", err)
	}
	return nil
}

const outerHTMLExpression = "document.documentElement.outerHTML"

type pageView struct {
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

var _ repository.PageView = (*pageView)(nil)

// Navigate loads url and waits for DOMContentLoaded rather than the full load event.
func (p *pageView) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		loaded := make(chan struct{})
		var once sync.Once
		lctx, cancel := context.WithCancel(ctx)
		defer cancel()
		chromedp.ListenTarget(lctx, func(ev any) {
			if _, ok := ev.(*page.EventDomContentEventFired); ok {
				once.Do(func() { close(loaded) })
			}
		})

		_, _, errorText, _, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigation failed: %s", errorText)
		}

		select {
		case <-loaded:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))
}

// HTML returns the outer HTML of the document element as rendered now.
func (p *pageView) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.Evaluate(outerHTMLExpression, &html)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *pageView) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = chromedp.Cancel(p.ctx)
		p.cancel()
		if errors.Is(p.closeErr, context.Canceled) {
			p.closeErr = nil
		}
	})
	return p.closeErr
}

// run executes actions on the tab while honoring ctx. The tab is already
// allocated, so a derived context only bounds this call.
func (p *pageView) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
