package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hl-whale-alert/internal/config"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Browser renders the explorer page in headless Chrome and reads the tables
// after clicking the relevant tab.
type Browser struct {
	url          string
	ordersTab    string
	positionsTab string
	readyTimeout time.Duration
	settleDelay  time.Duration
	log          *zap.Logger

	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewBrowser starts Chrome and opens url. Any partially started browser is
// torn down when an error is returned.
func NewBrowser(cfg config.SourceConfig, url string, log *zap.Logger) (*Browser, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)
	b := &Browser{
		url:          url,
		ordersTab:    cfg.OrdersTabXPath,
		positionsTab: cfg.PositionsTabXPath,
		readyTimeout: cfg.ReadyTimeout,
		settleDelay:  cfg.SettleDelay,
		log:          log,
		tab:          tab,
		cancelTab:    cancelTab,
		cancelAlloc:  cancelAlloc,
	}
	// The first Run starts the browser; it must not carry a deadline or the
	// browser dies with it.
	if err := chromedp.Run(tab); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	navCtx, cancel := context.WithTimeout(tab, b.readyTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	log.Info("chrome initialized", zap.String("url", url))
	return b, nil
}

func (b *Browser) FetchLatestOrderRows(ctx context.Context) ([][]string, error) {
	html, err := b.render(ctx, b.ordersTab)
	if err != nil {
		return nil, err
	}
	return OrderRows(html)
}

func (b *Browser) FetchPositionRows(ctx context.Context) ([][]string, error) {
	html, err := b.render(ctx, b.positionsTab)
	if err != nil {
		return nil, err
	}
	return PositionRows(html)
}

// render reloads the page, clicks tabXPath once it is visible and returns the
// page HTML after the settle delay.
func (b *Browser) render(ctx context.Context, tabXPath string) (string, error) {
	runCtx, cancel := context.WithTimeout(b.tab, b.readyTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Reload(),
		chromedp.WaitVisible(tabXPath, chromedp.BySearch),
		chromedp.Click(tabXPath, chromedp.BySearch),
		chromedp.Sleep(b.settleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s after %s", ErrNotReady, tabXPath, b.readyTimeout)
		}
		return "", fmt.Errorf("render %s: %w", tabXPath, err)
	}
	return html, nil
}

// Close shuts the tab and the browser process down.
func (b *Browser) Close() error {
	var err error
	if b.tab != nil {
		err = chromedp.Cancel(b.tab)
	}
	if b.cancelTab != nil {
		b.cancelTab()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err == nil {
		b.log.Info("chrome closed")
	}
	return err
}
