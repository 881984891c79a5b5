package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"toolshed/internal/domain"
)

// BrowserFetcher renders pages in headless Chromium. It suits sites that
// build their head tags in JavaScript or block plain HTTP clients.
// The browser is launched on first use and shared across fetches.
type BrowserFetcher struct {
	binPath string
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewBrowserFetcher creates a fetcher. binPath may be empty to let rod find or download Chromium.
func NewBrowserFetcher(binPath string, timeout time.Duration, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		binPath: binPath,
		timeout: timeout,
		logger:  logger,
	}
}

// domReadTimeout bounds reading the DOM after navigation, which may run
// past the navigation deadline when the page never finished loading
const domReadTimeout = 5 * time.Second

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) domain.FetchResult {
	browser, err := f.connect()
	if err != nil {
		f.logger.Error("Failed to start browser", "error", err)
		return domain.FetchFailed(fmt.Sprintf("browser unavailable: %v", err))
	}

	navCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	page, err := stealth.Page(browser.Context(navCtx))
	if err != nil {
		return domain.FetchFailed(describeFetchError(fmt.Errorf("failed to open tab: %w", err), f.timeout))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), domReadTimeout)
		defer cancel()
		if err := page.Context(closeCtx).Close(); err != nil {
			f.logger.Debug("Failed to close tab", "error", err)
		}
	}()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: browserUserAgent}); err != nil {
		f.logger.Debug("Failed to override user agent", "error", err)
	}
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		f.logger.Debug("Failed to enable network events", "error", err)
	}

	doc := &documentResponse{}
	mainFrame := page.FrameID
	waitResponse := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != mainFrame {
			return false
		}
		doc.set(e.Response.Status, e.Response.StatusText)
		return true
	})
	go waitResponse()

	start := time.Now()
	if err := page.Navigate(pageURL); err != nil {
		return domain.FetchFailed(describeFetchError(err, f.timeout))
	}

	// A page that never finishes loading still has a usable head
	if err := page.WaitLoad(); err != nil {
		f.logger.Debug("Wait load did not complete", "url", pageURL, "error", err)
	}

	if reason, failed := doc.failure(); failed {
		f.logger.Debug("Page returned non-success status", "url", pageURL, "reason", reason)
		return domain.FetchFailed(reason)
	}

	readCtx, cancelRead := context.WithTimeout(ctx, domReadTimeout)
	defer cancelRead()

	html, err := page.Context(readCtx).HTML()
	if err != nil {
		return domain.FetchFailed(fmt.Sprintf("failed to read DOM: %v", err))
	}

	f.logger.Debug("Rendered page", "url", pageURL, "bytes", len(html), "elapsed", time.Since(start))
	return domain.FetchOK(html)
}

// documentResponse records the status of the main document. The event
// arrives on rod's event goroutine.
type documentResponse struct {
	mu         sync.Mutex
	seen       bool
	status     int
	statusText string
}

func (d *documentResponse) set(status int, statusText string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = true
	d.status = status
	d.statusText = statusText
}

// failure reports a non-2xx document status. A page whose response was
// never observed is given the benefit of the doubt.
func (d *documentResponse) failure() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seen || (d.status >= 200 && d.status <= 299) {
		return "", false
	}
	if d.statusText == "" {
		return fmt.Sprintf("HTTP error: %d", d.status), true
	}
	return fmt.Sprintf("HTTP error: %d %s", d.status, d.statusText), true
}

func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-extensions").
		Set("disable-plugins")
	if f.binPath != "" {
		l = l.Bin(f.binPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	f.launcher = l
	f.browser = browser
	return browser, nil
}

// Close shuts the shared browser down
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}

	err := f.browser.Close()
	f.launcher.Cleanup()
	f.browser = nil
	f.launcher = nil
	return err
}
