package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// messageBridge forwards same-origin window messages to the runtime binding.
// The binding is looked up per message since it may be installed after this
// script runs.
var messageBridge = fmt.Sprintf(`(() => {
	window.addEventListener('message', (event) => {
		if (event.origin !== window.location.origin) return;
		const send = window[%q];
		if (typeof send !== 'function') return;
		try {
			send(typeof event.data === 'string' ? event.data : JSON.stringify(event.data));
		} catch (e) {}
	});
})();`, BindingName)

// ChromeBackend implements Backend using chromedp. Each Show or Reload gets a
// new tab in its own browser context, so no cookies or storage survive
// between sessions.
type ChromeBackend struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu        sync.Mutex
	tabCtx    context.Context
	tabCancel context.CancelFunc

	state SurfaceState
	// redirected is set once the current tab's redirect was captured
	redirected atomic.Bool

	emitMu sync.RWMutex
	closed bool
	events chan Event

	redirectURL string
	headless    bool
	log         *zap.Logger
}

// NewChromeBackend creates a backend that captures navigations to redirectURL
func NewChromeBackend(redirectURL string, headless bool, log *zap.Logger) *ChromeBackend {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChromeBackend{
		events:      make(chan Event, EventBufferSize),
		redirectURL: redirectURL,
		headless:    headless,
		log:         log.Named("browser"),
	}
}

// Start launches Chrome with caching and shared storage turned off
func (b *ChromeBackend) Start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("incognito", true),
		chromedp.Flag("disable-application-cache", true),
		chromedp.Flag("disk-cache-size", "1"),
		chromedp.WindowSize(480, 800),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(b.log.Sugar().Debugf))

	// first Run starts the browser process
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	b.mu.Lock()
	b.allocCancel = allocCancel
	b.browserCtx = ctx
	b.browserCancel = cancel
	b.mu.Unlock()
	return nil
}

// Show opens url in a new isolated session, replacing any current one
func (b *ChromeBackend) Show(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.Show(url)
	if err := b.remountLocked(); err != nil {
		b.state.Hide()
		return err
	}
	return nil
}

// Reload throws the current session away and reopens the last shown url
func (b *ChromeBackend) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.Visible() {
		return errors.New("login page is not showing")
	}
	return b.remountLocked()
}

// StopLoading stops the page load in the current tab
func (b *ChromeBackend) StopLoading() error {
	b.mu.Lock()
	ctx := b.tabCtx
	b.mu.Unlock()

	if ctx == nil {
		return nil
	}
	if err := chromedp.Run(ctx, page.StopLoading()); err != nil {
		return fmt.Errorf("failed to stop loading: %w", err)
	}
	return nil
}

// Hide closes the login tab
func (b *ChromeBackend) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closeTabLocked()
	b.state.Hide()
}

// Visible returns whether the login tab is open
func (b *ChromeBackend) Visible() bool {
	return b.state.Visible()
}

// Key returns the session remount counter
func (b *ChromeBackend) Key() int {
	return b.state.Key()
}

// Stop closes the browser
func (b *ChromeBackend) Stop() {
	b.Hide()

	b.mu.Lock()
	if b.browserCancel != nil {
		b.browserCancel()
		b.browserCancel = nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	b.browserCtx = nil
	b.mu.Unlock()

	b.emitMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	b.emitMu.Unlock()
}

// Events returns the event channel. It's closed by Stop.
func (b *ChromeBackend) Events() <-chan Event {
	return b.events
}

// remountLocked replaces the current tab with a fresh one and navigates it.
// b.mu must be held.
func (b *ChromeBackend) remountLocked() error {
	if b.browserCtx == nil {
		return errors.New("browser not started")
	}
	b.closeTabLocked()

	ctx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		b.handleEvent(ctx, ev)
	})

	err := chromedp.Run(ctx,
		network.Enable(),
		network.SetCacheDisabled(true),
		runtime.AddBinding(BindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(messageBridge).Do(ctx)
			return err
		}),
		// redirect requests are paused so the redirect host is never loaded
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{
			{URLPattern: fetchPattern(b.redirectURL), RequestStage: fetch.RequestStageRequest},
		}),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to prepare login tab: %w", err)
	}

	b.tabCtx = ctx
	b.tabCancel = cancel
	b.redirected.Store(false)
	key := b.state.Remount()
	url := b.state.URL()

	go func() {
		if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
			b.navigateFailed(ctx, key, err)
		}
	}()
	return nil
}

// navigateFailed reports a failed page load on the current tab. Tabs that were
// closed or remounted and loads aborted after the redirect was captured are
// only logged.
func (b *ChromeBackend) navigateFailed(ctx context.Context, key int, err error) {
	if ctx.Err() != nil || b.redirected.Load() || b.state.Key() != key {
		b.log.Debug("navigate returned", zap.Int("key", key), zap.Error(err))
		return
	}
	b.log.Warn("failed to load login page", zap.Int("key", key), zap.Error(err))
	b.emit(Event{Type: EventError, Message: fmt.Sprintf("failed to load login page: %v", err)})
}

func (b *ChromeBackend) closeTabLocked() {
	if b.tabCancel != nil {
		b.tabCancel()
	}
	b.tabCtx = nil
	b.tabCancel = nil
}

// handleEvent turns CDP events into backend events. It runs on chromedp's
// event goroutine, so anything that talks back to the browser goes in its
// own goroutine.
func (b *ChromeBackend) handleEvent(ctx context.Context, ev interface{}) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		go b.processRequest(ctx, e)
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			b.emit(Event{Type: EventNavigation, URL: e.Frame.URL + e.Frame.URLFragment})
		}
	case *page.EventNavigatedWithinDocument:
		b.emit(Event{Type: EventNavigation, URL: e.URL})
	case *page.EventLoadEventFired:
		go b.emitLocation(ctx)
	case *runtime.EventBindingCalled:
		if e.Name == BindingName {
			b.emit(Event{Type: EventMessage, Payload: e.Payload})
		}
	}
}

// processRequest reports a paused redirect as a navigation and aborts it.
// Anything else that matched the pattern is let through.
func (b *ChromeBackend) processRequest(ctx context.Context, e *fetch.EventRequestPaused) {
	if e.Request == nil {
		return
	}
	url := e.Request.URL + e.Request.URLFragment

	if e.ResourceType == network.ResourceTypeDocument && strings.HasPrefix(url, b.redirectURL) {
		b.redirected.Store(true)
		b.emit(Event{Type: EventNavigation, URL: url})
		if err := chromedp.Run(ctx, fetch.FailRequest(e.RequestID, network.ErrorReasonAborted)); err != nil {
			b.log.Debug("failed to abort redirect", zap.Error(err))
		}
		return
	}

	if err := chromedp.Run(ctx, fetch.ContinueRequest(e.RequestID)); err != nil {
		b.log.Debug("failed to continue request", zap.Error(err))
	}
}

// emitLocation reports the loaded page's url along with its title
func (b *ChromeBackend) emitLocation(ctx context.Context) {
	var title, location string
	if err := chromedp.Run(ctx, chromedp.Title(&title), chromedp.Location(&location)); err != nil {
		b.log.Debug("could not read page location", zap.Error(err))
		return
	}
	b.emit(Event{Type: EventNavigation, URL: location, Title: title})
}

func (b *ChromeBackend) emit(ev Event) {
	b.emitMu.RLock()
	defer b.emitMu.RUnlock()

	if b.closed {
		return
	}
	select {
	case b.events <- ev:
	default:
		b.log.Warn("event buffer full, dropping event", zap.Int("type", int(ev.Type)), zap.String("url", ev.URL))
	}
}

// fetchPattern turns a url prefix into a Fetch.RequestPattern glob
func fetchPattern(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(prefix) + "*"
}
