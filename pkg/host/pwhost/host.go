// Package pwhost runs the orchestrator against a Chromium instance driven
// through Playwright.
//
// Every page of the browser context is a tab. The Go content script in
// pkg/contentscript stands in for the extension's page script: it is attached
// on injection, reports PAGE_LOADED through the message path and answers
// ANALYZE_PAGE requests from the live DOM.
package pwhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/pagepilot/pkg/contentscript"
	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/playwright-community/playwright-go"
)

// Defaults for new pages.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	eventBuffer           = 64
)

var (
	// ErrNotStarted is returned when the browser has not been launched.
	ErrNotStarted = errors.New("browser not started")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("browser host closed")

	// ErrUnknownTab is returned for tab ids that are not open.
	ErrUnknownTab = errors.New("no tab with id")
)

// Option configures a Host.
type Option func(*Host)

// WithHeadless controls whether Chromium runs without a window.
func WithHeadless(headless bool) Option {
	return func(h *Host) {
		h.headless = headless
	}
}

// WithInstall controls whether the Playwright driver and Chromium are
// installed before launch.
func WithInstall(install bool) Option {
	return func(h *Host) {
		h.install = install
	}
}

// WithAnalyzer sets the content script analyzer.
func WithAnalyzer(a *contentscript.Analyzer) Option {
	return func(h *Host) {
		if a != nil {
			h.analyzer = a
		}
	}
}

// WithLogger sets the host logger.
func WithLogger(logger *logging.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// Host implements host.Host on top of a Playwright browser context.
type Host struct {
	headless bool
	install  bool
	analyzer *contentscript.Analyzer
	logger   *logging.Logger

	mu            sync.Mutex
	pw            *playwright.Playwright
	browser       playwright.Browser
	bctx          playwright.BrowserContext
	tabs          *tabSet
	lanes         map[types.TabID]chan struct{} // closed when the tab's latest report finishes
	menus         []host.MenuItem
	notifications []host.Notification

	events    chan host.Event
	done      chan struct{}
	emitMu    sync.RWMutex
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ host.Host = (*Host)(nil)

// New creates a host. Call Start to launch the browser.
func New(opts ...Option) *Host {
	h := &Host{
		headless: true,
		install:  true,
		analyzer: contentscript.NewAnalyzer(),
		tabs:     newTabSet(),
		lanes:    make(map[types.TabID]chan struct{}),
		events:   make(chan host.Event, eventBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start installs (optionally) and launches Chromium with a single browser
// context, then reports the extension as installed.
func (h *Host) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isClosed() {
		return ErrClosed
	}
	if h.pw != nil {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if h.install {
		if err := playwright.Install(runOpts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(h.headless),
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	h.pw = pw
	h.browser = browser
	h.bctx = bctx

	// Pages opened by the page itself (window.open, target=_blank) become tabs too.
	bctx.OnPage(func(page playwright.Page) {
		h.attach(page)
	})

	h.logger.Infof("chromium launched (headless=%v)", h.headless)
	h.emit(host.Installed{})
	return nil
}

// attach registers page as a tab and wires its events. It is idempotent.
func (h *Host) attach(page playwright.Page) types.TabID {
	h.mu.Lock()
	t, created := h.tabs.add(page)
	h.mu.Unlock()
	if !created {
		return t.id
	}

	id := t.id
	h.logger.Debugf("tab %d opened", id)

	// Playwright delivers events on its dispatcher goroutine; anything that
	// issues a protocol call runs on its own goroutine. Load and close reports
	// share a per-tab lane so they are emitted in the order they happened.
	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame.ParentFrame() == nil {
			h.detachScript(id)
		}
	})
	page.OnLoad(func(p playwright.Page) {
		h.inOrder(id, func() { h.reportLoaded(id, p) })
	})
	page.OnClose(func(playwright.Page) {
		h.inOrder(id, func() { h.onClosed(id) })
	})
	return id
}

func (h *Host) detachScript(id types.TabID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.tabs.get(id); ok {
		t.scripted = false
	}
}

func (h *Host) reportLoaded(id types.TabID, page playwright.Page) {
	title, err := page.Title()
	if err != nil {
		h.logger.Debugf("title of tab %d unavailable: %v", id, err)
	}
	h.emit(host.TabUpdated{
		TabID:  id,
		Status: host.TabStatusComplete,
		URL:    page.URL(),
		Title:  title,
	})
}

func (h *Host) onClosed(id types.TabID) {
	h.mu.Lock()
	_, ok := h.tabs.remove(id)
	h.mu.Unlock()
	if ok {
		h.logger.Debugf("tab %d closed", id)
		h.emit(host.TabRemoved{TabID: id})
	}
}

// Events implements host.EventSource.
func (h *Host) Events() <-chan host.Event {
	return h.events
}

// emit delivers ev unless the host is closing.
func (h *Host) emit(ev host.Event) {
	h.emitMu.RLock()
	defer h.emitMu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *Host) isClosed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// goSafe runs fn on a tracked goroutine unless the host is closing.
func (h *Host) goSafe(fn func()) {
	h.mu.Lock()
	if h.isClosed() {
		h.mu.Unlock()
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Errorf("browser callback panicked: %v", r)
			}
		}()
		fn()
	}()
}

// inOrder runs fn on a tracked goroutine after every earlier fn queued for
// the same tab has finished.
func (h *Host) inOrder(id types.TabID, fn func()) {
	h.mu.Lock()
	if h.isClosed() {
		h.mu.Unlock()
		return
	}
	prev := h.lanes[id]
	next := make(chan struct{})
	h.lanes[id] = next
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			if h.lanes[id] == next {
				delete(h.lanes, id)
			}
			h.mu.Unlock()
			close(next)
		}()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Errorf("browser callback panicked: %v", r)
			}
		}()
		if prev != nil {
			<-prev
		}
		fn()
	}()
}

// Close shuts the browser down and closes the event channel.
func (h *Host) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		browser, pw := h.browser, h.pw
		h.browser, h.bctx, h.pw = nil, nil, nil
		h.mu.Unlock()

		if browser != nil {
			if cerr := browser.Close(); cerr != nil {
				err = fmt.Errorf("failed to close browser: %w", cerr)
			}
		}
		if pw != nil {
			if serr := pw.Stop(); serr != nil && err == nil {
				err = fmt.Errorf("failed to stop playwright: %w", serr)
			}
		}

		h.wg.Wait()

		h.emitMu.Lock()
		h.closed = true
		close(h.events)
		h.emitMu.Unlock()
	})
	return err
}

// Badge returns the badge recorded for a tab.
func (h *Host) Badge(id types.TabID) (Badge, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs.get(id)
	if !ok {
		return Badge{}, false
	}
	return t.badge, true
}

// Notifications returns the notifications shown so far.
func (h *Host) Notifications() []host.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.Notification(nil), h.notifications...)
}

// Menus returns the registered context menu items.
func (h *Host) Menus() []host.MenuItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.MenuItem(nil), h.menus...)
}

// pageLoaded builds the PAGE_LOADED message a content script sends.
func pageLoaded(analysis types.Analysis) (json.RawMessage, error) {
	raw, err := types.EncodeInbound(types.PageLoaded{Analysis: analysis})
	if err != nil {
		return nil, fmt.Errorf("failed to encode page analysis: %w", err)
	}
	return raw, nil
}
