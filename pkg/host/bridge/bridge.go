// Package bridge connects the orchestrator to a real browser extension.
//
// A thin shim running in the extension's service worker dials the /ws
// endpoint, forwards chrome.* events as frames and executes the commands the
// daemon sends back. The bridge implements host.Host on top of that link.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/logging"
	"github.com/entrhq/pagepilot/pkg/session"
	"github.com/entrhq/pagepilot/pkg/types"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultPingInterval   = 20 * time.Second
	eventBuffer           = 256
)

// Status is served by GET /status.
type Status struct {
	Connected bool `json:"connected"`
	session.Stats
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithRequestTimeout bounds how long a command waits for the shim.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.requestTimeout = d
		}
	}
}

// WithPingInterval sets the keep-alive interval.
func WithPingInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.pingInterval = d
		}
	}
}

// WithStats supplies the registry summary for /status.
func WithStats(fn func() session.Stats) Option {
	return func(b *Bridge) {
		b.stats = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// Bridge is a host.Host backed by a WebSocket link to the extension.
type Bridge struct {
	mu     sync.RWMutex
	link   *link
	closed bool

	requestTimeout time.Duration
	pingInterval   time.Duration
	stats          func() session.Stats
	logger         *logging.Logger

	upgrader websocket.Upgrader
	events   chan host.Event
	done     chan struct{}
	readers  sync.WaitGroup
}

var _ host.Host = (*Bridge)(nil)

// New creates a bridge. Call Handler or ListenAndServe to accept the shim.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		requestTimeout: defaultRequestTimeout,
		pingInterval:   defaultPingInterval,
		events:         make(chan host.Event, eventBuffer),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.upgrader = websocket.Upgrader{CheckOrigin: allowedOrigin}
	return b
}

// Handler returns the HTTP routes of the bridge.
func (b *Bridge) Handler() http.Handler {
	router := chi.NewRouter()
	router.Get("/healthz", b.handleHealth)
	router.Get("/status", b.handleStatus)
	router.Get("/ws", b.handleWS)
	return router
}

// ListenAndServe serves the bridge on addr until ctx is cancelled.
// The bridge is closed when it returns.
func (b *Bridge) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return b.Serve(ctx, listener)
}

// Serve serves the bridge on listener until ctx is cancelled.
func (b *Bridge) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	b.logger.Infof("bridge listening on %s", listener.Addr())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			b.Close()
			return fmt.Errorf("bridge server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	b.Close()
	return err
}

// Close drops the extension link, rejects pending commands and closes the
// event channel. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	current := b.link
	b.link = nil
	close(b.done)
	b.mu.Unlock()

	if current != nil {
		current.shutdown(ErrClosed)
	}
	b.readers.Wait()
	close(b.events)
	return nil
}

// Connected reports whether an extension is attached.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.link != nil
}

// Events implements host.EventSource.
func (b *Bridge) Events() <-chan host.Event {
	return b.events
}

func (b *Bridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (b *Bridge) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{Connected: b.Connected()}
	if b.stats != nil {
		status.Stats = b.stats()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		http.Error(w, "bridge closed", http.StatusServiceUnavailable)
		return
	}

	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warnf("extension upgrade failed: %v", err)
		return
	}

	l := newLink(uuid.NewString(), ws, b.logger)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ws.Close()
		return
	}
	previous := b.link
	b.link = l
	b.readers.Add(1)
	b.mu.Unlock()

	if previous != nil {
		// A restarted service worker reconnects before the old socket times out.
		b.logger.Infof("extension link %s replaced by %s", previous.id, l.id)
		previous.shutdown(ErrDisconnected)
	}
	b.logger.Infof("extension connected from %s (link %s)", r.RemoteAddr, l.id)
	// The request goroutine owns the read loop, as the relay handler did.
	defer b.readers.Done()

	// Menus registered before the shim attached were lost; ask for them again.
	b.emit(host.Installed{})
	b.serveLink(l)
}

// serveLink reads frames until the socket fails, then detaches the link.
func (b *Bridge) serveLink(l *link) {
	stopPing := make(chan struct{})
	go b.keepAlive(l, stopPing)

	defer func() {
		close(stopPing)
		b.mu.Lock()
		if b.link == l {
			b.link = nil
		}
		b.mu.Unlock()
		l.shutdown(ErrDisconnected)
		b.logger.Infof("extension link %s disconnected", l.id)
	}()

	for {
		l.ws.SetReadDeadline(time.Now().Add(3 * b.pingInterval))
		var f Frame
		if err := l.ws.ReadJSON(&f); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				b.logger.Warnf("dropping malformed frame on link %s: %v", l.id, err)
				continue
			}
			b.logger.Debugf("extension read ended on link %s: %v", l.id, err)
			return
		}
		b.handleFrame(l, f)
	}
}

func (b *Bridge) keepAlive(l *link, stop <-chan struct{}) {
	ticker := time.NewTicker(b.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := l.write(Frame{Method: MethodPing}); err != nil {
				b.logger.Debugf("ping on link %s failed: %v", l.id, err)
				return
			}
		}
	}
}

func (b *Bridge) handleFrame(l *link, f Frame) {
	if f.isResponse() {
		l.resolve(f)
		return
	}

	switch f.Method {
	case EventPong, "":
		return
	case EventMessage:
		b.handleMessage(l, f)
		return
	}

	ev, err := decodeEvent(f)
	if err != nil {
		b.logger.Warnf("%v", err)
		return
	}
	if ev == nil {
		b.logger.Debugf("ignoring frame %q", f.Method)
		return
	}
	b.emit(ev)
}

func (b *Bridge) handleMessage(l *link, f Frame) {
	var p messageParams
	if err := json.Unmarshal(f.Params, &p); err != nil {
		b.logger.Warnf("invalid %s params: %v", f.Method, err)
		return
	}

	b.emit(host.MessageReceived{
		Payload: p.Message,
		Sender:  p.Sender,
		Respond: func(resp types.Response) {
			raw, err := json.Marshal(resp)
			if err != nil {
				b.logger.Errorf("failed to encode reply %d: %v", p.ID, err)
				return
			}
			if err := l.write(Frame{ID: p.ID, Method: MethodReply, Result: raw}); err != nil {
				b.logger.Warnf("failed to deliver reply %d: %v", p.ID, err)
			}
		},
	})
}

// emit delivers ev unless the bridge is shutting down.
func (b *Bridge) emit(ev host.Event) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

// call sends a command to the attached shim and waits for its answer.
func (b *Bridge) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	b.mu.RLock()
	l, closed := b.link, b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if l == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()
	return l.call(ctx, method, params)
}

// ActiveTab implements host.Tabs.
func (b *Bridge) ActiveTab(ctx context.Context) (types.Tab, error) {
	raw, err := b.call(ctx, CmdQueryActiveTab, nil)
	if err != nil {
		return types.Tab{}, err
	}
	var tab *types.Tab
	if err := json.Unmarshal(raw, &tab); err != nil {
		return types.Tab{}, fmt.Errorf("invalid %s result: %w", CmdQueryActiveTab, err)
	}
	if tab == nil {
		return types.Tab{}, types.ErrNoActiveTab
	}
	return *tab, nil
}

// SendMessage implements host.Tabs.
func (b *Bridge) SendMessage(ctx context.Context, tabID types.TabID, msg types.OutboundMessage) (json.RawMessage, error) {
	encoded, err := types.EncodeOutbound(msg)
	if err != nil {
		return nil, err
	}
	return b.call(ctx, CmdSendMessage, sendMessageParams{TabID: tabID, Message: encoded})
}

// InjectContentScript implements host.Scripting.
func (b *Bridge) InjectContentScript(ctx context.Context, tabID types.TabID) error {
	_, err := b.call(ctx, CmdExecuteScript, executeScriptParams{TabID: tabID, Files: []string{ContentScriptFile}})
	return err
}

// SetBadgeText implements host.Action.
func (b *Bridge) SetBadgeText(ctx context.Context, tabID types.TabID, text string) error {
	_, err := b.call(ctx, CmdSetBadgeText, badgeTextParams{TabID: tabID, Text: text})
	return err
}

// SetBadgeBackgroundColor implements host.Action.
func (b *Bridge) SetBadgeBackgroundColor(ctx context.Context, tabID types.TabID, color string) error {
	_, err := b.call(ctx, CmdSetBadgeBackground, badgeColorParams{TabID: tabID, Color: color})
	return err
}

// CreateNotification implements host.Notifications.
func (b *Bridge) CreateNotification(ctx context.Context, n host.Notification) error {
	_, err := b.call(ctx, CmdCreateNotification, notificationParams{ID: n.ID, Options: n})
	return err
}

// CreateMenuItem implements host.ContextMenus.
func (b *Bridge) CreateMenuItem(ctx context.Context, item host.MenuItem) error {
	_, err := b.call(ctx, CmdCreateMenu, menuParams{Item: item})
	return err
}

func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" ||
		strings.HasPrefix(origin, "chrome-extension://") ||
		strings.HasPrefix(origin, "moz-extension://")
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
