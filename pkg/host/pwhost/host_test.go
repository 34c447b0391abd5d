package pwhost

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/types"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage implements the few playwright.Page methods the host calls.
// Anything else panics through the nil embedded interface.
type fakePage struct {
	playwright.Page

	mu        sync.Mutex
	url       string
	title     string
	html      string
	selection string
	evalErr   error
	titleGate chan struct{} // when set, Title blocks until it is closed
	evaluated []interface{}
	fronted   int
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Title() (string, error) {
	if p.titleGate != nil {
		<-p.titleGate
	}
	return p.title, nil
}

func (p *fakePage) Content() (string, error) { return p.html, nil }

func (p *fakePage) BringToFront() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fronted++
	return nil
}

func (p *fakePage) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.evalErr != nil {
		return nil, p.evalErr
	}
	if expression == readSelectionScript {
		return p.selection, nil
	}
	p.evaluated = append(p.evaluated, arg...)
	return nil, nil
}

const articleHTML = `<html><head><title>Memory</title><meta property="og:type" content="article"></head>
<body><article><h1>The Go Memory Model</h1><p>Happens before.</p></article></body></html>`

func addTab(t *testing.T, h *Host, p *fakePage) types.TabID {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	tb, created := h.tabs.add(p)
	require.True(t, created)
	return tb.id
}

func nextEvent(t *testing.T, h *Host) host.Event {
	t.Helper()
	select {
	case ev := <-h.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for host event")
		return nil
	}
}

func newTestHost(t *testing.T) *Host {
	t.Helper()
	h := New(WithInstall(false))
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestTabSet(t *testing.T) {
	s := newTabSet()
	a, b, c := &fakePage{}, &fakePage{}, &fakePage{}

	ta, created := s.add(a)
	require.True(t, created)
	tb, _ := s.add(b)
	tc, _ := s.add(c)
	assert.Equal(t, types.TabID(1), ta.id)
	assert.Equal(t, types.TabID(2), tb.id)
	assert.Equal(t, types.TabID(3), tc.id)

	again, created := s.add(b)
	assert.False(t, created)
	assert.Same(t, tb, again)

	active, ok := s.active()
	require.True(t, ok)
	assert.Equal(t, tc.id, active.id)

	assert.True(t, s.activate(ta.id))
	assert.False(t, s.activate(99))
	active, _ = s.active()
	assert.Equal(t, ta.id, active.id)

	_, ok = s.remove(ta.id)
	assert.True(t, ok)
	_, ok = s.remove(ta.id)
	assert.False(t, ok)
	active, _ = s.active()
	assert.Equal(t, tc.id, active.id)

	_, stillMapped := s.byPage[a]
	assert.False(t, stillMapped)

	ids := []types.TabID{}
	for _, tb := range s.all() {
		ids = append(ids, tb.id)
	}
	assert.Equal(t, []types.TabID{2, 3}, ids)

	// Ids are never reused.
	td, _ := s.add(&fakePage{})
	assert.Equal(t, types.TabID(4), td.id)
}

func TestActiveTab(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	_, err := h.ActiveTab(ctx)
	assert.ErrorIs(t, err, types.ErrNoActiveTab)

	first := &fakePage{url: "https://a.example/", title: "A"}
	firstID := addTab(t, h, first)
	addTab(t, h, &fakePage{url: "https://b.example/", title: "B"})

	tab, err := h.ActiveTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", tab.Title)

	require.NoError(t, h.Activate(ctx, firstID))
	assert.Equal(t, 1, first.fronted)
	tab, err = h.ActiveTab(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Tab{ID: firstID, URL: "https://a.example/", Title: "A"}, tab)

	assert.ErrorIs(t, h.Activate(ctx, 42), ErrUnknownTab)
	assert.Len(t, h.Tabs(), 2)
}

func TestContentScript(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()
	page := &fakePage{url: "https://go.dev/ref/mem", title: "Memory", html: articleHTML}
	id := addTab(t, h, page)

	_, err := h.SendMessage(ctx, id, types.AnalyzePage{})
	assert.ErrorIs(t, err, types.ErrNoReceiver)

	require.NoError(t, h.InjectContentScript(ctx, id))

	ev := nextEvent(t, h)
	msg, ok := ev.(host.MessageReceived)
	require.True(t, ok, "expected MessageReceived, got %T", ev)
	require.NotNil(t, msg.Sender.Tab)
	assert.Equal(t, id, msg.Sender.Tab.ID)

	inbound, err := types.DecodeInbound(msg.Payload)
	require.NoError(t, err)
	loaded, ok := inbound.(types.PageLoaded)
	require.True(t, ok)
	assert.Equal(t, "article", loaded.Analysis.PageType())
	msg.Respond(types.OK())

	reply, err := h.SendMessage(ctx, id, types.AnalyzePage{})
	require.NoError(t, err)
	var decoded types.AnalyzePageReply
	require.NoError(t, json.Unmarshal(reply, &decoded))
	assert.Equal(t, "article", decoded.Analysis.PageType())
	assert.Equal(t, "Memory", decoded.Analysis["title"])

	_, err = h.SendMessage(ctx, id, types.ProcessSelection{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"hello"}, page.evaluated)

	// A new document drops the script.
	h.detachScript(id)
	_, err = h.SendMessage(ctx, id, types.AnalyzePage{})
	assert.ErrorIs(t, err, types.ErrNoReceiver)
}

func TestInjectContentScript_Errors(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	err := h.InjectContentScript(ctx, 5)
	assert.ErrorIs(t, err, ErrUnknownTab)

	id := addTab(t, h, &fakePage{url: "chrome://settings"})
	assert.Error(t, h.InjectContentScript(ctx, id))
	_, err = h.SendMessage(ctx, id, types.AnalyzePage{})
	assert.ErrorIs(t, err, types.ErrNoReceiver)

	_, err = h.SendMessage(ctx, 77, types.AnalyzePage{})
	assert.ErrorIs(t, err, types.ErrNoReceiver)
}

func TestSendMessage_SelectionFailure(t *testing.T) {
	h := newTestHost(t)
	page := &fakePage{url: "https://a.example/", evalErr: errors.New("detached")}
	id := addTab(t, h, page)
	h.tabs.byID[id].scripted = true

	_, err := h.SendMessage(context.Background(), id, types.ProcessSelection{Text: "x"})
	assert.ErrorContains(t, err, "detached")
}

func TestBadges(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()
	id := addTab(t, h, &fakePage{url: "https://a.example/"})

	require.NoError(t, h.SetBadgeText(ctx, id, "📄"))
	require.NoError(t, h.SetBadgeBackgroundColor(ctx, id, "#4CAF50"))

	badge, ok := h.Badge(id)
	require.True(t, ok)
	assert.Equal(t, Badge{Text: "📄", Color: "#4CAF50"}, badge)

	assert.ErrorIs(t, h.SetBadgeText(ctx, 9, "x"), ErrUnknownTab)
	_, ok = h.Badge(9)
	assert.False(t, ok)
}

func TestNotificationsAndMenus(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	require.NoError(t, h.CreateNotification(ctx, host.Notification{ID: "n1", Type: "basic", Title: "T", Message: "M"}))
	assert.Len(t, h.Notifications(), 1)

	item := host.MenuItem{ID: "summarize-page", Title: "One", Contexts: []string{host.MenuContextPage}}
	require.NoError(t, h.CreateMenuItem(ctx, item))
	item.Title = "Two"
	require.NoError(t, h.CreateMenuItem(ctx, item))

	menus := h.Menus()
	require.Len(t, menus, 1)
	assert.Equal(t, "Two", menus[0].Title)
}

func TestInvokeCommand(t *testing.T) {
	pageItem := host.MenuItem{
		ID:                  "summarize-page",
		Contexts:            []string{host.MenuContextPage},
		DocumentURLPatterns: host.WebURLPatterns,
	}
	selectionItem := host.MenuItem{
		ID:                  "extract-selection",
		Contexts:            []string{host.MenuContextSelection},
		DocumentURLPatterns: host.WebURLPatterns,
	}

	t.Run("page command on web page", func(t *testing.T) {
		h := newTestHost(t)
		ctx := context.Background()
		require.NoError(t, h.CreateMenuItem(ctx, pageItem))
		id := addTab(t, h, &fakePage{url: "https://news.example/story", title: "Story"})

		require.NoError(t, h.InvokeCommand(ctx, id, "summarize-page"))
		ev, ok := nextEvent(t, h).(host.ContextMenuClicked)
		require.True(t, ok)
		assert.Equal(t, "summarize-page", ev.Info.MenuItemID)
		assert.Equal(t, "https://news.example/story", ev.Info.PageURL)
		require.NotNil(t, ev.Tab)
		assert.Equal(t, id, ev.Tab.ID)
	})

	t.Run("selection command reads live selection", func(t *testing.T) {
		h := newTestHost(t)
		ctx := context.Background()
		require.NoError(t, h.CreateMenuItem(ctx, selectionItem))
		page := &fakePage{url: "https://a.example/", selection: "quoted text"}
		id := addTab(t, h, page)

		require.NoError(t, h.InvokeCommand(ctx, id, "extract-selection"))
		ev := nextEvent(t, h).(host.ContextMenuClicked)
		assert.Equal(t, "quoted text", ev.Info.SelectionText)

		page.selection = "  "
		assert.ErrorIs(t, h.InvokeCommand(ctx, id, "extract-selection"), ErrNoSelection)
	})

	t.Run("refused commands", func(t *testing.T) {
		h := newTestHost(t)
		ctx := context.Background()
		require.NoError(t, h.CreateMenuItem(ctx, pageItem))
		id := addTab(t, h, &fakePage{url: "chrome://extensions"})

		assert.ErrorContains(t, h.InvokeCommand(ctx, id, "summarize-page"), "not offered")
		assert.ErrorContains(t, h.InvokeCommand(ctx, id, "missing"), "not registered")
		assert.ErrorIs(t, h.InvokeCommand(ctx, 99, "summarize-page"), ErrUnknownTab)
	})
}

func TestClickInfo(t *testing.T) {
	item := host.MenuItem{ID: "both", Contexts: []string{host.MenuContextPage, host.MenuContextSelection}}

	info, err := clickInfo(item, "file:///tmp/x.html", "")
	require.NoError(t, err)
	assert.Equal(t, host.ClickInfo{MenuItemID: "both", PageURL: "file:///tmp/x.html"}, info)
}

func TestClickAction(t *testing.T) {
	h := newTestHost(t)
	id := addTab(t, h, &fakePage{url: "https://a.example/", title: "A"})

	require.NoError(t, h.ClickAction(context.Background(), id))
	ev, ok := nextEvent(t, h).(host.ActionClicked)
	require.True(t, ok)
	assert.Equal(t, id, ev.Tab.ID)

	assert.ErrorIs(t, h.ClickAction(context.Background(), 8), ErrUnknownTab)
}

func TestOnClosed(t *testing.T) {
	h := newTestHost(t)
	id := addTab(t, h, &fakePage{url: "https://a.example/"})

	h.onClosed(id)
	ev, ok := nextEvent(t, h).(host.TabRemoved)
	require.True(t, ok)
	assert.Equal(t, id, ev.TabID)

	// A second close is not reported again.
	h.onClosed(id)
	select {
	case ev := <-h.Events():
		t.Fatalf("unexpected event %T", ev)
	default:
	}
}

func TestReportLoaded(t *testing.T) {
	h := newTestHost(t)
	page := &fakePage{url: "https://a.example/x", title: "X"}
	id := addTab(t, h, page)

	h.reportLoaded(id, page)
	ev, ok := nextEvent(t, h).(host.TabUpdated)
	require.True(t, ok)
	assert.Equal(t, host.TabUpdated{TabID: id, Status: host.TabStatusComplete, URL: "https://a.example/x", Title: "X"}, ev)
}

func TestLoadAndCloseReportedInOrder(t *testing.T) {
	h := newTestHost(t)
	page := &fakePage{url: "https://a.example/", title: "A", titleGate: make(chan struct{})}
	id := addTab(t, h, page)
	release := sync.OnceFunc(func() { close(page.titleGate) })
	t.Cleanup(release)

	// The close is queued while the load report is still waiting on the title.
	h.inOrder(id, func() { h.reportLoaded(id, page) })
	h.inOrder(id, func() { h.onClosed(id) })

	select {
	case ev := <-h.Events():
		t.Fatalf("close reported before the pending load: %T", ev)
	case <-time.After(50 * time.Millisecond):
	}
	release()

	_, ok := nextEvent(t, h).(host.TabUpdated)
	require.True(t, ok, "expected the load first")
	removed, ok := nextEvent(t, h).(host.TabRemoved)
	require.True(t, ok, "expected the close second")
	assert.Equal(t, id, removed.TabID)
}

func TestClose(t *testing.T) {
	h := New(WithInstall(false))
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, open := <-h.Events()
	assert.False(t, open)

	// Late emitters and callbacks are dropped.
	h.emit(host.Installed{})
	h.goSafe(func() { t.Error("callback ran after close") })
	h.inOrder(1, func() { t.Error("report ran after close") })

	assert.ErrorIs(t, h.Start(context.Background()), ErrClosed)
	_, err := h.Open(context.Background(), "https://a.example/")
	assert.ErrorIs(t, err, ErrNotStarted)
}
