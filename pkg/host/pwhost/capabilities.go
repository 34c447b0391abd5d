package pwhost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pagepilot/pkg/contentscript"
	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/types"
)

// SelectionEvent is the DOM event PROCESS_SELECTION dispatches on window.
const SelectionEvent = "pagepilot:selection"

const (
	dispatchSelectionScript = `text => window.dispatchEvent(new CustomEvent("` + SelectionEvent + `", { detail: { text } }))`
	readSelectionScript     = `() => { const s = window.getSelection(); return s ? s.toString() : ""; }`
)

func (h *Host) tab(id types.TabID) (*tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tabs.get(id)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownTab, id)
	}
	return t, nil
}

func describe(t *tab) types.Tab {
	title, _ := t.page.Title()
	return types.Tab{ID: t.id, URL: t.page.URL(), Title: title}
}

// ActiveTab implements host.Tabs.
func (h *Host) ActiveTab(ctx context.Context) (types.Tab, error) {
	if err := ctx.Err(); err != nil {
		return types.Tab{}, err
	}
	h.mu.Lock()
	t, ok := h.tabs.active()
	h.mu.Unlock()
	if !ok {
		return types.Tab{}, types.ErrNoActiveTab
	}
	return describe(t), nil
}

// SendMessage implements host.Tabs by handing msg to the tab's content script.
func (h *Host) SendMessage(ctx context.Context, tabID types.TabID, msg types.OutboundMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	t, ok := h.tabs.get(tabID)
	scripted := ok && t.scripted
	h.mu.Unlock()
	if !scripted {
		return nil, types.ErrNoReceiver
	}

	switch m := msg.(type) {
	case types.AnalyzePage:
		analysis, err := h.analyze(ctx, t)
		if err != nil {
			return nil, err
		}
		return json.Marshal(types.AnalyzePageReply{Analysis: analysis})
	case types.ProcessSelection:
		if _, err := t.page.Evaluate(dispatchSelectionScript, m.Text); err != nil {
			return nil, fmt.Errorf("failed to dispatch selection: %w", err)
		}
		h.logger.Debugf("selection of %d bytes delivered to tab %d", len(m.Text), tabID)
		return nil, nil
	default:
		return nil, fmt.Errorf("content script cannot handle %s", msg.Kind())
	}
}

// analyze runs the content script analyzer on the tab's live DOM.
func (h *Host) analyze(ctx context.Context, t *tab) (types.Analysis, error) {
	content, err := t.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	title, _ := t.page.Title()
	return h.analyzer.Analyze(ctx, contentscript.Page{
		URL:   t.page.URL(),
		Title: title,
		HTML:  content,
	})
}

// InjectContentScript implements host.Scripting. The script analyzes the page
// in the background and reports PAGE_LOADED with the tab as sender.
func (h *Host) InjectContentScript(ctx context.Context, tabID types.TabID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	t, ok := h.tabs.get(tabID)
	if ok {
		t.scripted = true
	}
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownTab, tabID)
	}
	if url := t.page.URL(); !types.IsWebURL(url) {
		h.detachScript(tabID)
		return fmt.Errorf("cannot access contents of %q", url)
	}

	h.goSafe(func() { h.runContentScript(t) })
	return nil
}

func (h *Host) runContentScript(t *tab) {
	ctx := context.Background()
	analysis, err := h.analyze(ctx, t)
	if err != nil {
		h.logger.Warnf("content script on tab %d failed: %v", t.id, err)
		return
	}
	payload, err := pageLoaded(analysis)
	if err != nil {
		h.logger.Errorf("%v", err)
		return
	}

	sender := describe(t)
	id := t.id
	h.emit(host.MessageReceived{
		Payload: payload,
		Sender:  types.Sender{Tab: &sender},
		Respond: func(resp types.Response) {
			if !resp.Success {
				h.logger.Warnf("PAGE_LOADED from tab %d rejected: %s", id, resp.Error)
			}
		},
	})
}

// SetBadgeText implements host.Action.
func (h *Host) SetBadgeText(ctx context.Context, tabID types.TabID, text string) error {
	return h.updateBadge(tabID, func(b *Badge) { b.Text = text })
}

// SetBadgeBackgroundColor implements host.Action.
func (h *Host) SetBadgeBackgroundColor(ctx context.Context, tabID types.TabID, color string) error {
	return h.updateBadge(tabID, func(b *Badge) { b.Color = color })
}

func (h *Host) updateBadge(tabID types.TabID, apply func(*Badge)) error {
	h.mu.Lock()
	t, ok := h.tabs.get(tabID)
	if ok {
		apply(&t.badge)
	}
	badge := t.badgeOrZero()
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownTab, tabID)
	}
	h.logger.Debugf("badge of tab %d is now %q %s", tabID, badge.Text, badge.Color)
	return nil
}

func (t *tab) badgeOrZero() Badge {
	if t == nil {
		return Badge{}
	}
	return t.badge
}

// CreateNotification implements host.Notifications.
func (h *Host) CreateNotification(ctx context.Context, n host.Notification) error {
	h.mu.Lock()
	h.notifications = append(h.notifications, n)
	h.mu.Unlock()
	h.logger.Infof("notification %s: %s - %s", n.ID, n.Title, n.Message)
	return nil
}

// CreateMenuItem implements host.ContextMenus. Registering an existing id
// replaces the earlier item.
func (h *Host) CreateMenuItem(ctx context.Context, item host.MenuItem) error {
	if _, err := host.NewURLMatcher(item.DocumentURLPatterns); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.menus {
		if existing.ID == item.ID {
			h.menus[i] = item
			return nil
		}
	}
	h.menus = append(h.menus, item)
	return nil
}
