// Package hosttest provides an in-memory host for tests.
package hosttest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/types"
)

// BadgeState is the last badge applied to a tab.
type BadgeState struct {
	Text  string
	Color string
}

// SentMessage records a SendMessage call.
type SentMessage struct {
	TabID   types.TabID
	Message types.OutboundMessage
}

// Host is a scriptable fake implementing host.Host.
// Exported fields configure behaviour; recorded calls are read through methods.
type Host struct {
	mu sync.Mutex

	// Active is returned by ActiveTab; nil means no focused tab.
	Active *types.Tab
	// Replies maps a tab to its content script reply.
	Replies map[types.TabID]json.RawMessage
	// SendErrs fails SendMessage for specific tabs.
	SendErrs map[types.TabID]error
	// InjectErr fails every InjectContentScript call.
	InjectErr error
	// BadgeErr fails every badge call.
	BadgeErr error
	// NotifyErr fails every CreateNotification call.
	NotifyErr error
	// MenuErrs fails CreateMenuItem for specific ids.
	MenuErrs map[string]error

	injected      []types.TabID
	sent          []SentMessage
	badges        map[types.TabID]BadgeState
	badgeCalls    int
	notifications []host.Notification
	menus         []host.MenuItem

	events    chan host.Event
	closeOnce sync.Once
}

// New creates a fake host with a buffered event channel.
func New() *Host {
	return &Host{
		Replies:  make(map[types.TabID]json.RawMessage),
		SendErrs: make(map[types.TabID]error),
		MenuErrs: make(map[string]error),
		badges:   make(map[types.TabID]BadgeState),
		events:   make(chan host.Event, 64),
	}
}

var _ host.Host = (*Host)(nil)

// SetActive sets the focused tab; nil clears it.
func (h *Host) SetActive(tab *types.Tab) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Active = tab
}

// ActiveTab implements host.Tabs.
func (h *Host) ActiveTab(ctx context.Context) (types.Tab, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Active == nil {
		return types.Tab{}, types.ErrNoActiveTab
	}
	return *h.Active, nil
}

// SendMessage implements host.Tabs.
func (h *Host) SendMessage(ctx context.Context, tabID types.TabID, msg types.OutboundMessage) (json.RawMessage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, SentMessage{TabID: tabID, Message: msg})
	if err := h.SendErrs[tabID]; err != nil {
		return nil, err
	}
	reply, ok := h.Replies[tabID]
	if !ok {
		return nil, types.ErrNoReceiver
	}
	return reply, nil
}

// InjectContentScript implements host.Scripting.
func (h *Host) InjectContentScript(ctx context.Context, tabID types.TabID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.injected = append(h.injected, tabID)
	return h.InjectErr
}

// SetBadgeText implements host.Action.
func (h *Host) SetBadgeText(ctx context.Context, tabID types.TabID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.badgeCalls++
	if h.BadgeErr != nil {
		return h.BadgeErr
	}
	b := h.badges[tabID]
	b.Text = text
	h.badges[tabID] = b
	return nil
}

// SetBadgeBackgroundColor implements host.Action.
func (h *Host) SetBadgeBackgroundColor(ctx context.Context, tabID types.TabID, color string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.badgeCalls++
	if h.BadgeErr != nil {
		return h.BadgeErr
	}
	b := h.badges[tabID]
	b.Color = color
	h.badges[tabID] = b
	return nil
}

// CreateNotification implements host.Notifications.
func (h *Host) CreateNotification(ctx context.Context, n host.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.NotifyErr != nil {
		return h.NotifyErr
	}
	h.notifications = append(h.notifications, n)
	return nil
}

// CreateMenuItem implements host.ContextMenus.
func (h *Host) CreateMenuItem(ctx context.Context, item host.MenuItem) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.MenuErrs[item.ID]; err != nil {
		return err
	}
	h.menus = append(h.menus, item)
	return nil
}

// Events implements host.EventSource.
func (h *Host) Events() <-chan host.Event {
	return h.events
}

// Emit pushes an event to the orchestrator.
func (h *Host) Emit(ev host.Event) {
	h.events <- ev
}

// Close closes the event channel.
func (h *Host) Close() {
	h.closeOnce.Do(func() { close(h.events) })
}

// Injected returns the tabs the content script was injected into.
func (h *Host) Injected() []types.TabID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]types.TabID(nil), h.injected...)
}

// Sent returns all SendMessage calls.
func (h *Host) Sent() []SentMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]SentMessage(nil), h.sent...)
}

// Badge returns the badge applied to tabID.
func (h *Host) Badge(tabID types.TabID) (BadgeState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.badges[tabID]
	return b, ok
}

// BadgeCalls counts badge calls, including failed ones.
func (h *Host) BadgeCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.badgeCalls
}

// Notifications returns the notifications created so far.
func (h *Host) Notifications() []host.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.Notification(nil), h.notifications...)
}

// Menus returns the registered menu items.
func (h *Host) Menus() []host.MenuItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.MenuItem(nil), h.menus...)
}
