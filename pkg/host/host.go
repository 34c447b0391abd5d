// Package host defines the ports through which the orchestrator talks to the
// browser runtime.
//
// The orchestrator never calls browser APIs directly. It consumes a closed set
// of events from Events and drives the runtime through the capability
// interfaces below. Adapters live in subpackages: bridge (a WebSocket link to
// a real extension) and pwhost (a Playwright-driven Chromium).
package host

import (
	"context"
	"encoding/json"

	"github.com/entrhq/pagepilot/pkg/types"
)

// Tabs exposes tab lookup and tab messaging.
type Tabs interface {
	// ActiveTab returns the focused tab of the focused window.
	// It returns types.ErrNoActiveTab when there is none.
	ActiveTab(ctx context.Context) (types.Tab, error)

	// SendMessage delivers msg to the content script of tabID and returns its
	// raw reply. Tabs without a listener fail with types.ErrNoReceiver.
	SendMessage(ctx context.Context, tabID types.TabID, msg types.OutboundMessage) (json.RawMessage, error)
}

// Scripting injects the content script into a tab.
type Scripting interface {
	InjectContentScript(ctx context.Context, tabID types.TabID) error
}

// Action drives the toolbar icon badge of a tab.
type Action interface {
	SetBadgeText(ctx context.Context, tabID types.TabID, text string) error
	SetBadgeBackgroundColor(ctx context.Context, tabID types.TabID, color string) error
}

// Notifications shows system notifications.
type Notifications interface {
	CreateNotification(ctx context.Context, n Notification) error
}

// ContextMenus registers context menu entries.
type ContextMenus interface {
	CreateMenuItem(ctx context.Context, item MenuItem) error
}

// EventSource delivers host events. The channel is closed when the host shuts down.
type EventSource interface {
	Events() <-chan Event
}

// Host is the full runtime surface the orchestrator depends on.
type Host interface {
	Tabs
	Scripting
	Action
	Notifications
	ContextMenus
	EventSource
}

// Notification is a basic system notification.
type Notification struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	IconURL string `json:"iconUrl,omitempty"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
