package host

import (
	"encoding/json"

	"github.com/entrhq/pagepilot/pkg/types"
)

// TabStatusComplete is the status reported once a navigation finished loading.
const TabStatusComplete = "complete"

// Event is the closed set of events a host can push.
type Event interface {
	event()
}

// TabUpdated reports a change in a tab's loading state.
type TabUpdated struct {
	TabID  types.TabID `json:"tabId"`
	Status string      `json:"status"`
	URL    string      `json:"url"`
	Title  string      `json:"title"`
}

// TabRemoved reports that a tab was closed.
type TabRemoved struct {
	TabID types.TabID `json:"tabId"`
}

// MessageReceived carries an inbound protocol message.
// Respond must be called exactly once with the reply.
type MessageReceived struct {
	Payload json.RawMessage
	Sender  types.Sender
	Respond func(types.Response)
}

// ActionClicked reports a click on the toolbar icon while tab was focused.
type ActionClicked struct {
	Tab types.Tab `json:"tab"`
}

// ClickInfo describes a context menu invocation.
type ClickInfo struct {
	MenuItemID    string `json:"menuItemId"`
	PageURL       string `json:"pageUrl"`
	SelectionText string `json:"selectionText,omitempty"`
}

// ContextMenuClicked reports that a registered menu item was invoked.
type ContextMenuClicked struct {
	Info ClickInfo  `json:"info"`
	Tab  *types.Tab `json:"tab,omitempty"`
}

// Installed reports that the extension was installed, updated or reloaded,
// or that a host link to it was (re)established. Context menus must be
// registered again afterwards.
type Installed struct{}

func (TabUpdated) event()         {}
func (TabRemoved) event()         {}
func (MessageReceived) event()    {}
func (ActionClicked) event()      {}
func (ContextMenuClicked) event() {}
func (Installed) event()          {}
