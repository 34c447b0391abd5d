package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/entrhq/pagepilot/pkg/host"
	"github.com/entrhq/pagepilot/pkg/types"
)

// Frame is the single JSON message shape exchanged with the extension shim.
//
// Commands carry ID and Method; their answers carry the same ID with Result
// or Error. Events carry Method and Params only.
type Frame struct {
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// isResponse reports whether f answers a command sent by the daemon.
func (f Frame) isResponse() bool {
	return f.ID != 0 && f.Method == ""
}

// Events forwarded by the shim.
const (
	EventTabUpdated       = "tabs.onUpdated"
	EventTabRemoved       = "tabs.onRemoved"
	EventMessage          = "runtime.onMessage"
	EventActionClicked    = "action.onClicked"
	EventContextMenuClick = "contextMenus.onClicked"
	EventInstalled        = "runtime.onInstalled"
	EventPong             = "pong"
)

// Commands executed by the shim.
const (
	CmdQueryActiveTab     = "tabs.queryActive"
	CmdSendMessage        = "tabs.sendMessage"
	CmdExecuteScript      = "scripting.executeScript"
	CmdSetBadgeText       = "action.setBadgeText"
	CmdSetBadgeBackground = "action.setBadgeBackgroundColor"
	CmdCreateNotification = "notifications.create"
	CmdCreateMenu         = "contextMenus.create"
)

// Frames the daemon sends that expect no answer.
const (
	MethodReply = "reply"
	MethodPing  = "ping"
)

// ContentScriptFile is the file the shim injects into web pages.
const ContentScriptFile = "content.js"

// messageParams is the payload of a runtime.onMessage event.
type messageParams struct {
	ID      int64           `json:"id"`
	Message json.RawMessage `json:"message"`
	Sender  types.Sender    `json:"sender"`
}

type sendMessageParams struct {
	TabID   types.TabID     `json:"tabId"`
	Message json.RawMessage `json:"message"`
}

type executeScriptParams struct {
	TabID types.TabID `json:"tabId"`
	Files []string    `json:"files"`
}

type badgeTextParams struct {
	TabID types.TabID `json:"tabId"`
	Text  string      `json:"text"`
}

type badgeColorParams struct {
	TabID types.TabID `json:"tabId"`
	Color string      `json:"color"`
}

type notificationParams struct {
	ID      string            `json:"id"`
	Options host.Notification `json:"options"`
}

type menuParams struct {
	Item host.MenuItem `json:"item"`
}

// CommandError is an error reported by the shim for a command.
type CommandError struct {
	Method  string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Unwrap maps the host's well-known messages onto protocol errors.
func (e *CommandError) Unwrap() error {
	switch e.Message {
	case types.ErrNoReceiver.Error():
		return types.ErrNoReceiver
	case types.ErrNoActiveTab.Error():
		return types.ErrNoActiveTab
	}
	return nil
}

var (
	// ErrNotConnected is returned when no extension is attached.
	ErrNotConnected = errors.New("extension not connected")

	// ErrDisconnected rejects commands pending when the extension went away.
	ErrDisconnected = errors.New("extension disconnected")

	// ErrClosed is returned after the bridge shut down.
	ErrClosed = errors.New("bridge closed")
)

// decodeEvent turns an event frame into a host event. Frames with no host
// meaning return nil.
func decodeEvent(f Frame) (host.Event, error) {
	switch f.Method {
	case EventTabUpdated:
		var ev host.TabUpdated
		if err := json.Unmarshal(f.Params, &ev); err != nil {
			return nil, fmt.Errorf("invalid %s params: %w", f.Method, err)
		}
		return ev, nil
	case EventTabRemoved:
		var ev host.TabRemoved
		if err := json.Unmarshal(f.Params, &ev); err != nil {
			return nil, fmt.Errorf("invalid %s params: %w", f.Method, err)
		}
		return ev, nil
	case EventActionClicked:
		var ev host.ActionClicked
		if err := json.Unmarshal(f.Params, &ev); err != nil {
			return nil, fmt.Errorf("invalid %s params: %w", f.Method, err)
		}
		return ev, nil
	case EventContextMenuClick:
		var ev host.ContextMenuClicked
		if err := json.Unmarshal(f.Params, &ev); err != nil {
			return nil, fmt.Errorf("invalid %s params: %w", f.Method, err)
		}
		return ev, nil
	case EventInstalled:
		return host.Installed{}, nil
	default:
		return nil, nil
	}
}
