package types

import (
	"encoding/json"
	"fmt"
)

// MessageKind is the wire discriminator of a protocol message.
type MessageKind string

const (
	KindPageLoaded        MessageKind = "PAGE_LOADED"         // KindPageLoaded reports that a content script finished analyzing its page.
	KindAPIRequest        MessageKind = "API_REQUEST"         // KindAPIRequest asks the orchestrator to proxy a backend call.
	KindGetTabSessions    MessageKind = "GET_TAB_SESSIONS"    // KindGetTabSessions lists the tracked sessions.
	KindAnalyzeCurrentTab MessageKind = "ANALYZE_CURRENT_TAB" // KindAnalyzeCurrentTab analyzes the focused tab on demand.
	KindAnalyzePage       MessageKind = "ANALYZE_PAGE"        // KindAnalyzePage is sent to a tab to request its analysis.
	KindProcessSelection  MessageKind = "PROCESS_SELECTION"   // KindProcessSelection forwards selected text into a tab.
)

// Sender identifies where an inbound message came from.
// Tab is nil when the sender is not a browsing context (popup, options page).
type Sender struct {
	Tab *Tab `json:"tab,omitempty"`
}

// TabID returns the sender's tab id and whether there is one.
func (s Sender) TabID() (TabID, bool) {
	if s.Tab == nil {
		return 0, false
	}
	return s.Tab.ID, true
}

// InboundMessage is the closed set of messages a browsing context can send.
// The unexported method seals the union to this package.
type InboundMessage interface {
	Kind() MessageKind
	inbound()
}

// PageLoaded carries the content script's analysis of the loaded page.
type PageLoaded struct {
	Analysis Analysis `json:"analysis"`
}

// APIRequest describes a backend call to proxy.
type APIRequest struct {
	Endpoint string            `json:"endpoint"`
	Method   string            `json:"method,omitempty"`
	Body     any               `json:"body,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// GetTabSessions asks for a snapshot of all tracked sessions.
type GetTabSessions struct{}

// AnalyzeCurrentTab asks the orchestrator to analyze the active tab.
type AnalyzeCurrentTab struct{}

// UnknownMessage is any message whose kind is not recognized.
type UnknownMessage struct {
	RawKind string
	Payload json.RawMessage
}

func (PageLoaded) Kind() MessageKind        { return KindPageLoaded }
func (APIRequest) Kind() MessageKind        { return KindAPIRequest }
func (GetTabSessions) Kind() MessageKind    { return KindGetTabSessions }
func (AnalyzeCurrentTab) Kind() MessageKind { return KindAnalyzeCurrentTab }
func (m UnknownMessage) Kind() MessageKind  { return MessageKind(m.RawKind) }

func (PageLoaded) inbound()        {}
func (APIRequest) inbound()        {}
func (GetTabSessions) inbound()    {}
func (AnalyzeCurrentTab) inbound() {}
func (UnknownMessage) inbound()    {}

// Envelope is the wire form shared by inbound and outbound messages.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodeInbound parses a wire envelope into its message variant.
// Unrecognized kinds decode to UnknownMessage rather than an error; an error
// is returned only when the bytes are not an envelope or a known kind's
// payload is malformed.
func DecodeInbound(raw []byte) (InboundMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode message envelope: %w", err)
	}

	switch MessageKind(env.Type) {
	case KindPageLoaded:
		var msg PageLoaded
		if err := decodePayload(env.Data, &msg); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		return msg, nil
	case KindAPIRequest:
		var msg APIRequest
		if err := decodePayload(env.Data, &msg); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		return msg, nil
	case KindGetTabSessions:
		return GetTabSessions{}, nil
	case KindAnalyzeCurrentTab:
		return AnalyzeCurrentTab{}, nil
	default:
		return UnknownMessage{RawKind: env.Type, Payload: env.Data}, nil
	}
}

// EncodeInbound renders a message in its wire envelope.
func EncodeInbound(msg InboundMessage) ([]byte, error) {
	var payload any
	switch m := msg.(type) {
	case PageLoaded, APIRequest:
		payload = m
	case UnknownMessage:
		return json.Marshal(Envelope{Type: m.RawKind, Data: m.Payload})
	}
	return encodeEnvelope(string(msg.Kind()), payload)
}

func decodePayload(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func encodeEnvelope(kind string, payload any) ([]byte, error) {
	env := Envelope{Type: kind}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
