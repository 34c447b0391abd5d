package types

import "encoding/json"

// OutboundMessage is the closed set of messages the orchestrator sends into a tab.
type OutboundMessage interface {
	Kind() MessageKind
	outbound()
}

// AnalyzePage requests an on-demand analysis; the tab answers with AnalyzePageReply.
type AnalyzePage struct{}

// ProcessSelection forwards selected text into the originating tab. Fire-and-forget.
type ProcessSelection struct {
	Text string `json:"text"`
}

func (AnalyzePage) Kind() MessageKind      { return KindAnalyzePage }
func (ProcessSelection) Kind() MessageKind { return KindProcessSelection }

func (AnalyzePage) outbound()      {}
func (ProcessSelection) outbound() {}

// AnalyzePageReply is what a content script returns for ANALYZE_PAGE.
type AnalyzePageReply struct {
	Analysis Analysis `json:"analysis"`
}

// EncodeOutbound renders an outbound message in its wire envelope.
func EncodeOutbound(msg OutboundMessage) ([]byte, error) {
	var payload any
	if sel, ok := msg.(ProcessSelection); ok {
		payload = sel
	}
	return encodeEnvelope(string(msg.Kind()), payload)
}

// DecodeOutbound parses an outbound envelope. It is used by host adapters
// that play the content-script side of the protocol.
func DecodeOutbound(raw []byte) (OutboundMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch MessageKind(env.Type) {
	case KindAnalyzePage:
		return AnalyzePage{}, nil
	case KindProcessSelection:
		var msg ProcessSelection
		if err := decodePayload(env.Data, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, &UnknownKindError{Kind: env.Type}
	}
}
