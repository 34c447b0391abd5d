package types

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMessage is returned for message kinds outside the protocol.
	ErrUnknownMessage = errors.New("Unknown message type")

	// ErrNoActiveTab is returned when an operation needs a focused tab and there is none.
	ErrNoActiveTab = errors.New("No active tab found")

	// ErrNoReceiver mirrors the host error for messaging a tab without a listener.
	ErrNoReceiver = errors.New("Could not establish connection. Receiving end does not exist.")
)

// DefaultRemoteError is used when a non-2xx backend body carries no error text.
const DefaultRemoteError = "Request failed"

// UnknownKindError reports an unrecognized wire kind.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown message kind %q", e.Kind)
}

func (e *UnknownKindError) Unwrap() error {
	return ErrUnknownMessage
}

// TransportError represents a failed round trip to the backend.
type TransportError struct {
	Op  string // "build", "send", "read", "decode"
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError represents a backend response outside the 2xx range.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// CapabilityError represents a failed host action against a tab.
type CapabilityError struct {
	Capability string // "inject", "sendMessage", "setBadgeText", ...
	TabID      TabID
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s failed for tab %d: %v", e.Capability, e.TabID, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}
