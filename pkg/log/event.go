package log

import (
	"time"

	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ClientID uniquely identifies the client instance (UUID).
	ClientID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// EndpointURL is the server endpoint, when known.
	EndpointURL string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Session/subscription state
	Drop        *DropEvent        `cbor:"12,keyasint,omitempty"` // Dropped pending requests
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerWire is the message encoding layer.
	LayerWire Layer = 0
	// LayerEngine is the correlation/dispatch layer.
	LayerEngine Layer = 1
	// LayerSession is the session and subscription state layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerWire:
		return "WIRE"
	case LayerEngine:
		return "ENGINE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message (request/response/push).
	CategoryMessage Category = 0
	// CategoryState indicates a state machine transition.
	CategoryState Category = 1
	// CategoryDrop indicates a pending request was dropped.
	CategoryDrop Category = 2
	// CategoryError indicates an error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryDrop:
		return "DROP"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MessageEvent describes a protocol message.
type MessageEvent struct {
	// ServiceID of the message.
	ServiceID wire.ServiceID `cbor:"1,keyasint"`

	// RequestHandle correlating the message, 0 for broadcast pushes.
	RequestHandle uint32 `cbor:"2,keyasint,omitempty"`

	// ServiceResult for responses.
	ServiceResult *wire.StatusCode `cbor:"3,keyasint,omitempty"`

	// Data is the serialized message, when payload capture is enabled.
	Data []byte `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent describes a state machine transition.
type StateChangeEvent struct {
	// Entity is the state machine that transitioned.
	Entity string `cbor:"1,keyasint"`

	// OldState before the transition.
	OldState string `cbor:"2,keyasint"`

	// NewState after the transition.
	NewState string `cbor:"3,keyasint"`

	// Reason for the transition, if known.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// DropEvent describes a pending request dropped on transport failure.
type DropEvent struct {
	// RequestHandle of the dropped request.
	RequestHandle uint32 `cbor:"1,keyasint"`

	// CallerHandle of the dropped request.
	CallerHandle uint32 `cbor:"2,keyasint,omitempty"`

	// ServiceID of the dropped request.
	ServiceID wire.ServiceID `cbor:"3,keyasint"`

	// Reason the request was dropped.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData describes an error event.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"3,keyasint,omitempty"`
}
