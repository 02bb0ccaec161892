package interaction

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Channel is the persistent bidirectional transport. Inbound traffic is
// delivered by the owner of the Channel to Dispatcher.IngestBytes.
type Channel interface {
	// IsOpen reports whether the channel can carry requests.
	IsOpen() bool

	// Send transmits one serialized request.
	Send(data []byte) error
}

// Caller is the synchronous point-to-point fallback transport. Call posts
// the payload to the endpoint path and returns the serialized result body.
type Caller interface {
	Call(path string, payload []byte) ([]byte, error)
}

// CallError is a call-level failure from the fallback transport: the call
// was delivered and rejected, as opposed to not completing at all. The
// dispatcher turns it into a synthesized error response; any other error
// from Caller.Call drops the pending request.
type CallError struct {
	Status  uint32
	Message string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("call failed (0x%08X): %s", e.Status, e.Message)
}

// Callout is the payload shape handed to the fallback transport: the caller
// handle plus the serialized request envelope.
type Callout struct {
	CallerHandle uint32          `cbor:"1,keyasint"`
	Request      cbor.RawMessage `cbor:"2,keyasint"`
}
