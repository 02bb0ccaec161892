package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for uaflow messages.
// Configured for deterministic encoding.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for uaflow messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical, // Deterministic key ordering
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnixMicro,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// MustRaw encodes v and returns the bytes as a raw message. It panics on
// encoding failure and exists for building response payloads in process
// (fallback synthesis, tests), where the input is always encodable.
func MustRaw(v any) cbor.RawMessage {
	data, err := Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("wire: cannot encode payload: %v", err))
	}
	return cbor.RawMessage(data)
}

// EncodeRequest encodes a request envelope to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if req.ServiceID == ServicePushNotification || !req.ServiceID.IsRequest() {
		return nil, fmt.Errorf("invalid request service id: %s", req.ServiceID)
	}
	return Marshal(req)
}

// DecodeInbound decodes an inbound message, returning either *Response or
// *Push depending on the service id.
func DecodeInbound(data []byte) (Inbound, error) {
	var peek struct {
		ServiceID ServiceID `cbor:"1,keyasint"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return nil, fmt.Errorf("failed to peek inbound message: %w", err)
	}

	if peek.ServiceID == ServicePushNotification {
		var push Push
		if err := Unmarshal(data, &push); err != nil {
			return nil, fmt.Errorf("failed to decode push: %w", err)
		}
		return &push, nil
	}

	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	resp.ServiceID = peek.ServiceID
	return &resp, nil
}

// EncodeResponse encodes a response envelope to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(resp)
}

// EncodePush encodes a push envelope to CBOR bytes, stamping the reserved
// service id.
func EncodePush(push *Push) ([]byte, error) {
	wireMsg := struct {
		ServiceID ServiceID       `cbor:"1,keyasint"`
		Header    RequestHeader   `cbor:"2,keyasint"`
		Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
	}{
		ServiceID: ServicePushNotification,
		Header:    push.Header,
		Payload:   push.Payload,
	}
	return Marshal(wireMsg)
}
