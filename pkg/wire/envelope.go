package wire

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CBOR map keys shared by all envelopes.
const (
	KeyServiceID = 1
	KeyHeader    = 2
	KeyPayload   = 3
)

// ServiceID identifies a service request or response on the wire.
type ServiceID uint32

// ServicePushNotification is the reserved service id marking an unsolicited
// server push. It never appears on a correlated response.
const ServicePushNotification ServiceID = 1

// Service ids. Requests are even, the matching response is the request id
// plus one.
const (
	ServiceBrowseRequest                         ServiceID = 100
	ServiceBrowseResponse                        ServiceID = 101
	ServiceBrowseNextRequest                     ServiceID = 102
	ServiceBrowseNextResponse                    ServiceID = 103
	ServiceReadRequest                           ServiceID = 104
	ServiceReadResponse                          ServiceID = 105
	ServiceWriteRequest                          ServiceID = 106
	ServiceWriteResponse                         ServiceID = 107
	ServiceCallRequest                           ServiceID = 108
	ServiceCallResponse                          ServiceID = 109
	ServiceTranslateBrowsePathsRequest           ServiceID = 110
	ServiceTranslateBrowsePathsResponse          ServiceID = 111
	ServiceHistoryReadRequest                    ServiceID = 112
	ServiceHistoryReadResponse                   ServiceID = 113
	ServiceHistoryUpdateRequest                  ServiceID = 114
	ServiceHistoryUpdateResponse                 ServiceID = 115
	ServiceCreateSessionRequest                  ServiceID = 120
	ServiceCreateSessionResponse                 ServiceID = 121
	ServiceActivateSessionRequest                ServiceID = 122
	ServiceActivateSessionResponse               ServiceID = 123
	ServiceCloseSessionRequest                   ServiceID = 124
	ServiceCloseSessionResponse                  ServiceID = 125
	ServiceCreateSubscriptionRequest             ServiceID = 130
	ServiceCreateSubscriptionResponse            ServiceID = 131
	ServiceModifySubscriptionRequest             ServiceID = 132
	ServiceModifySubscriptionResponse            ServiceID = 133
	ServiceDeleteSubscriptionsRequest            ServiceID = 134
	ServiceDeleteSubscriptionsResponse           ServiceID = 135
	ServiceSetPublishingModeRequest              ServiceID = 136
	ServiceSetPublishingModeResponse             ServiceID = 137
	ServicePublishRequest                        ServiceID = 138
	ServicePublishResponse                       ServiceID = 139
	ServiceCreateMonitoredItemsRequest           ServiceID = 140
	ServiceCreateMonitoredItemsResponse          ServiceID = 141
	ServiceModifyMonitoredItemsRequest           ServiceID = 142
	ServiceModifyMonitoredItemsResponse          ServiceID = 143
	ServiceDeleteMonitoredItemsRequest           ServiceID = 144
	ServiceDeleteMonitoredItemsResponse          ServiceID = 145
)

// String returns the service name.
func (s ServiceID) String() string {
	switch s {
	case ServicePushNotification:
		return "PushNotification"
	case ServiceBrowseRequest:
		return "BrowseRequest"
	case ServiceBrowseResponse:
		return "BrowseResponse"
	case ServiceBrowseNextRequest:
		return "BrowseNextRequest"
	case ServiceBrowseNextResponse:
		return "BrowseNextResponse"
	case ServiceReadRequest:
		return "ReadRequest"
	case ServiceReadResponse:
		return "ReadResponse"
	case ServiceWriteRequest:
		return "WriteRequest"
	case ServiceWriteResponse:
		return "WriteResponse"
	case ServiceCallRequest:
		return "CallRequest"
	case ServiceCallResponse:
		return "CallResponse"
	case ServiceTranslateBrowsePathsRequest:
		return "TranslateBrowsePathsToNodeIdsRequest"
	case ServiceTranslateBrowsePathsResponse:
		return "TranslateBrowsePathsToNodeIdsResponse"
	case ServiceHistoryReadRequest:
		return "HistoryReadRequest"
	case ServiceHistoryReadResponse:
		return "HistoryReadResponse"
	case ServiceHistoryUpdateRequest:
		return "HistoryUpdateRequest"
	case ServiceHistoryUpdateResponse:
		return "HistoryUpdateResponse"
	case ServiceCreateSessionRequest:
		return "CreateSessionRequest"
	case ServiceCreateSessionResponse:
		return "CreateSessionResponse"
	case ServiceActivateSessionRequest:
		return "ActivateSessionRequest"
	case ServiceActivateSessionResponse:
		return "ActivateSessionResponse"
	case ServiceCloseSessionRequest:
		return "CloseSessionRequest"
	case ServiceCloseSessionResponse:
		return "CloseSessionResponse"
	case ServiceCreateSubscriptionRequest:
		return "CreateSubscriptionRequest"
	case ServiceCreateSubscriptionResponse:
		return "CreateSubscriptionResponse"
	case ServiceModifySubscriptionRequest:
		return "ModifySubscriptionRequest"
	case ServiceModifySubscriptionResponse:
		return "ModifySubscriptionResponse"
	case ServiceDeleteSubscriptionsRequest:
		return "DeleteSubscriptionsRequest"
	case ServiceDeleteSubscriptionsResponse:
		return "DeleteSubscriptionsResponse"
	case ServiceSetPublishingModeRequest:
		return "SetPublishingModeRequest"
	case ServiceSetPublishingModeResponse:
		return "SetPublishingModeResponse"
	case ServicePublishRequest:
		return "PublishRequest"
	case ServicePublishResponse:
		return "PublishResponse"
	case ServiceCreateMonitoredItemsRequest:
		return "CreateMonitoredItemsRequest"
	case ServiceCreateMonitoredItemsResponse:
		return "CreateMonitoredItemsResponse"
	case ServiceModifyMonitoredItemsRequest:
		return "ModifyMonitoredItemsRequest"
	case ServiceModifyMonitoredItemsResponse:
		return "ModifyMonitoredItemsResponse"
	case ServiceDeleteMonitoredItemsRequest:
		return "DeleteMonitoredItemsRequest"
	case ServiceDeleteMonitoredItemsResponse:
		return "DeleteMonitoredItemsResponse"
	default:
		return "Unknown"
	}
}

// IsRequest reports whether the id names a client request service.
func (s ServiceID) IsRequest() bool {
	return s >= ServiceBrowseRequest && s%2 == 0
}

// ResponseID returns the service id of the response matching a request id.
func (s ServiceID) ResponseID() ServiceID {
	if !s.IsRequest() {
		return s
	}
	return s + 1
}

// RequestHeader precedes the payload of every request.
type RequestHeader struct {
	RequestHandle       uint32    `cbor:"1,keyasint"`
	Timestamp           time.Time `cbor:"2,keyasint,omitempty"`
	TimeoutHint         uint32    `cbor:"3,keyasint,omitempty"`
	AuthenticationToken string    `cbor:"4,keyasint,omitempty"`
}

// ResponseHeader precedes the payload of every response.
type ResponseHeader struct {
	RequestHandle uint32     `cbor:"1,keyasint"`
	Timestamp     time.Time  `cbor:"2,keyasint,omitempty"`
	ServiceResult StatusCode `cbor:"3,keyasint,omitempty"`
	StringTable   []string   `cbor:"4,keyasint,omitempty"`
}

// Request is an outbound service request envelope.
type Request struct {
	ServiceID ServiceID     `cbor:"1,keyasint"`
	Header    RequestHeader `cbor:"2,keyasint"`
	Payload   any           `cbor:"3,keyasint,omitempty"`
}

// Response is an inbound service response envelope. The payload is kept raw
// so the component that issued the request can decode it into the matching
// result type.
type Response struct {
	ServiceID ServiceID       `cbor:"1,keyasint"`
	Header    ResponseHeader  `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// Push is an unsolicited server message. Its header carries a handle used
// only for one-shot listener matching.
type Push struct {
	Header  RequestHeader   `cbor:"2,keyasint"`
	Payload cbor.RawMessage `cbor:"3,keyasint,omitempty"`
}

// Inbound is a decoded inbound message: either *Response or *Push.
type Inbound interface {
	inbound()
}

func (*Response) inbound() {}
func (*Push) inbound()     {}

// IsGood reports whether the response carries a zero service result.
func (r *Response) IsGood() bool {
	return r.Header.ServiceResult.IsGood()
}

// DecodePayload decodes the raw response payload into v.
func (r *Response) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return Unmarshal(r.Payload, v)
}

// DecodePayload decodes the raw push payload into v.
func (p *Push) DecodePayload(v any) error {
	if len(p.Payload) == 0 {
		return nil
	}
	return Unmarshal(p.Payload, v)
}
