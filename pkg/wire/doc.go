// Package wire implements the uaflow message encoding.
//
// All messages are CBOR maps. The envelope and headers use integer keys for
// compactness; service payloads use field-name keys because they are larger,
// service-specific structures that benefit from being self-describing.
//
// Three message shapes travel on a connection:
//
//   - Request: {1: serviceId, 2: requestHeader, 3: payload}
//   - Response: {1: serviceId, 2: responseHeader, 3: payload}
//   - Push: {1: ServicePushNotification, 2: requestHeader, 3: payload}
//
// A Push is an unsolicited server message. It is distinguished by the
// reserved ServicePushNotification service id and carries its own request
// handle in the nested header, which is used only for one-shot listener
// matching, never for request correlation.
//
// DecodeInbound returns the decoded message as an Inbound value, which is
// either *Response or *Push. Callers switch on the concrete type; there is no
// way to receive an inbound message that is neither.
package wire
