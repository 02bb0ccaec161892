package client

import (
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// The operations below build and send service requests; each returns the
// request handle the response will carry. Results are consumed via
// ProcessMessages with a matcher on the response service id or the caller
// handle.

// Browse requests the references of the given nodes.
func (c *Client) Browse(params *wire.BrowseParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceBrowseRequest,
		Payload:   params,
	}, callerHandle)
}

// BrowseNext continues a browse from its continuation points.
func (c *Client) BrowseNext(params *wire.BrowseNextParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceBrowseNextRequest,
		Payload:   params,
	}, callerHandle)
}

// Read requests attribute values.
func (c *Client) Read(params *wire.ReadParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceReadRequest,
		Payload:   params,
	}, callerHandle)
}

// Write writes attribute values.
func (c *Client) Write(params *wire.WriteParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceWriteRequest,
		Payload:   params,
	}, callerHandle)
}

// Call invokes server-side methods.
func (c *Client) Call(params *wire.CallParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceCallRequest,
		Payload:   params,
	}, callerHandle)
}

// TranslateBrowsePaths resolves symbolic paths to node identifiers.
func (c *Client) TranslateBrowsePaths(params *wire.TranslateBrowsePathsParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceTranslateBrowsePathsRequest,
		Payload:   params,
	}, callerHandle)
}

// HistoryRead reads historical values.
func (c *Client) HistoryRead(params *wire.HistoryReadParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceHistoryReadRequest,
		Payload:   params,
	}, callerHandle)
}

// HistoryUpdate updates historical values.
func (c *Client) HistoryUpdate(params *wire.HistoryUpdateParams, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceHistoryUpdateRequest,
		Payload:   params,
	}, callerHandle)
}
