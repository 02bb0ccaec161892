// Package interaction implements request correlation and dispatch for a
// uaflow client.
//
// A Dispatcher owns the three moving parts of the request path:
//
//  1. Handle assignment. A HandleFactory issues strictly increasing handles
//     used both as wire-level correlation ids and as local caller handles.
//
//  2. The request registry. Send records a pending entry per outgoing
//     request; HandleResponse correlates an inbound response by request
//     handle, moving the pair to the completed queue exactly once. State
//     machines drain the queue with ProcessMessages, each using its own
//     matcher; entries nobody matches stay queued.
//
//  3. Transport duality. When the streaming channel is open, requests go
//     over it and responses arrive asynchronously. When it is closed, the
//     request is routed through the service table to a synchronous
//     point-to-point call and the result is synthesized into a response
//     envelope, so callers observe exactly one response-shaped outcome
//     regardless of transport. Only an unexpected transport error breaks
//     this guarantee: the pending entry is dropped and the drop observer
//     notified.
//
// Unsolicited pushes bypass correlation entirely: they fire a one-shot
// listener registered for the push-embedded handle, or are broadcast to all
// push listeners when no one-shot listener matches.
package interaction
