// Package client assembles the protocol engine into one client instance.
//
// A Client owns its handle factory, dispatcher, session and subscription
// managers, and subscriber slot table; nothing is process-global, so
// multiple independent clients can coexist. The transport is injected:
// a persistent channel, a point-to-point caller, or both. Channel lifecycle
// events are forwarded in by whoever owns the channel.
//
// While the channel is down the client can degrade to periodic value reads
// over the fallback caller; polling stops as soon as the channel reopens.
package client
