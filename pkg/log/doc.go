// Package log defines the protocol event logging interface for uaflow.
//
// Components emit typed Events (outgoing requests, inbound responses and
// pushes, state transitions, dropped requests) to a Logger. Applications
// choose the sink: NoopLogger discards everything, SlogAdapter bridges to
// log/slog, FileLogger captures a CBOR event stream for offline inspection,
// and MultiLogger fans out to several sinks.
//
// The outbound wire-layer event doubles as the "last network message"
// diagnostic: it carries a copy of the serialized payload most recently
// handed to the transport.
package log
