// Package session drives the session-establishment state machine.
//
// The lifecycle is Disconnected -> Connecting -> NoSession -> Creating ->
// SessionActive and back to Disconnected; Error is reachable only by
// explicit external trigger. The machine reacts to channel events, to the
// session-enabled toggle, and to CreateSession/ActivateSession/CloseSession
// responses drained from the dispatcher.
//
// The authentication token returned by CreateSession is held session-local
// until ActivateSession completes; only then is it attached to the
// dispatcher so that subsequent request headers carry it. By default the
// machine advances optimistically on response arrival without inspecting
// the service result, matching long-standing client behavior; construct it
// with AssumeSuccess false to transition only on confirmed success.
package session
