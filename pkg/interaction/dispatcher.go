package interaction

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/uaflow-protocol/uaflow-go/pkg/log"
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// Dispatcher errors.
var (
	ErrNoTransport = errors.New("no transport available")
	ErrNoRoute     = errors.New("service has no fallback route")
)

// DefaultTimeoutHint is the request timeout stamped on headers that carry
// none, in milliseconds.
const DefaultTimeoutHint uint32 = 60000

// PendingRequest is an in-flight request awaiting its response.
type PendingRequest struct {
	Handle       uint32
	CallerHandle uint32
	Request      *wire.Request
}

// Completed is a correlated (request, response) pair waiting to be drained.
type Completed struct {
	CallerHandle uint32
	Request      *wire.Request
	Response     *wire.Response
}

// Matcher selects completed entries during a drain.
type Matcher func(Completed) bool

// PushListener receives unsolicited server pushes.
type PushListener func(*wire.Push)

// DropObserver is notified when a pending request is discarded on transport
// failure. The request will never complete; the observer is the only signal.
type DropObserver func(req PendingRequest, cause error)

// Dispatcher correlates requests with responses and routes them over the
// active transport. All methods are safe for concurrent use.
type Dispatcher struct {
	mu sync.Mutex

	handles *HandleFactory
	channel Channel
	caller  Caller

	timeoutHint uint32
	authToken   string

	pending   map[uint32]PendingRequest
	completed []Completed
	counter   atomic.Uint64

	pushOnce      map[uint32]PushListener
	pushBroadcast []PushListener

	onMessage func()
	onDrop    DropObserver

	logger   log.Logger
	clientID string
}

// NewDispatcher creates a dispatcher using the given handle factory and
// transports. Either transport may be nil; a request with no usable
// transport fails with ErrNoTransport.
func NewDispatcher(handles *HandleFactory, channel Channel, caller Caller) *Dispatcher {
	return &Dispatcher{
		handles:     handles,
		channel:     channel,
		caller:      caller,
		timeoutHint: DefaultTimeoutHint,
		pending:     make(map[uint32]PendingRequest),
		pushOnce:    make(map[uint32]PushListener),
		logger:      log.NoopLogger{},
	}
}

// SetLogger sets the protocol logger and client instance id.
func (d *Dispatcher) SetLogger(logger log.Logger, clientID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if logger == nil {
		logger = log.NoopLogger{}
	}
	d.logger = logger
	d.clientID = clientID
}

// SetTimeoutHint sets the default timeout hint stamped on request headers.
func (d *Dispatcher) SetTimeoutHint(ms uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeoutHint = ms
}

// SetAuthToken sets the session authentication token stamped on request
// headers that carry none. An empty string clears it.
func (d *Dispatcher) SetAuthToken(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.authToken = token
}

// AuthToken returns the current session authentication token.
func (d *Dispatcher) AuthToken() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authToken
}

// SetOnMessage sets the consumer wake-up hook, invoked after every message
// counter increment.
func (d *Dispatcher) SetOnMessage(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessage = fn
}

// SetOnDrop sets the observer for pending requests discarded on transport
// failure.
func (d *Dispatcher) SetOnDrop(fn DropObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDrop = fn
}

// NextHandle returns a fresh handle for callers that need one before
// building a request.
func (d *Dispatcher) NextHandle() uint32 {
	return d.handles.Next()
}

// Send completes the request header, records the pending entry and hands the
// request to the transport. A zero callerHandle defaults to the request
// handle. The returned handle identifies the request in the completed queue.
func (d *Dispatcher) Send(req *wire.Request, callerHandle uint32) (uint32, error) {
	d.mu.Lock()

	if req.Header.RequestHandle == 0 {
		req.Header.RequestHandle = d.handles.Next()
	}
	if req.Header.Timestamp.IsZero() {
		req.Header.Timestamp = time.Now().UTC()
	}
	if req.Header.TimeoutHint == 0 {
		req.Header.TimeoutHint = d.timeoutHint
	}
	if req.Header.AuthenticationToken == "" {
		req.Header.AuthenticationToken = d.authToken
	}

	handle := req.Header.RequestHandle
	if callerHandle == 0 {
		callerHandle = handle
	}

	entry := PendingRequest{Handle: handle, CallerHandle: callerHandle, Request: req}
	d.pending[handle] = entry

	channel := d.channel
	caller := d.caller
	logger := d.logger
	clientID := d.clientID
	d.mu.Unlock()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		d.drop(entry, err)
		return 0, err
	}

	// Diagnostic copy of the outgoing payload.
	logger.Log(log.Event{
		Timestamp: time.Now(),
		ClientID:  clientID,
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			ServiceID:     req.ServiceID,
			RequestHandle: handle,
			Data:          data,
		},
	})

	if channel != nil && channel.IsOpen() {
		if err := channel.Send(data); err != nil {
			d.drop(entry, err)
			return 0, err
		}
		return handle, nil
	}

	if caller == nil {
		err := ErrNoTransport
		d.drop(entry, err)
		return 0, err
	}

	if err := d.callFallback(entry, data); err != nil {
		return 0, err
	}
	return handle, nil
}

// callFallback issues the synchronous point-to-point call and synthesizes a
// response envelope from the outcome, so callers observe the same shape as
// channel traffic.
func (d *Dispatcher) callFallback(entry PendingRequest, data []byte) error {
	route, ok := wire.LookupRoute(entry.Request.ServiceID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrNoRoute, entry.Request.ServiceID)
		d.drop(entry, err)
		return err
	}

	payload, err := wire.Marshal(Callout{
		CallerHandle: entry.CallerHandle,
		Request:      cbor.RawMessage(data),
	})
	if err != nil {
		d.drop(entry, err)
		return err
	}

	result, err := d.caller.Call(route.Path, payload)
	if err != nil {
		var callErr *CallError
		if errors.As(err, &callErr) {
			d.HandleResponse(&wire.Response{
				ServiceID: route.Response,
				Header: wire.ResponseHeader{
					RequestHandle: entry.Handle,
					Timestamp:     time.Now().UTC(),
					ServiceResult: wire.StatusCode(callErr.Status),
					StringTable:   []string{callErr.Message},
				},
			})
			return nil
		}
		// Unexpected transport failure: no response will ever be
		// synthesized for this request.
		d.drop(entry, err)
		return err
	}

	d.HandleResponse(&wire.Response{
		ServiceID: route.Response,
		Header: wire.ResponseHeader{
			RequestHandle: entry.Handle,
			Timestamp:     time.Now().UTC(),
		},
		Payload: cbor.RawMessage(result),
	})
	return nil
}

// drop removes a pending entry that will never be satisfied.
func (d *Dispatcher) drop(entry PendingRequest, cause error) {
	d.mu.Lock()
	delete(d.pending, entry.Handle)
	onDrop := d.onDrop
	logger := d.logger
	clientID := d.clientID
	d.mu.Unlock()

	logger.Log(log.Event{
		Timestamp: time.Now(),
		ClientID:  clientID,
		Direction: log.DirectionOut,
		Layer:     log.LayerEngine,
		Category:  log.CategoryDrop,
		Drop: &log.DropEvent{
			RequestHandle: entry.Handle,
			CallerHandle:  entry.CallerHandle,
			ServiceID:     entry.Request.ServiceID,
			Reason:        cause.Error(),
		},
	})

	if onDrop != nil {
		onDrop(entry, cause)
	}
}

// Dispatch routes a decoded inbound message to the correlation path or the
// push path.
func (d *Dispatcher) Dispatch(msg wire.Inbound) {
	switch m := msg.(type) {
	case *wire.Response:
		d.HandleResponse(m)
	case *wire.Push:
		d.HandlePush(m)
	}
}

// IngestBytes decodes one inbound message from the channel and dispatches it.
func (d *Dispatcher) IngestBytes(data []byte) error {
	msg, err := wire.DecodeInbound(data)
	if err != nil {
		return err
	}
	d.Dispatch(msg)
	return nil
}

// HandleResponse correlates a response by request handle. A response whose
// handle matches no pending entry is silently discarded; the handle never
// existed or was already consumed.
func (d *Dispatcher) HandleResponse(resp *wire.Response) {
	handle := resp.Header.RequestHandle

	d.mu.Lock()
	entry, ok := d.pending[handle]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, handle)
	d.completed = append(d.completed, Completed{
		CallerHandle: entry.CallerHandle,
		Request:      entry.Request,
		Response:     resp,
	})
	d.counter.Add(1)
	onMessage := d.onMessage
	logger := d.logger
	clientID := d.clientID
	d.mu.Unlock()

	result := resp.Header.ServiceResult
	logger.Log(log.Event{
		Timestamp: time.Now(),
		ClientID:  clientID,
		Direction: log.DirectionIn,
		Layer:     log.LayerEngine,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			ServiceID:     resp.ServiceID,
			RequestHandle: handle,
			ServiceResult: &result,
		},
	})

	if onMessage != nil {
		onMessage()
	}
}

// HandlePush routes an unsolicited push: a one-shot listener registered for
// the push-embedded handle wins and is removed; otherwise every broadcast
// listener fires.
func (d *Dispatcher) HandlePush(push *wire.Push) {
	handle := push.Header.RequestHandle

	d.mu.Lock()
	if fn, ok := d.pushOnce[handle]; ok {
		delete(d.pushOnce, handle)
		d.mu.Unlock()
		fn(push)
		return
	}
	listeners := make([]PushListener, len(d.pushBroadcast))
	copy(listeners, d.pushBroadcast)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(push)
	}
}

// AddPushListener registers a one-shot listener for pushes carrying the
// given handle. It fires at most once and is then removed.
func (d *Dispatcher) AddPushListener(handle uint32, fn PushListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushOnce[handle] = fn
}

// AddBroadcastPushListener registers a listener for pushes no one-shot
// listener claims.
func (d *Dispatcher) AddBroadcastPushListener(fn PushListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushBroadcast = append(d.pushBroadcast, fn)
}

// ProcessMessages atomically partitions the completed queue: entries the
// matcher accepts are returned in their original order and removed; the rest
// stay queued in their original order. This is the only consumption
// primitive.
func (d *Dispatcher) ProcessMessages(matcher Matcher) []Completed {
	d.mu.Lock()
	defer d.mu.Unlock()

	var matched []Completed
	kept := d.completed[:0]
	for _, entry := range d.completed {
		if matcher(entry) {
			matched = append(matched, entry)
		} else {
			kept = append(kept, entry)
		}
	}
	d.completed = kept
	return matched
}

// MessageCount returns the monotonically increasing completed-message
// counter.
func (d *Dispatcher) MessageCount() uint64 {
	return d.counter.Load()
}

// PendingCount returns the number of in-flight requests.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// QueuedCount returns the number of completed entries not yet drained.
func (d *Dispatcher) QueuedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.completed)
}

// ChannelOpen reports whether the streaming channel is currently usable.
func (d *Dispatcher) ChannelOpen() bool {
	d.mu.Lock()
	channel := d.channel
	d.mu.Unlock()
	return channel != nil && channel.IsOpen()
}

// MatchService returns a matcher selecting completed entries whose response
// carries one of the given service ids.
func MatchService(ids ...wire.ServiceID) Matcher {
	return func(c Completed) bool {
		for _, id := range ids {
			if c.Response.ServiceID == id {
				return true
			}
		}
		return false
	}
}

// MatchCallerHandle returns a matcher selecting completed entries recorded
// under the given caller handle.
func MatchCallerHandle(handle uint32) Matcher {
	return func(c Completed) bool {
		return c.CallerHandle == handle
	}
}
