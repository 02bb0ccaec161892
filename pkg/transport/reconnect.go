package transport

import (
	"context"
	"sync"
	"time"
)

// Events receives channel lifecycle notifications. client.Client satisfies
// this interface.
type Events interface {
	ChannelConnecting()
	ChannelOpened()
	ChannelClosed()
}

// Reconnector maintains a connection to an endpoint, redialing with
// exponential backoff whenever it drops. It satisfies the engine's Channel
// contract: IsOpen and Send proxy to the live connection.
type Reconnector struct {
	mu       sync.Mutex
	endpoint string
	config   DialConfig
	backoff  *Backoff

	events  Events
	receive ReceiveFunc

	conn   *Conn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconnector creates a reconnector for the endpoint. It does not dial
// until Start is called.
func NewReconnector(endpointURL string, config DialConfig) *Reconnector {
	return &Reconnector{
		endpoint: endpointURL,
		config:   config,
		backoff:  NewBackoff(),
	}
}

// SetEvents registers the lifecycle observer. Must be called before Start.
func (r *Reconnector) SetEvents(events Events) {
	r.events = events
}

// SetReceiver registers the inbound frame consumer. Must be called before
// Start.
func (r *Reconnector) SetReceiver(fn ReceiveFunc) {
	r.receive = fn
}

// Start launches the connect loop.
func (r *Reconnector) Start() {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	ctx := r.ctx
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)
}

// Stop terminates the connect loop and closes any live connection.
func (r *Reconnector) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	conn := r.conn
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	r.wg.Wait()
}

// IsOpen reports whether a live connection exists.
func (r *Reconnector) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil && r.conn.IsOpen()
}

// Send writes one frame over the live connection.
func (r *Reconnector) Send(data []byte) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Send(data)
}

func (r *Reconnector) run(ctx context.Context) {
	defer r.wg.Done()

	for ctx.Err() == nil {
		r.notifyConnecting()

		conn, err := Dial(ctx, r.endpoint, r.config)
		if err != nil {
			r.notifyClosed()
			if !sleep(ctx, r.backoff) {
				return
			}
			continue
		}

		r.backoff.Reset()
		r.mu.Lock()
		r.conn = conn
		r.mu.Unlock()

		conn.Start(r.receive, nil)
		r.notifyOpened()

		select {
		case <-conn.Done():
		case <-ctx.Done():
			conn.Close()
		}

		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		r.notifyClosed()
	}
}

func (r *Reconnector) notifyConnecting() {
	if r.events != nil {
		r.events.ChannelConnecting()
	}
}

func (r *Reconnector) notifyOpened() {
	if r.events != nil {
		r.events.ChannelOpened()
	}
}

func (r *Reconnector) notifyClosed() {
	if r.events != nil {
		r.events.ChannelClosed()
	}
}

// sleep waits out the next backoff delay. It returns false when the
// context ended first.
func sleep(ctx context.Context, backoff *Backoff) bool {
	timer := time.NewTimer(backoff.Next())
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
