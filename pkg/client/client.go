package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uaflow-protocol/uaflow-go/pkg/config"
	"github.com/uaflow-protocol/uaflow-go/pkg/interaction"
	"github.com/uaflow-protocol/uaflow-go/pkg/log"
	"github.com/uaflow-protocol/uaflow-go/pkg/session"
	"github.com/uaflow-protocol/uaflow-go/pkg/subscription"
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// Client is one protocol engine instance bound to an injected transport.
type Client struct {
	id     string
	config config.Config

	handles      *interaction.HandleFactory
	dispatcher   *interaction.Dispatcher
	session      *session.Manager
	subscription *subscription.Manager
	slots        *subscription.SlotRegistry

	logger log.Logger

	mu        sync.Mutex
	connected bool
	slotRefs  int
	pollItems []wire.ReadValueID
	pollStop  chan struct{}
}

// New creates a client over the given transports. Either transport may be
// nil; requests fail with ErrNoTransport when neither can carry them.
func New(cfg config.Config, channel interaction.Channel, caller interaction.Caller, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NoopLogger{}
	}

	c := &Client{
		id:      uuid.NewString(),
		config:  cfg,
		handles: interaction.NewHandleFactory(0),
		logger:  logger,
	}

	c.dispatcher = interaction.NewDispatcher(c.handles, channel, caller)
	c.dispatcher.SetLogger(logger, c.id)
	if cfg.TimeoutHint > 0 {
		c.dispatcher.SetTimeoutHint(cfg.TimeoutHint)
	}

	c.session = session.NewManager(c.dispatcher)
	c.session.SetLogger(logger, c.id)
	c.session.SetSessionName(cfg.SessionName)
	c.session.SetSessionTimeout(cfg.SessionTimeout)
	c.session.SetAssumeSuccess(cfg.AssumeSuccess)

	subConfig := subscription.DefaultConfig()
	subConfig.PublishingInterval = cfg.Subscription.PublishingInterval
	subConfig.LifetimeCount = cfg.Subscription.LifetimeCount
	subConfig.KeepAliveCount = cfg.Subscription.KeepAliveCount
	subConfig.MaxNotifications = cfg.Subscription.MaxNotifications
	subConfig.Priority = cfg.Subscription.Priority
	subConfig.SamplingInterval = cfg.Subscription.SamplingInterval
	c.subscription = subscription.NewManagerWithConfig(c.dispatcher, c.handles, subConfig)
	c.subscription.SetLogger(logger, c.id)
	c.subscription.SetAssumeSuccess(cfg.AssumeSuccess)

	c.slots = subscription.NewSlotRegistry(cfg.SlotCapacity)
	c.subscription.OnPublish(func(result *wire.PublishResult) {
		items := c.subscription.Items()
		// Results from the shared underlying subscription carry the
		// server-assigned id; fan them out to every slot under its own
		// logical id. Anything else is addressed by slot id directly.
		if serverID := c.subscription.SubscriptionID(); serverID != 0 && result.SubscriptionID == serverID {
			c.slots.DispatchAll(result, items)
			return
		}
		c.slots.Dispatch(result, items)
	})

	c.dispatcher.SetOnMessage(func() {
		c.session.Drain()
		c.subscription.Drain()
	})

	if cfg.SessionEnabled {
		c.session.SetEnabled(true)
	}

	return c
}

// ID returns the unique client instance id.
func (c *Client) ID() string {
	return c.id
}

// Dispatcher exposes the request registry for collaborators that drain
// their own responses.
func (c *Client) Dispatcher() *interaction.Dispatcher {
	return c.dispatcher
}

// Session exposes the session state machine.
func (c *Client) Session() *session.Manager {
	return c.session
}

// Subscription exposes the subscription manager.
func (c *Client) Subscription() *subscription.Manager {
	return c.subscription
}

// ChannelConnecting signals that the channel started a connection attempt.
func (c *Client) ChannelConnecting() {
	c.session.HandleChannelConnecting()
}

// ChannelOpened signals that the channel became usable. Degraded polling
// stops; the session handshake starts if a session is desired.
func (c *Client) ChannelOpened() {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	c.stopPolling()
	c.session.HandleChannelOpen()
}

// ChannelClosed signals that the channel closed. An active session is shut
// down and degraded polling starts when configured.
func (c *Client) ChannelClosed() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.session.HandleChannelClosed()
	c.startPolling()
}

// Close stops background work and disables the session.
func (c *Client) Close() {
	c.stopPolling()
	c.session.SetEnabled(false)
}

// IsConnected reports whether the channel is currently open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SessionState returns the session machine state.
func (c *Client) SessionState() session.State {
	return c.session.State()
}

// SubscriptionState returns the subscription machine state.
func (c *Client) SubscriptionState() subscription.State {
	return c.subscription.State()
}

// LastSequenceNumber returns the sequence number of the most recent
// notification message.
func (c *Client) LastSequenceNumber() uint32 {
	return c.subscription.LastSequenceNumber()
}

// SendRequest sends a request, filling header defaults. It returns the
// request handle used for correlation.
func (c *Client) SendRequest(req *wire.Request, callerHandle uint32) (uint32, error) {
	return c.dispatcher.Send(req, callerHandle)
}

// ProcessMessages drains completed entries matching the given predicate.
func (c *Client) ProcessMessages(matcher interaction.Matcher) []interaction.Completed {
	return c.dispatcher.ProcessMessages(matcher)
}

// AddPushListener registers a one-shot listener for pushes carrying the
// given handle.
func (c *Client) AddPushListener(handle uint32, fn interaction.PushListener) {
	c.dispatcher.AddPushListener(handle, fn)
}

// AddBroadcastPushListener registers a listener for unclaimed pushes.
func (c *Client) AddBroadcastPushListener(fn interaction.PushListener) {
	c.dispatcher.AddBroadcastPushListener(fn)
}

// Subscribe registers monitored items on the underlying subscription.
func (c *Client) Subscribe(items []*subscription.MonitoredItem, callerHandle uint32) error {
	return c.subscription.Subscribe(items, callerHandle)
}

// Unsubscribe deletes monitored items by client handle.
func (c *Client) Unsubscribe(clientHandles ...uint32) error {
	return c.subscription.Unsubscribe(clientHandles...)
}

// OpenSubscription claims a logical subscriber slot. The first slot creates
// the underlying server-side subscription.
func (c *Client) OpenSubscription(callback subscription.PushCallback, context any) (uint32, error) {
	return c.slots.Create(callback, context, func(uint32) error {
		c.mu.Lock()
		first := c.slotRefs == 0
		c.slotRefs++
		c.mu.Unlock()
		if first && c.subscription.SubscriptionID() == 0 {
			if err := c.subscription.Create(); err != nil {
				// The slot is rolled back by the registry; undo the
				// count too so the next open is first again.
				c.mu.Lock()
				c.slotRefs--
				c.mu.Unlock()
				return err
			}
		}
		return nil
	})
}

// CloseSubscription releases a logical subscriber slot. Releasing the last
// slot deletes the underlying subscription.
func (c *Client) CloseSubscription(id uint32) error {
	return c.slots.Remove(id, func(uint32) error {
		c.mu.Lock()
		last := c.slotRefs == 1
		c.mu.Unlock()
		if last && c.subscription.SubscriptionID() != 0 {
			// The registry keeps the slot on error; leave the count
			// untouched so the release can be retried.
			if err := c.subscription.Delete(); err != nil {
				return err
			}
		}
		c.mu.Lock()
		if c.slotRefs > 0 {
			c.slotRefs--
		}
		c.mu.Unlock()
		return nil
	})
}

// AddPollItem registers a node attribute for degraded polling while the
// channel is down.
func (c *Client) AddPollItem(item wire.ReadValueID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pollItems = append(c.pollItems, item)
}

// startPolling begins periodic reads of the registered poll items over the
// fallback transport. No-op when polling is disabled or already running.
func (c *Client) startPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.PollInterval == 0 || c.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	c.pollStop = stop

	interval := time.Duration(c.config.PollInterval) * time.Millisecond
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.pollOnce()
			case <-stop:
				return
			}
		}
	}()
}

func (c *Client) stopPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pollStop != nil {
		close(c.pollStop)
		c.pollStop = nil
	}
}

func (c *Client) pollOnce() {
	c.mu.Lock()
	items := make([]wire.ReadValueID, len(c.pollItems))
	copy(items, c.pollItems)
	c.mu.Unlock()
	if len(items) == 0 {
		return
	}

	_, _ = c.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceReadRequest,
		Payload: &wire.ReadParams{
			TimestampsToReturn: wire.TimestampsBoth,
			NodesToRead:        items,
		},
	}, 0)
}
