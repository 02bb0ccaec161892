package subscription

import (
	"sync"
	"time"

	"github.com/uaflow-protocol/uaflow-go/pkg/interaction"
	"github.com/uaflow-protocol/uaflow-go/pkg/log"
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// Default subscription parameters.
const (
	DefaultPublishingInterval = 500.0 // milliseconds
	DefaultLifetimeCount      = 10000
	DefaultKeepAliveCount     = 10
	DefaultMaxNotifications   = 0 // unlimited
	DefaultSamplingInterval   = 500.0
	defaultQueueSize          = 1
)

// Config holds the subscription parameters negotiated with the server.
type Config struct {
	// PublishingInterval in milliseconds.
	PublishingInterval float64

	// LifetimeCount is the number of publishing intervals the server keeps
	// the subscription alive without a publish request.
	LifetimeCount uint32

	// KeepAliveCount is the number of empty publishing intervals before
	// the server sends a keep-alive notification.
	KeepAliveCount uint32

	// MaxNotifications per publish response, 0 for unlimited.
	MaxNotifications uint32

	// Priority relative to other subscriptions of the session.
	Priority uint8

	// SamplingInterval is the default per-item sampling interval in
	// milliseconds.
	SamplingInterval float64
}

// DefaultConfig returns the default subscription configuration.
func DefaultConfig() Config {
	return Config{
		PublishingInterval: DefaultPublishingInterval,
		LifetimeCount:      DefaultLifetimeCount,
		KeepAliveCount:     DefaultKeepAliveCount,
		MaxNotifications:   DefaultMaxNotifications,
		SamplingInterval:   DefaultSamplingInterval,
	}
}

// Manager drives one server-side subscription: its lifecycle, its publish
// loop, and its monitored items.
type Manager struct {
	mu sync.Mutex

	dispatcher *interaction.Dispatcher
	handles    *interaction.HandleFactory

	config Config
	state  State

	subscriptionID     uint32
	lastSequenceNumber uint32

	// assumeSuccess keeps the original optimistic behavior: the publish
	// state toggles when the SetPublishingMode request is sent, not when
	// its response confirms it.
	assumeSuccess bool
	pendingState  *State

	// acks are sequence numbers to acknowledge on the next publish call,
	// one cycle behind their arrival.
	acks []wire.SubscriptionAcknowledgement

	// items is the monitored item map keyed by client handle.
	items map[uint32]*MonitoredItem

	// In-flight positional batches keyed by request handle.
	pendingTranslate map[uint32][]*MonitoredItem
	pendingCreate    map[uint32][]*MonitoredItem

	onStateChange func(oldState, newState State)
	onValue       func(item *MonitoredItem)
	onPublish     func(result *wire.PublishResult)

	logger   log.Logger
	clientID string
}

// NewManager creates a subscription manager with the default configuration.
func NewManager(dispatcher *interaction.Dispatcher, handles *interaction.HandleFactory) *Manager {
	return NewManagerWithConfig(dispatcher, handles, DefaultConfig())
}

// NewManagerWithConfig creates a subscription manager with a custom
// configuration.
func NewManagerWithConfig(dispatcher *interaction.Dispatcher, handles *interaction.HandleFactory, config Config) *Manager {
	if config.PublishingInterval <= 0 {
		config.PublishingInterval = DefaultPublishingInterval
	}
	if config.LifetimeCount == 0 {
		config.LifetimeCount = DefaultLifetimeCount
	}
	if config.KeepAliveCount == 0 {
		config.KeepAliveCount = DefaultKeepAliveCount
	}
	if config.SamplingInterval <= 0 {
		config.SamplingInterval = DefaultSamplingInterval
	}

	return &Manager{
		dispatcher:       dispatcher,
		handles:          handles,
		config:           config,
		state:            StateClosed,
		assumeSuccess:    true,
		items:            make(map[uint32]*MonitoredItem),
		pendingTranslate: make(map[uint32][]*MonitoredItem),
		pendingCreate:    make(map[uint32][]*MonitoredItem),
		logger:           log.NoopLogger{},
	}
}

// SetLogger sets the protocol logger and client instance id.
func (m *Manager) SetLogger(logger log.Logger, clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger == nil {
		logger = log.NoopLogger{}
	}
	m.logger = logger
	m.clientID = clientID
}

// SetAssumeSuccess controls whether the publish state toggles before the
// SetPublishingMode response is inspected. True reproduces the original
// optimistic behavior.
func (m *Manager) SetAssumeSuccess(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assumeSuccess = v
}

// OnStateChange sets a callback for state transitions.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnValue sets a callback fired for every monitored item value update.
func (m *Manager) OnValue(fn func(item *MonitoredItem)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onValue = fn
}

// OnPublish sets a callback fired for every publish result, after value
// updates have been applied. Wire the slot registry's Dispatch here.
func (m *Manager) OnPublish(fn func(result *wire.PublishResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPublish = fn
}

// State returns the current subscription state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SubscriptionID returns the server-assigned subscription id, 0 when none.
func (m *Manager) SubscriptionID() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscriptionID
}

// LastSequenceNumber returns the sequence number of the most recent
// notification message.
func (m *Manager) LastSequenceNumber() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSequenceNumber
}

// PendingAcks returns a copy of the acknowledgement queue.
func (m *Manager) PendingAcks() []wire.SubscriptionAcknowledgement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]wire.SubscriptionAcknowledgement, len(m.acks))
	copy(out, m.acks)
	return out
}

// Item returns the monitored item registered under the client handle.
func (m *Manager) Item(clientHandle uint32) (*MonitoredItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[clientHandle]
	return item, ok
}

// Items returns a copy of the monitored item map keyed by client handle.
func (m *Manager) Items() map[uint32]*MonitoredItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uint32]*MonitoredItem, len(m.items))
	for handle, item := range m.items {
		out[handle] = item
	}
	return out
}

func (m *Manager) transition(next State, reason string) {
	if m.state == next {
		return
	}
	old := m.state
	m.state = next

	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		ClientID:  m.clientID,
		Direction: log.DirectionIn,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   "subscription",
			OldState: old.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})

	if m.onStateChange != nil {
		m.onStateChange(old, next)
	}
}

// Create sends CreateSubscription with publishing initially disabled.
// Enabling is a separate explicit action via SetEnabled.
func (m *Manager) Create() error {
	m.mu.Lock()
	params := &wire.CreateSubscriptionParams{
		RequestedPublishingInterval: m.config.PublishingInterval,
		RequestedLifetimeCount:      m.config.LifetimeCount,
		RequestedMaxKeepAliveCount:  m.config.KeepAliveCount,
		MaxNotificationsPerPublish:  m.config.MaxNotifications,
		PublishingEnabled:           false,
		Priority:                    m.config.Priority,
	}
	m.mu.Unlock()

	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceCreateSubscriptionRequest,
		Payload:   params,
	}, 0)
	return err
}

// SetEnabled sends SetPublishingMode and toggles the state machine: Closed
// opens, Open closes. By default the state changes before the response is
// observed; with AssumeSuccess false the transition waits for a good
// response.
func (m *Manager) SetEnabled(enabled bool) error {
	m.mu.Lock()
	target := StateOpen
	if m.state == StateOpen {
		target = StateClosed
	}
	if m.assumeSuccess {
		m.transition(target, "publishing mode toggled")
	} else {
		m.pendingState = &target
	}
	params := &wire.SetPublishingModeParams{
		PublishingEnabled: enabled,
		SubscriptionIDs:   []uint32{m.subscriptionID},
	}
	m.mu.Unlock()

	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceSetPublishingModeRequest,
		Payload:   params,
	}, 0)
	return err
}

// Modify sends ModifySubscription with the given parameters for the current
// subscription.
func (m *Manager) Modify(config Config) error {
	m.mu.Lock()
	m.config.PublishingInterval = config.PublishingInterval
	m.config.LifetimeCount = config.LifetimeCount
	m.config.KeepAliveCount = config.KeepAliveCount
	m.config.MaxNotifications = config.MaxNotifications
	m.config.Priority = config.Priority
	params := &wire.ModifySubscriptionParams{
		SubscriptionID:              m.subscriptionID,
		RequestedPublishingInterval: config.PublishingInterval,
		RequestedLifetimeCount:      config.LifetimeCount,
		RequestedMaxKeepAliveCount:  config.KeepAliveCount,
		MaxNotificationsPerPublish:  config.MaxNotifications,
		Priority:                    config.Priority,
	}
	m.mu.Unlock()

	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceModifySubscriptionRequest,
		Payload:   params,
	}, 0)
	return err
}

// Delete sends DeleteSubscriptions for the current subscription. Local
// state resets when the response arrives.
func (m *Manager) Delete() error {
	m.mu.Lock()
	params := &wire.DeleteSubscriptionsParams{
		SubscriptionIDs: []uint32{m.subscriptionID},
	}
	m.mu.Unlock()

	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceDeleteSubscriptionsRequest,
		Payload:   params,
	}, 0)
	return err
}

// Subscribe registers monitored items. Items without a browse path resolve
// immediately to their node id and are created server-side right away;
// items with a path are batched into one TranslateBrowsePathsToNodeIds
// request and created once resolution completes.
func (m *Manager) Subscribe(items []*MonitoredItem, callerHandle uint32) error {
	m.mu.Lock()
	var toTranslate []*MonitoredItem
	var toCreate []*MonitoredItem
	for _, item := range items {
		if item.Resolved() || item.Err != nil {
			continue
		}
		if item.ClientHandle == 0 {
			item.ClientHandle = m.handles.Next()
		}
		if item.SubscriberHandle == 0 {
			item.SubscriberHandle = item.ClientHandle
		}
		if item.AttributeID == 0 {
			item.AttributeID = wire.AttributeValue
		}
		if item.SamplingInterval <= 0 {
			item.SamplingInterval = m.config.SamplingInterval
		}
		m.items[item.ClientHandle] = item

		if item.BrowsePath == nil {
			item.resolveTo(item.NodeID)
			toCreate = append(toCreate, item)
		} else {
			toTranslate = append(toTranslate, item)
		}
	}
	m.mu.Unlock()

	if len(toTranslate) > 0 {
		if err := m.sendTranslate(toTranslate, callerHandle); err != nil {
			return err
		}
	}
	if len(toCreate) > 0 {
		return m.sendCreateItems(toCreate, callerHandle)
	}
	return nil
}

// Unsubscribe deletes the monitored items registered under the given client
// handles. The local server id is cleared and the item evicted immediately,
// not deferred to the response.
func (m *Manager) Unsubscribe(clientHandles ...uint32) error {
	m.mu.Lock()
	var serverIDs []uint32
	for _, handle := range clientHandles {
		item, ok := m.items[handle]
		if !ok {
			continue
		}
		if item.ServerID != 0 {
			serverIDs = append(serverIDs, item.ServerID)
			item.ServerID = 0
		}
		delete(m.items, handle)
	}
	subscriptionID := m.subscriptionID
	m.mu.Unlock()

	if len(serverIDs) == 0 {
		return nil
	}
	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceDeleteMonitoredItemsRequest,
		Payload: &wire.DeleteMonitoredItemsParams{
			SubscriptionID:   subscriptionID,
			MonitoredItemIDs: serverIDs,
		},
	}, 0)
	return err
}

// ModifyItems changes the sampling interval of already-created items.
func (m *Manager) ModifyItems(samplingInterval float64, clientHandles ...uint32) error {
	m.mu.Lock()
	var requests []wire.MonitoredItemModifyRequest
	for _, handle := range clientHandles {
		item, ok := m.items[handle]
		if !ok || item.ServerID == 0 {
			continue
		}
		item.SamplingInterval = samplingInterval
		requests = append(requests, wire.MonitoredItemModifyRequest{
			MonitoredItemID: item.ServerID,
			RequestedParameters: wire.MonitoringParameters{
				ClientHandle:     item.ClientHandle,
				SamplingInterval: samplingInterval,
				QueueSize:        defaultQueueSize,
				DiscardOldest:    true,
			},
		})
	}
	subscriptionID := m.subscriptionID
	m.mu.Unlock()

	if len(requests) == 0 {
		return nil
	}
	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceModifyMonitoredItemsRequest,
		Payload: &wire.ModifyMonitoredItemsParams{
			SubscriptionID:     subscriptionID,
			TimestampsToReturn: wire.TimestampsBoth,
			ItemsToModify:      requests,
		},
	}, 0)
	return err
}

func (m *Manager) sendTranslate(batch []*MonitoredItem, callerHandle uint32) error {
	paths := make([]wire.BrowsePath, len(batch))
	for i, item := range batch {
		paths[i] = wire.BrowsePath{
			StartingNode: item.NodeID,
			RelativePath: *item.BrowsePath,
		}
	}

	handle := m.dispatcher.NextHandle()
	m.mu.Lock()
	m.pendingTranslate[handle] = batch
	m.mu.Unlock()

	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceTranslateBrowsePathsRequest,
		Header:    wire.RequestHeader{RequestHandle: handle},
		Payload:   &wire.TranslateBrowsePathsParams{BrowsePaths: paths},
	}, callerHandle)
	if err != nil {
		m.mu.Lock()
		delete(m.pendingTranslate, handle)
		m.mu.Unlock()
		m.failBatch(batch, err)
	}
	return err
}

func (m *Manager) sendCreateItems(batch []*MonitoredItem, callerHandle uint32) error {
	requests := make([]wire.MonitoredItemCreateRequest, len(batch))
	for i, item := range batch {
		requests[i] = wire.MonitoredItemCreateRequest{
			ItemToMonitor: wire.ReadValueID{
				NodeID:      item.ResolvedNodeID,
				AttributeID: item.AttributeID,
			},
			MonitoringMode: wire.MonitoringReporting,
			RequestedParameters: wire.MonitoringParameters{
				ClientHandle:     item.ClientHandle,
				SamplingInterval: item.SamplingInterval,
				QueueSize:        defaultQueueSize,
				DiscardOldest:    true,
			},
		}
	}

	handle := m.dispatcher.NextHandle()
	m.mu.Lock()
	m.pendingCreate[handle] = batch
	subscriptionID := m.subscriptionID
	m.mu.Unlock()

	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceCreateMonitoredItemsRequest,
		Header:    wire.RequestHeader{RequestHandle: handle},
		Payload: &wire.CreateMonitoredItemsParams{
			SubscriptionID:     subscriptionID,
			TimestampsToReturn: wire.TimestampsBoth,
			ItemsToCreate:      requests,
		},
	}, callerHandle)
	if err != nil {
		m.mu.Lock()
		delete(m.pendingCreate, handle)
		m.mu.Unlock()
		m.failBatch(batch, err)
	}
	return err
}

func (m *Manager) failBatch(batch []*MonitoredItem, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range batch {
		item.Err = err
	}
}

// matcher selects the responses this manager consumes: all subscription and
// monitored item services, plus translate responses belonging to its own
// in-flight batches.
func (m *Manager) matcher(entry interaction.Completed) bool {
	switch entry.Response.ServiceID {
	case wire.ServiceCreateSubscriptionResponse,
		wire.ServiceModifySubscriptionResponse,
		wire.ServiceDeleteSubscriptionsResponse,
		wire.ServiceSetPublishingModeResponse,
		wire.ServicePublishResponse,
		wire.ServiceCreateMonitoredItemsResponse,
		wire.ServiceModifyMonitoredItemsResponse,
		wire.ServiceDeleteMonitoredItemsResponse:
		return true
	case wire.ServiceTranslateBrowsePathsResponse:
		m.mu.Lock()
		_, ok := m.pendingTranslate[entry.Response.Header.RequestHandle]
		m.mu.Unlock()
		return ok
	default:
		return false
	}
}

// Drain consumes subscription responses from the dispatcher. Wire it to the
// dispatcher's OnMessage hook.
func (m *Manager) Drain() {
	for _, entry := range m.dispatcher.ProcessMessages(m.matcher) {
		resp := entry.Response
		switch resp.ServiceID {
		case wire.ServiceCreateSubscriptionResponse:
			m.handleCreateSubscriptionResponse(resp)
		case wire.ServiceSetPublishingModeResponse:
			m.handleSetPublishingModeResponse(resp)
		case wire.ServicePublishResponse:
			m.handlePublishResponse(resp)
		case wire.ServiceDeleteSubscriptionsResponse:
			m.handleDeleteSubscriptionsResponse(resp)
		case wire.ServiceTranslateBrowsePathsResponse:
			m.handleTranslateResponse(resp)
		case wire.ServiceCreateMonitoredItemsResponse:
			m.handleCreateItemsResponse(resp)
		}
	}
}

func (m *Manager) handleCreateSubscriptionResponse(resp *wire.Response) {
	if !resp.IsGood() {
		return
	}
	var result wire.CreateSubscriptionResult
	if err := resp.DecodePayload(&result); err != nil {
		m.logError("decode CreateSubscriptionResult", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptionID = result.SubscriptionID
	if result.RevisedPublishingInterval > 0 {
		m.config.PublishingInterval = result.RevisedPublishingInterval
	}
	if result.RevisedLifetimeCount > 0 {
		m.config.LifetimeCount = result.RevisedLifetimeCount
	}
	if result.RevisedMaxKeepAliveCount > 0 {
		m.config.KeepAliveCount = result.RevisedMaxKeepAliveCount
	}
}

func (m *Manager) handleSetPublishingModeResponse(resp *wire.Response) {
	m.mu.Lock()
	if m.pendingState != nil {
		if resp.IsGood() {
			m.transition(*m.pendingState, "publishing mode confirmed")
		}
		m.pendingState = nil
	}
	publish := m.state == StateOpen
	m.mu.Unlock()

	if publish {
		m.sendPublish()
	}
}

func (m *Manager) handlePublishResponse(resp *wire.Response) {
	var result wire.PublishResult
	if resp.IsGood() {
		if err := resp.DecodePayload(&result); err != nil {
			m.logError("decode PublishResult", err)
		}
	}

	m.mu.Lock()
	for _, seq := range result.AvailableSequenceNumbers {
		m.acks = append(m.acks, wire.SubscriptionAcknowledgement{
			SubscriptionID: result.SubscriptionID,
			SequenceNumber: seq,
		})
	}
	if result.NotificationMessage.SequenceNumber > 0 {
		m.lastSequenceNumber = result.NotificationMessage.SequenceNumber
	}
	onValue := m.onValue
	var updated []*MonitoredItem
	for _, data := range result.NotificationMessage.NotificationData {
		for _, notification := range data.MonitoredItems {
			if item, ok := m.items[notification.ClientHandle]; ok {
				item.LastValue = notification.Value
				updated = append(updated, item)
			}
		}
	}
	onPublish := m.onPublish
	rearm := m.state == StateOpen
	m.mu.Unlock()

	if onValue != nil {
		for _, item := range updated {
			onValue(item)
		}
	}
	if onPublish != nil {
		onPublish(&result)
	}
	if rearm {
		m.sendPublish()
	}
}

func (m *Manager) handleDeleteSubscriptionsResponse(resp *wire.Response) {
	if !resp.IsGood() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptionID = 0
	m.acks = nil
	m.transition(StateClosed, "subscription deleted")
}

func (m *Manager) handleTranslateResponse(resp *wire.Response) {
	m.mu.Lock()
	batch, ok := m.pendingTranslate[resp.Header.RequestHandle]
	delete(m.pendingTranslate, resp.Header.RequestHandle)
	m.mu.Unlock()
	if !ok {
		return
	}

	if err := wire.ServiceError(resp.Header); err != nil {
		m.failBatch(batch, err)
		return
	}
	var result wire.TranslateBrowsePathsResultSet
	if err := resp.DecodePayload(&result); err != nil {
		m.failBatch(batch, err)
		return
	}

	m.mu.Lock()
	var resolved []*MonitoredItem
	for i, item := range batch {
		if i >= len(result.Results) {
			item.Err = &wire.StatusError{Status: wire.StatusBadUnexpectedError}
			continue
		}
		r := result.Results[i]
		switch {
		case r.StatusCode.IsBad():
			item.Err = &wire.StatusError{Status: r.StatusCode}
		case len(r.Targets) == 0:
			item.Err = &wire.StatusError{Status: wire.StatusBadNoMatch}
		default:
			item.resolveTo(r.Targets[0].TargetID)
			resolved = append(resolved, item)
		}
	}
	m.mu.Unlock()

	if len(resolved) > 0 {
		_ = m.sendCreateItems(resolved, 0)
	}
}

func (m *Manager) handleCreateItemsResponse(resp *wire.Response) {
	m.mu.Lock()
	batch, ok := m.pendingCreate[resp.Header.RequestHandle]
	delete(m.pendingCreate, resp.Header.RequestHandle)
	m.mu.Unlock()
	if !ok {
		return
	}

	if err := wire.ServiceError(resp.Header); err != nil {
		m.failBatch(batch, err)
		return
	}
	var result wire.CreateMonitoredItemsResultSet
	if err := resp.DecodePayload(&result); err != nil {
		m.failBatch(batch, err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range batch {
		if i >= len(result.Results) {
			item.Err = &wire.StatusError{Status: wire.StatusBadUnexpectedError}
			continue
		}
		r := result.Results[i]
		if r.StatusCode.IsBad() {
			item.Err = &wire.StatusError{Status: r.StatusCode}
			continue
		}
		item.ServerID = r.MonitoredItemID
	}
}

// sendPublish flushes the acknowledgement queue into a PublishRequest. On
// send failure the queue is restored so no acknowledgement is lost.
func (m *Manager) sendPublish() {
	m.mu.Lock()
	acks := m.acks
	m.acks = nil
	m.mu.Unlock()

	_, err := m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServicePublishRequest,
		Payload:   &wire.PublishParams{SubscriptionAcknowledgements: acks},
	}, 0)
	if err != nil {
		m.mu.Lock()
		m.acks = append(acks, m.acks...)
		m.mu.Unlock()
	}
}

func (m *Manager) logError(context string, err error) {
	m.logger.Log(log.Event{
		Timestamp: time.Now(),
		ClientID:  m.clientID,
		Direction: log.DirectionIn,
		Layer:     log.LayerSession,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerSession,
			Message: err.Error(),
			Context: context,
		},
	})
}
