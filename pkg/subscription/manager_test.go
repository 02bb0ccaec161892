package subscription

import (
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaflow-protocol/uaflow-go/pkg/interaction"
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// fakeChannel captures frames sent over a streaming channel.
type fakeChannel struct {
	mu   sync.Mutex
	open bool
	sent [][]byte
}

func (c *fakeChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

// sentRequest mirrors the request envelope with an opaque payload so tests
// can inspect what was put on the wire.
type sentRequest struct {
	ServiceID wire.ServiceID     `cbor:"1,keyasint"`
	Header    wire.RequestHeader `cbor:"2,keyasint"`
	Payload   cbor.RawMessage    `cbor:"3,keyasint,omitempty"`
}

func (c *fakeChannel) requests(t *testing.T) []sentRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]sentRequest, 0, len(c.sent))
	for _, data := range c.sent {
		var req sentRequest
		require.NoError(t, wire.Unmarshal(data, &req))
		out = append(out, req)
	}
	return out
}

func newTestManager() (*Manager, *interaction.Dispatcher, *fakeChannel) {
	channel := &fakeChannel{open: true}
	handles := interaction.NewHandleFactory(0)
	dispatcher := interaction.NewDispatcher(handles, channel, nil)
	manager := NewManager(dispatcher, handles)
	dispatcher.SetOnMessage(manager.Drain)
	return manager, dispatcher, channel
}

func respond(dispatcher *interaction.Dispatcher, handle uint32, id wire.ServiceID, payload any) {
	dispatcher.HandleResponse(&wire.Response{
		ServiceID: id,
		Header:    wire.ResponseHeader{RequestHandle: handle},
		Payload:   wire.MustRaw(payload),
	})
}

// establish creates the subscription and confirms it with the given server
// id.
func establish(t *testing.T, manager *Manager, dispatcher *interaction.Dispatcher, channel *fakeChannel, id uint32) {
	t.Helper()
	require.NoError(t, manager.Create())
	reqs := channel.requests(t)
	last := reqs[len(reqs)-1]
	require.Equal(t, wire.ServiceCreateSubscriptionRequest, last.ServiceID)
	respond(dispatcher, last.Header.RequestHandle, wire.ServiceCreateSubscriptionResponse,
		wire.CreateSubscriptionResult{SubscriptionID: id})
	require.Equal(t, id, manager.SubscriptionID())
}

func TestManager_Create(t *testing.T) {
	manager, dispatcher, channel := newTestManager()

	require.NoError(t, manager.Create())

	reqs := channel.requests(t)
	require.Len(t, reqs, 1)

	var params wire.CreateSubscriptionParams
	require.NoError(t, wire.Unmarshal(reqs[0].Payload, &params))
	assert.False(t, params.PublishingEnabled)
	assert.Equal(t, DefaultPublishingInterval, params.RequestedPublishingInterval)

	respond(dispatcher, reqs[0].Header.RequestHandle, wire.ServiceCreateSubscriptionResponse,
		wire.CreateSubscriptionResult{SubscriptionID: 7, RevisedPublishingInterval: 250})

	assert.Equal(t, uint32(7), manager.SubscriptionID())
	// Creating does not open the state machine.
	assert.Equal(t, StateClosed, manager.State())
}

func TestManager_PublishCycle(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	establish(t, manager, dispatcher, channel, 7)

	require.NoError(t, manager.SetEnabled(true))
	assert.Equal(t, StateOpen, manager.State())

	reqs := channel.requests(t)
	require.Len(t, reqs, 2)
	require.Equal(t, wire.ServiceSetPublishingModeRequest, reqs[1].ServiceID)

	var mode wire.SetPublishingModeParams
	require.NoError(t, wire.Unmarshal(reqs[1].Payload, &mode))
	assert.True(t, mode.PublishingEnabled)
	assert.Equal(t, []uint32{7}, mode.SubscriptionIDs)

	// The mode confirmation arms exactly one publish request.
	respond(dispatcher, reqs[1].Header.RequestHandle, wire.ServiceSetPublishingModeResponse,
		wire.SetPublishingModeResultSet{Results: []wire.StatusCode{wire.StatusGood}})

	reqs = channel.requests(t)
	require.Len(t, reqs, 3)
	require.Equal(t, wire.ServicePublishRequest, reqs[2].ServiceID)

	var publish wire.PublishParams
	require.NoError(t, wire.Unmarshal(reqs[2].Payload, &publish))
	assert.Empty(t, publish.SubscriptionAcknowledgements)

	// The publish response re-arms the cycle; its sequence numbers are
	// acknowledged on that next request, one cycle behind.
	respond(dispatcher, reqs[2].Header.RequestHandle, wire.ServicePublishResponse,
		wire.PublishResult{
			SubscriptionID:           7,
			AvailableSequenceNumbers: []uint32{1, 2},
			NotificationMessage:      wire.NotificationMessage{SequenceNumber: 2},
		})

	reqs = channel.requests(t)
	require.Len(t, reqs, 4)
	require.Equal(t, wire.ServicePublishRequest, reqs[3].ServiceID)

	require.NoError(t, wire.Unmarshal(reqs[3].Payload, &publish))
	assert.Equal(t, []wire.SubscriptionAcknowledgement{
		{SubscriptionID: 7, SequenceNumber: 1},
		{SubscriptionID: 7, SequenceNumber: 2},
	}, publish.SubscriptionAcknowledgements)

	assert.Empty(t, manager.PendingAcks())
	assert.Equal(t, uint32(2), manager.LastSequenceNumber())
}

func TestManager_PublishStopsWhenClosed(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	establish(t, manager, dispatcher, channel, 7)

	require.NoError(t, manager.SetEnabled(true))
	require.NoError(t, manager.SetEnabled(false))
	assert.Equal(t, StateClosed, manager.State())

	reqs := channel.requests(t)
	sent := len(reqs)

	// A straggling publish response must not re-arm the cycle.
	respond(dispatcher, reqs[len(reqs)-1].Header.RequestHandle, wire.ServiceSetPublishingModeResponse,
		wire.SetPublishingModeResultSet{})

	assert.Len(t, channel.requests(t), sent)
}

func TestManager_ValueUpdates(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	establish(t, manager, dispatcher, channel, 7)

	item := &MonitoredItem{NodeID: wire.NewNumericNodeID(2, 42)}
	require.NoError(t, manager.Subscribe([]*MonitoredItem{item}, 0))
	require.NotZero(t, item.ClientHandle)

	var updates []*MonitoredItem
	manager.OnValue(func(item *MonitoredItem) {
		updates = append(updates, item)
	})

	require.NoError(t, manager.SetEnabled(true))
	reqs := channel.requests(t)
	respond(dispatcher, reqs[len(reqs)-1].Header.RequestHandle, wire.ServiceSetPublishingModeResponse,
		wire.SetPublishingModeResultSet{})

	reqs = channel.requests(t)
	respond(dispatcher, reqs[len(reqs)-1].Header.RequestHandle, wire.ServicePublishResponse,
		wire.PublishResult{
			SubscriptionID: 7,
			NotificationMessage: wire.NotificationMessage{
				SequenceNumber: 1,
				NotificationData: []wire.DataChangeNotification{{
					MonitoredItems: []wire.MonitoredItemNotification{{
						ClientHandle: item.ClientHandle,
						Value:        wire.DataValue{Value: uint64(99)},
					}},
				}},
			},
		})

	require.Len(t, updates, 1)
	assert.Equal(t, uint64(99), item.LastValue.Value)
}

func TestManager_PositionalBatchCreation(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	establish(t, manager, dispatcher, channel, 7)

	items := []*MonitoredItem{
		{NodeID: wire.NewNumericNodeID(2, 1)},
		{NodeID: wire.NewNumericNodeID(2, 2)},
		{NodeID: wire.NewNumericNodeID(2, 3)},
	}
	require.NoError(t, manager.Subscribe(items, 0))

	reqs := channel.requests(t)
	last := reqs[len(reqs)-1]
	require.Equal(t, wire.ServiceCreateMonitoredItemsRequest, last.ServiceID)

	var params wire.CreateMonitoredItemsParams
	require.NoError(t, wire.Unmarshal(last.Payload, &params))
	require.Len(t, params.ItemsToCreate, 3)
	assert.Equal(t, wire.TimestampsBoth, params.TimestampsToReturn)
	assert.Equal(t, uint32(1), params.ItemsToCreate[0].RequestedParameters.QueueSize)
	assert.True(t, params.ItemsToCreate[0].RequestedParameters.DiscardOldest)

	respond(dispatcher, last.Header.RequestHandle, wire.ServiceCreateMonitoredItemsResponse,
		wire.CreateMonitoredItemsResultSet{Results: []wire.MonitoredItemCreateResult{
			{StatusCode: wire.StatusGood, MonitoredItemID: 101},
			{StatusCode: wire.StatusBadNodeIDUnknown},
			{StatusCode: wire.StatusGood, MonitoredItemID: 103},
		}})

	assert.Equal(t, uint32(101), items[0].ServerID)
	assert.NoError(t, items[0].Err)

	assert.Zero(t, items[1].ServerID)
	var statusErr *wire.StatusError
	require.ErrorAs(t, items[1].Err, &statusErr)
	assert.Equal(t, wire.StatusBadNodeIDUnknown, statusErr.Status)

	assert.Equal(t, uint32(103), items[2].ServerID)
}

func TestManager_PathResolution(t *testing.T) {
	root := wire.NewNumericNodeID(0, 85)
	path := func(name string) *wire.RelativePath {
		return &wire.RelativePath{Elements: []wire.RelativePathElement{
			{TargetName: wire.QualifiedName{Namespace: 3, Name: name}},
		}}
	}

	t.Run("positional targets", func(t *testing.T) {
		manager, dispatcher, channel := newTestManager()
		establish(t, manager, dispatcher, channel, 7)

		items := []*MonitoredItem{
			{NodeID: root, BrowsePath: path("Motor")},
			{NodeID: root, BrowsePath: path("Missing")},
		}
		require.NoError(t, manager.Subscribe(items, 0))

		reqs := channel.requests(t)
		last := reqs[len(reqs)-1]
		require.Equal(t, wire.ServiceTranslateBrowsePathsRequest, last.ServiceID)

		var params wire.TranslateBrowsePathsParams
		require.NoError(t, wire.Unmarshal(last.Payload, &params))
		require.Len(t, params.BrowsePaths, 2)

		target := wire.NewStringNodeID(3, "Motor.Speed")
		respond(dispatcher, last.Header.RequestHandle, wire.ServiceTranslateBrowsePathsResponse,
			wire.TranslateBrowsePathsResultSet{Results: []wire.BrowsePathResult{
				{StatusCode: wire.StatusGood, Targets: []wire.BrowsePathTarget{{TargetID: target}}},
				{StatusCode: wire.StatusBadNoMatch},
			}})

		assert.True(t, items[0].Resolved())
		assert.Equal(t, target, items[0].ResolvedNodeID)
		assert.False(t, items[1].Resolved())
		assert.Error(t, items[1].Err)

		// The resolved item moves on to creation.
		reqs = channel.requests(t)
		last = reqs[len(reqs)-1]
		require.Equal(t, wire.ServiceCreateMonitoredItemsRequest, last.ServiceID)

		var create wire.CreateMonitoredItemsParams
		require.NoError(t, wire.Unmarshal(last.Payload, &create))
		require.Len(t, create.ItemsToCreate, 1)
		assert.Equal(t, target, create.ItemsToCreate[0].ItemToMonitor.NodeID)
	})

	t.Run("batch error marks every item", func(t *testing.T) {
		manager, dispatcher, channel := newTestManager()
		establish(t, manager, dispatcher, channel, 7)

		items := []*MonitoredItem{
			{NodeID: root, BrowsePath: path("A")},
			{NodeID: root, BrowsePath: path("B")},
		}
		require.NoError(t, manager.Subscribe(items, 0))

		reqs := channel.requests(t)
		last := reqs[len(reqs)-1]
		dispatcher.HandleResponse(&wire.Response{
			ServiceID: wire.ServiceTranslateBrowsePathsResponse,
			Header: wire.ResponseHeader{
				RequestHandle: last.Header.RequestHandle,
				ServiceResult: wire.StatusBadInternalError,
			},
		})

		for _, item := range items {
			assert.Error(t, item.Err)
			assert.False(t, item.Resolved())
		}
	})
}

func TestManager_Unsubscribe(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	establish(t, manager, dispatcher, channel, 7)

	item := &MonitoredItem{NodeID: wire.NewNumericNodeID(2, 1)}
	require.NoError(t, manager.Subscribe([]*MonitoredItem{item}, 0))

	reqs := channel.requests(t)
	last := reqs[len(reqs)-1]
	respond(dispatcher, last.Header.RequestHandle, wire.ServiceCreateMonitoredItemsResponse,
		wire.CreateMonitoredItemsResultSet{Results: []wire.MonitoredItemCreateResult{
			{StatusCode: wire.StatusGood, MonitoredItemID: 42},
		}})
	require.Equal(t, uint32(42), item.ServerID)

	require.NoError(t, manager.Unsubscribe(item.ClientHandle))

	// The server id clears and the item is evicted before any response.
	assert.Zero(t, item.ServerID)
	_, ok := manager.Item(item.ClientHandle)
	assert.False(t, ok)

	reqs = channel.requests(t)
	last = reqs[len(reqs)-1]
	require.Equal(t, wire.ServiceDeleteMonitoredItemsRequest, last.ServiceID)

	var params wire.DeleteMonitoredItemsParams
	require.NoError(t, wire.Unmarshal(last.Payload, &params))
	assert.Equal(t, uint32(7), params.SubscriptionID)
	assert.Equal(t, []uint32{42}, params.MonitoredItemIDs)
}

func TestManager_DeleteResets(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	establish(t, manager, dispatcher, channel, 7)
	require.NoError(t, manager.SetEnabled(true))

	require.NoError(t, manager.Delete())

	reqs := channel.requests(t)
	last := reqs[len(reqs)-1]
	require.Equal(t, wire.ServiceDeleteSubscriptionsRequest, last.ServiceID)

	respond(dispatcher, last.Header.RequestHandle, wire.ServiceDeleteSubscriptionsResponse,
		wire.DeleteSubscriptionsResultSet{Results: []wire.StatusCode{wire.StatusGood}})

	assert.Zero(t, manager.SubscriptionID())
	assert.Empty(t, manager.PendingAcks())
	assert.Equal(t, StateClosed, manager.State())
}

func TestManager_AssumeSuccessPolicy(t *testing.T) {
	t.Run("optimistic default toggles on send", func(t *testing.T) {
		manager, dispatcher, channel := newTestManager()
		establish(t, manager, dispatcher, channel, 7)

		require.NoError(t, manager.SetEnabled(true))
		assert.Equal(t, StateOpen, manager.State())
	})

	t.Run("strict mode waits for confirmation", func(t *testing.T) {
		manager, dispatcher, channel := newTestManager()
		manager.SetAssumeSuccess(false)
		establish(t, manager, dispatcher, channel, 7)

		require.NoError(t, manager.SetEnabled(true))
		assert.Equal(t, StateClosed, manager.State())

		reqs := channel.requests(t)
		respond(dispatcher, reqs[len(reqs)-1].Header.RequestHandle, wire.ServiceSetPublishingModeResponse,
			wire.SetPublishingModeResultSet{})

		assert.Equal(t, StateOpen, manager.State())
	})
}

func TestManager_Modify(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	establish(t, manager, dispatcher, channel, 7)

	config := DefaultConfig()
	config.PublishingInterval = 1000
	require.NoError(t, manager.Modify(config))

	reqs := channel.requests(t)
	last := reqs[len(reqs)-1]
	require.Equal(t, wire.ServiceModifySubscriptionRequest, last.ServiceID)

	var params wire.ModifySubscriptionParams
	require.NoError(t, wire.Unmarshal(last.Payload, &params))
	assert.Equal(t, uint32(7), params.SubscriptionID)
	assert.Equal(t, float64(1000), params.RequestedPublishingInterval)

	respond(dispatcher, last.Header.RequestHandle, wire.ServiceModifySubscriptionResponse,
		wire.ModifySubscriptionResult{RevisedPublishingInterval: 1000})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "UNKNOWN", State(9).String())
}
