package wire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{
		ServiceID: ServiceReadRequest,
		Header: RequestHeader{
			RequestHandle: 42,
			Timestamp:     time.Unix(1700000000, 0).UTC(),
			TimeoutHint:   60000,
		},
		Payload: &ReadParams{
			NodesToRead: []ReadValueID{
				{NodeID: NewStringNodeID(2, "Machine/Temperature"), AttributeID: AttributeValue},
			},
		},
	}

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	var decoded Request
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Equal(t, ServiceReadRequest, decoded.ServiceID)
	assert.Equal(t, uint32(42), decoded.Header.RequestHandle)
	assert.Equal(t, uint32(60000), decoded.Header.TimeoutHint)
}

func TestEncodeRequestRejectsNonRequestIDs(t *testing.T) {
	_, err := EncodeRequest(&Request{ServiceID: ServiceReadResponse})
	assert.Error(t, err)

	_, err = EncodeRequest(&Request{ServiceID: ServicePushNotification})
	assert.Error(t, err)
}

func TestDecodeInbound(t *testing.T) {
	t.Run("Response", func(t *testing.T) {
		data, err := EncodeResponse(&Response{
			ServiceID: ServicePublishResponse,
			Header:    ResponseHeader{RequestHandle: 7},
			Payload:   MustRaw(&PublishResult{SubscriptionID: 3}),
		})
		require.NoError(t, err)

		msg, err := DecodeInbound(data)
		require.NoError(t, err)

		resp, ok := msg.(*Response)
		require.True(t, ok, "expected *Response, got %T", msg)
		assert.Equal(t, ServicePublishResponse, resp.ServiceID)
		assert.Equal(t, uint32(7), resp.Header.RequestHandle)

		var result PublishResult
		require.NoError(t, resp.DecodePayload(&result))
		assert.Equal(t, uint32(3), result.SubscriptionID)
	})

	t.Run("Push", func(t *testing.T) {
		data, err := EncodePush(&Push{
			Header:  RequestHeader{RequestHandle: 99},
			Payload: MustRaw(map[string]any{"Kind": "event"}),
		})
		require.NoError(t, err)

		msg, err := DecodeInbound(data)
		require.NoError(t, err)

		push, ok := msg.(*Push)
		require.True(t, ok, "expected *Push, got %T", msg)
		assert.Equal(t, uint32(99), push.Header.RequestHandle)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := DecodeInbound([]byte{0xff, 0x00, 0x13})
		assert.Error(t, err)
	})
}

func TestResponseIDPairing(t *testing.T) {
	assert.Equal(t, ServiceReadResponse, ServiceReadRequest.ResponseID())
	assert.Equal(t, ServicePublishResponse, ServicePublishRequest.ResponseID())
	assert.True(t, ServiceCreateSessionRequest.IsRequest())
	assert.False(t, ServiceCreateSessionResponse.IsRequest())
}

func TestServiceTableCoversAllRequests(t *testing.T) {
	ids := []ServiceID{
		ServiceBrowseRequest, ServiceBrowseNextRequest, ServiceReadRequest,
		ServiceWriteRequest, ServiceCallRequest, ServiceTranslateBrowsePathsRequest,
		ServiceHistoryReadRequest, ServiceHistoryUpdateRequest,
		ServiceCreateSessionRequest, ServiceActivateSessionRequest, ServiceCloseSessionRequest,
		ServicePublishRequest, ServiceSetPublishingModeRequest,
		ServiceCreateSubscriptionRequest, ServiceModifySubscriptionRequest,
		ServiceDeleteSubscriptionsRequest,
		ServiceCreateMonitoredItemsRequest, ServiceModifyMonitoredItemsRequest,
		ServiceDeleteMonitoredItemsRequest,
	}

	for _, id := range ids {
		route, ok := LookupRoute(id)
		require.True(t, ok, "missing route for %s", id)
		assert.NotEmpty(t, route.Path, "empty path for %s", id)
		assert.Equal(t, id.ResponseID(), route.Response, "route for %s names wrong response", id)
	}

	_, ok := LookupRoute(ServiceReadResponse)
	assert.False(t, ok, "response ids must not be routable")
}

func TestStatusError(t *testing.T) {
	assert.NoError(t, ServiceError(ResponseHeader{ServiceResult: StatusGood}))

	err := ServiceError(ResponseHeader{
		ServiceResult: StatusBadNodeIDUnknown,
		StringTable:   []string{"no such node"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadNodeIdUnknown")
	assert.Contains(t, err.Error(), "no such node")
}
