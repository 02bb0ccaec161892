package session

import (
	"encoding/base64"
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

func (c *fakeChannel) setOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = open
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

// newTestManager starts with the channel closed; enabling the session then
// queues no frame, matching a client configured before its channel connects.
func newTestManager() (*Manager, *interaction.Dispatcher, *fakeChannel) {
	channel := &fakeChannel{}
	dispatcher := interaction.NewDispatcher(interaction.NewHandleFactory(0), channel, nil)
	manager := NewManager(dispatcher)
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

func TestManager_Handshake(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	manager.SetEnabled(true)

	var transitions []State
	manager.OnStateChange(func(_, newState State) {
		transitions = append(transitions, newState)
	})

	manager.HandleChannelConnecting()
	assert.Equal(t, StateConnecting, manager.State())

	channel.setOpen(true)
	manager.HandleChannelOpen()
	require.Equal(t, StateCreating, manager.State())

	reqs := channel.requests(t)
	require.Len(t, reqs, 1)
	assert.Equal(t, wire.ServiceCreateSessionRequest, reqs[0].ServiceID)
	assert.Empty(t, reqs[0].Header.AuthenticationToken)

	var createParams wire.CreateSessionParams
	require.NoError(t, wire.Unmarshal(reqs[0].Payload, &createParams))
	assert.Equal(t, DefaultSessionName, createParams.SessionName)
	assert.Len(t, createParams.ClientNonce, 32)

	respond(dispatcher, reqs[0].Header.RequestHandle, wire.ServiceCreateSessionResponse,
		wire.CreateSessionResult{AuthenticationToken: "tok1"})

	// ActivateSession goes out without the token in its header.
	reqs = channel.requests(t)
	require.Len(t, reqs, 2)
	assert.Equal(t, wire.ServiceActivateSessionRequest, reqs[1].ServiceID)
	assert.Empty(t, reqs[1].Header.AuthenticationToken)
	assert.Empty(t, dispatcher.AuthToken())

	respond(dispatcher, reqs[1].Header.RequestHandle, wire.ServiceActivateSessionResponse,
		wire.ActivateSessionResult{ServerNonce: []byte("n1")})

	assert.Equal(t, StateSessionActive, manager.State())
	assert.Equal(t, "tok1", manager.AuthToken())
	assert.Equal(t, "tok1", dispatcher.AuthToken())
	assert.Equal(t, []byte("n1"), manager.ServerNonce())
	assert.NotNil(t, manager.Keys())

	assert.Equal(t, []State{StateConnecting, StateNoSession, StateCreating, StateSessionActive}, transitions)
}

func TestManager_HeaderTokenAfterActivation(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	manager.SetEnabled(true)
	channel.setOpen(true)
	manager.HandleChannelOpen()

	reqs := channel.requests(t)
	require.Len(t, reqs, 1)
	respond(dispatcher, reqs[0].Header.RequestHandle, wire.ServiceCreateSessionResponse,
		wire.CreateSessionResult{AuthenticationToken: "tok1"})
	reqs = channel.requests(t)
	require.Len(t, reqs, 2)
	respond(dispatcher, reqs[1].Header.RequestHandle, wire.ServiceActivateSessionResponse,
		wire.ActivateSessionResult{ServerNonce: []byte("n1")})

	_, err := dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceReadRequest,
		Payload:   &wire.ReadParams{},
	}, 0)
	require.NoError(t, err)

	reqs = channel.requests(t)
	require.Len(t, reqs, 3)
	assert.Equal(t, "tok1", reqs[2].Header.AuthenticationToken)
}

func TestManager_IdentityToken(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	manager.SetIdentityProvider(func() (string, bool) {
		return "secret-access", true
	})
	manager.SetEnabled(true)
	channel.setOpen(true)
	manager.HandleChannelOpen()

	reqs := channel.requests(t)
	require.Len(t, reqs, 1)
	respond(dispatcher, reqs[0].Header.RequestHandle, wire.ServiceCreateSessionResponse,
		wire.CreateSessionResult{AuthenticationToken: "tok1"})

	reqs = channel.requests(t)
	require.Len(t, reqs, 2)

	var activate wire.ActivateSessionParams
	require.NoError(t, wire.Unmarshal(reqs[1].Payload, &activate))
	require.NotNil(t, activate.UserIdentityToken)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("secret-access")),
		activate.UserIdentityToken.TokenData)
}

func TestManager_AnonymousActivation(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	manager.SetEnabled(true)
	channel.setOpen(true)
	manager.HandleChannelOpen()

	reqs := channel.requests(t)
	require.Len(t, reqs, 1)
	respond(dispatcher, reqs[0].Header.RequestHandle, wire.ServiceCreateSessionResponse,
		wire.CreateSessionResult{AuthenticationToken: "tok1"})

	reqs = channel.requests(t)
	require.Len(t, reqs, 2)

	var activate wire.ActivateSessionParams
	require.NoError(t, wire.Unmarshal(reqs[1].Payload, &activate))
	assert.Nil(t, activate.UserIdentityToken)
}

func TestManager_ChannelClosedWhileActive(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	manager.SetEnabled(true)
	channel.setOpen(true)
	manager.HandleChannelOpen()

	reqs := channel.requests(t)
	respond(dispatcher, reqs[0].Header.RequestHandle, wire.ServiceCreateSessionResponse,
		wire.CreateSessionResult{AuthenticationToken: "tok1"})
	reqs = channel.requests(t)
	respond(dispatcher, reqs[1].Header.RequestHandle, wire.ServiceActivateSessionResponse,
		wire.ActivateSessionResult{ServerNonce: []byte("n1")})
	require.Equal(t, StateSessionActive, manager.State())

	manager.HandleChannelClosed()

	assert.Equal(t, StateDisconnected, manager.State())

	// CloseSession is fire-and-forget with subscriptions deleted.
	reqs = channel.requests(t)
	require.Len(t, reqs, 3)
	assert.Equal(t, wire.ServiceCloseSessionRequest, reqs[2].ServiceID)

	var closeParams wire.CloseSessionParams
	require.NoError(t, wire.Unmarshal(reqs[2].Payload, &closeParams))
	assert.True(t, closeParams.DeleteSubscriptions)
}

func TestManager_CloseSessionResponseClearsToken(t *testing.T) {
	manager, dispatcher, channel := newTestManager()
	manager.SetEnabled(true)
	channel.setOpen(true)
	manager.HandleChannelOpen()

	reqs := channel.requests(t)
	respond(dispatcher, reqs[0].Header.RequestHandle, wire.ServiceCreateSessionResponse,
		wire.CreateSessionResult{AuthenticationToken: "tok1"})
	reqs = channel.requests(t)
	respond(dispatcher, reqs[1].Header.RequestHandle, wire.ServiceActivateSessionResponse,
		wire.ActivateSessionResult{ServerNonce: []byte("n1")})
	require.Equal(t, "tok1", dispatcher.AuthToken())

	manager.SetEnabled(false)
	require.Equal(t, StateDisconnected, manager.State())

	reqs = channel.requests(t)
	require.Len(t, reqs, 3)
	respond(dispatcher, reqs[2].Header.RequestHandle, wire.ServiceCloseSessionResponse,
		wire.CloseSessionResult{})

	assert.Empty(t, manager.AuthToken())
	assert.Empty(t, dispatcher.AuthToken())
	assert.Nil(t, manager.ServerNonce())
	assert.Equal(t, StateNoSession, manager.State())
}

func TestManager_DisabledSessionSkipsHandshake(t *testing.T) {
	manager, _, channel := newTestManager()

	channel.setOpen(true)
	manager.HandleChannelOpen()

	assert.Equal(t, StateNoSession, manager.State())
	assert.Empty(t, channel.requests(t))
}

func TestManager_AssumeSuccessPolicy(t *testing.T) {
	t.Run("optimistic default advances on bad result", func(t *testing.T) {
		manager, dispatcher, channel := newTestManager()
		manager.SetEnabled(true)
		channel.setOpen(true)
		manager.HandleChannelOpen()

		reqs := channel.requests(t)
		dispatcher.HandleResponse(&wire.Response{
			ServiceID: wire.ServiceCreateSessionResponse,
			Header: wire.ResponseHeader{
				RequestHandle: reqs[0].Header.RequestHandle,
				ServiceResult: wire.StatusBadInternalError,
			},
		})

		// ActivateSession was still sent.
		assert.Len(t, channel.requests(t), 2)
	})

	t.Run("strict mode backs off on bad result", func(t *testing.T) {
		manager, dispatcher, channel := newTestManager()
		manager.SetAssumeSuccess(false)
		manager.SetEnabled(true)
		channel.setOpen(true)
		manager.HandleChannelOpen()

		reqs := channel.requests(t)
		dispatcher.HandleResponse(&wire.Response{
			ServiceID: wire.ServiceCreateSessionResponse,
			Header: wire.ResponseHeader{
				RequestHandle: reqs[0].Header.RequestHandle,
				ServiceResult: wire.StatusBadInternalError,
			},
		})

		assert.Equal(t, StateNoSession, manager.State())
		assert.Len(t, channel.requests(t), 1)
	})
}

func TestManager_SetError(t *testing.T) {
	manager, _, _ := newTestManager()

	manager.SetError()

	assert.Equal(t, StateError, manager.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "DISCONNECTED", StateDisconnected.String())
	assert.Equal(t, "SESSION_ACTIVE", StateSessionActive.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
