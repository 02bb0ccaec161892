package session

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/uaflow-protocol/uaflow-go/pkg/interaction"
	"github.com/uaflow-protocol/uaflow-go/pkg/log"
	"github.com/uaflow-protocol/uaflow-go/pkg/security"
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// Default handshake parameters.
const (
	DefaultSessionName    = "uaflow-client"
	DefaultSessionTimeout = 3600000 // milliseconds
	nonceLength           = 32
)

// IdentityProvider supplies the access token of the logged-in user, if any.
// When ok is false the session activates anonymously.
type IdentityProvider func() (accessToken string, ok bool)

// Manager drives the session state machine over a dispatcher.
type Manager struct {
	mu sync.Mutex

	dispatcher *interaction.Dispatcher

	state   State
	enabled bool

	// assumeSuccess keeps the original optimistic behavior: state advances
	// on response arrival regardless of the service result.
	assumeSuccess bool

	sessionName    string
	sessionTimeout float64
	identity       IdentityProvider

	authToken   string
	clientNonce []byte
	serverNonce []byte
	keys        *security.KeyMaterial

	onStateChange func(oldState, newState State)

	logger   log.Logger
	clientID string
}

// NewManager creates a session manager bound to the dispatcher.
func NewManager(dispatcher *interaction.Dispatcher) *Manager {
	return &Manager{
		dispatcher:     dispatcher,
		state:          StateDisconnected,
		assumeSuccess:  true,
		sessionName:    DefaultSessionName,
		sessionTimeout: DefaultSessionTimeout,
		logger:         log.NoopLogger{},
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

// SetSessionName sets the name sent in CreateSession.
func (m *Manager) SetSessionName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name != "" {
		m.sessionName = name
	}
}

// SetSessionTimeout sets the requested session timeout in milliseconds.
func (m *Manager) SetSessionTimeout(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms > 0 {
		m.sessionTimeout = ms
	}
}

// SetIdentityProvider sets the source of the user access token attached to
// ActivateSession.
func (m *Manager) SetIdentityProvider(fn IdentityProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = fn
}

// SetAssumeSuccess controls whether state advances before the service
// result is inspected. True reproduces the original optimistic behavior.
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

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Enabled reports whether a session is desired.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// AuthToken returns the authentication token of the current session, empty
// when none is established.
func (m *Manager) AuthToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authToken
}

// ServerNonce returns the nonce delivered by ActivateSession.
func (m *Manager) ServerNonce() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.serverNonce
}

// Keys returns the key material derived from the nonce pair, nil before
// activation.
func (m *Manager) Keys() *security.KeyMaterial {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys
}

// transition changes state and fires callbacks. Callers must hold m.mu; the
// callback and log run with the lock held deliberately, keeping transitions
// atomic with respect to response draining.
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
			Entity:   "session",
			OldState: old.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})

	if m.onStateChange != nil {
		m.onStateChange(old, next)
	}
}

// HandleChannelConnecting reacts to the channel starting a connection
// attempt.
func (m *Manager) HandleChannelConnecting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transition(StateConnecting, "channel connecting")
}

// HandleChannelOpen reacts to the channel becoming usable. When a session
// is desired the CreateSession handshake starts immediately.
func (m *Manager) HandleChannelOpen() {
	m.mu.Lock()
	m.transition(StateNoSession, "channel open")
	start := m.enabled
	if start {
		m.transition(StateCreating, "session enabled")
	}
	m.mu.Unlock()

	if start {
		m.sendCreateSession()
	}
}

// HandleChannelClosed reacts to the channel closing. An active session is
// closed fire-and-forget; the state moves on without waiting.
func (m *Manager) HandleChannelClosed() {
	m.mu.Lock()
	wasActive := m.state == StateSessionActive
	m.transition(StateDisconnected, "channel closed")
	m.mu.Unlock()

	if wasActive {
		m.sendCloseSession()
	}
}

// SetError moves the machine to the error state on external trigger.
func (m *Manager) SetError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transition(StateError, "external trigger")
}

// SetEnabled toggles whether a session is desired, independent of channel
// events.
func (m *Manager) SetEnabled(v bool) {
	m.mu.Lock()
	m.enabled = v

	var create, closeSession bool
	if v && (m.state == StateNoSession || m.state == StateDisconnected) {
		m.transition(StateCreating, "session enabled")
		create = true
	} else if !v && m.state == StateSessionActive {
		m.transition(StateDisconnected, "session disabled")
		closeSession = true
	}
	m.mu.Unlock()

	if create {
		m.sendCreateSession()
	}
	if closeSession {
		m.sendCloseSession()
	}
}

// Matcher selects the session service responses this machine consumes.
func (m *Manager) Matcher() interaction.Matcher {
	return interaction.MatchService(
		wire.ServiceCreateSessionResponse,
		wire.ServiceActivateSessionResponse,
		wire.ServiceCloseSessionResponse,
	)
}

// Drain consumes session responses from the dispatcher. Wire it to the
// dispatcher's OnMessage hook.
func (m *Manager) Drain() {
	for _, entry := range m.dispatcher.ProcessMessages(m.Matcher()) {
		switch entry.Response.ServiceID {
		case wire.ServiceCreateSessionResponse:
			m.handleCreateSessionResponse(entry.Response)
		case wire.ServiceActivateSessionResponse:
			m.handleActivateSessionResponse(entry.Response)
		case wire.ServiceCloseSessionResponse:
			m.handleCloseSessionResponse(entry.Response)
		}
	}
}

func (m *Manager) sendCreateSession() {
	m.mu.Lock()
	m.clientNonce = security.NewNonce(nonceLength)
	req := &wire.Request{
		ServiceID: wire.ServiceCreateSessionRequest,
		Payload: &wire.CreateSessionParams{
			SessionName:             m.sessionName,
			ClientNonce:             m.clientNonce,
			RequestedSessionTimeout: m.sessionTimeout,
		},
	}
	m.mu.Unlock()

	_, _ = m.dispatcher.Send(req, 0)
}

func (m *Manager) handleCreateSessionResponse(resp *wire.Response) {
	m.mu.Lock()
	if !m.assumeSuccess && !resp.IsGood() {
		m.transition(StateNoSession, "create session failed")
		m.mu.Unlock()
		return
	}

	var result wire.CreateSessionResult
	if err := resp.DecodePayload(&result); err != nil {
		m.logError("decode CreateSessionResult", err)
	}
	m.authToken = result.AuthenticationToken
	if len(result.ServerNonce) > 0 {
		m.serverNonce = result.ServerNonce
	}

	var token *wire.IssuedIdentityToken
	if m.identity != nil {
		if access, ok := m.identity(); ok {
			token = &wire.IssuedIdentityToken{
				TokenData: base64.StdEncoding.EncodeToString([]byte(access)),
			}
		}
	}
	m.mu.Unlock()

	_, _ = m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceActivateSessionRequest,
		Payload:   &wire.ActivateSessionParams{UserIdentityToken: token},
	}, 0)
}

func (m *Manager) handleActivateSessionResponse(resp *wire.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.assumeSuccess && !resp.IsGood() {
		m.transition(StateNoSession, "activate session failed")
		return
	}

	var result wire.ActivateSessionResult
	if err := resp.DecodePayload(&result); err != nil {
		m.logError("decode ActivateSessionResult", err)
	}
	if len(result.ServerNonce) > 0 {
		m.serverNonce = result.ServerNonce
	}

	if keys, err := security.DeriveKeys(m.clientNonce, m.serverNonce); err == nil {
		m.keys = keys
	}

	// The token becomes the default for subsequent request headers only
	// once the session is active.
	m.dispatcher.SetAuthToken(m.authToken)
	m.transition(StateSessionActive, "session activated")
}

func (m *Manager) handleCloseSessionResponse(resp *wire.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.assumeSuccess && !resp.IsGood() {
		return
	}

	m.authToken = ""
	m.serverNonce = nil
	m.keys = nil
	m.dispatcher.SetAuthToken("")
	m.transition(StateNoSession, "session closed")
}

func (m *Manager) sendCloseSession() {
	_, _ = m.dispatcher.Send(&wire.Request{
		ServiceID: wire.ServiceCloseSessionRequest,
		Payload:   &wire.CloseSessionParams{DeleteSubscriptions: true},
	}, 0)
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
