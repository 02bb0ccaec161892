package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"
)

// Connection errors.
var (
	// ErrNotConnected indicates there is no usable connection.
	ErrNotConnected = errors.New("not connected")

	// ErrBadEndpoint indicates the endpoint URL could not be parsed.
	ErrBadEndpoint = errors.New("invalid endpoint URL")
)

// DefaultConnectTimeout bounds the dial plus TLS handshake.
const DefaultConnectTimeout = 30 * time.Second

// ReceiveFunc consumes one inbound frame payload. Returning an error does
// not close the connection; undecodable frames are the receiver's problem.
type ReceiveFunc func(data []byte) error

// DialConfig configures an outbound connection.
type DialConfig struct {
	// TLSConfig enables TLS when set; nil dials plain TCP.
	TLSConfig *tls.Config

	// MaxMessageSize caps frame payloads (default 64 KB).
	MaxMessageSize uint32

	// ConnectTimeout bounds the dial (default 30s).
	ConnectTimeout time.Duration
}

// Conn is one established connection to a server. Inbound frames are
// delivered to the receiver from a dedicated read loop.
type Conn struct {
	conn   net.Conn
	framer *Framer

	receive  ReceiveFunc
	onClosed func(err error)

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to an endpoint URL of the form opc.tcp://host:port[/path].
// A missing port defaults to 4840. The connection does not deliver frames
// until Start is called.
func Dial(ctx context.Context, endpointURL string, config DialConfig) (*Conn, error) {
	address, err := endpointAddress(endpointURL)
	if err != nil {
		return nil, err
	}

	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if config.TLSConfig != nil {
		tlsConn := tls.Client(conn, config.TLSConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		conn = tlsConn
	}

	return &Conn{
		conn:   conn,
		framer: NewFramer(conn, config.MaxMessageSize),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the read loop. Inbound frames go to receive; onClosed
// fires once when the loop ends, with the read error that ended it.
// Either callback may be nil.
func (c *Conn) Start(receive ReceiveFunc, onClosed func(err error)) {
	c.receive = receive
	c.onClosed = onClosed
	go c.readLoop()
}

func (c *Conn) readLoop() {
	for {
		payload, err := c.framer.ReadFrame()
		if err != nil {
			c.shutdown(err)
			return
		}
		if c.receive != nil {
			_ = c.receive(payload)
		}
	}
}

// IsOpen reports whether the connection can carry frames.
func (c *Conn) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Send writes one frame.
func (c *Conn) Send(data []byte) error {
	if !c.IsOpen() {
		return ErrNotConnected
	}
	return c.framer.WriteFrame(data)
}

// Done is closed when the connection is no longer usable.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close terminates the connection. The read loop ends and onClosed fires.
func (c *Conn) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
		if c.onClosed != nil {
			c.onClosed(err)
		}
	})
}

// endpointAddress extracts host:port from an opc.tcp endpoint URL.
func endpointAddress(endpointURL string) (string, error) {
	u, err := url.Parse(endpointURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadEndpoint, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrBadEndpoint, endpointURL)
	}
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "4840")
	}
	return host, nil
}
