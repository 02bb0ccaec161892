package discovery

import (
	"errors"
	"fmt"
	"time"
)

// mDNS service parameters.
const (
	// ServiceType is the mDNS service type servers announce under.
	ServiceType = "_opcua-tcp._tcp"

	// Domain is the mDNS browse domain.
	Domain = "local."

	// DefaultPort is the conventional server port.
	DefaultPort = 4840

	// BrowseTimeout is the default timeout for browse operations.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys.
const (
	// TXTKeyPath is the endpoint path on the announced host.
	TXTKeyPath = "path"

	// TXTKeyCaps is the comma-separated capability list.
	TXTKeyCaps = "caps"

	// TXTKeyName is the human-readable server name.
	TXTKeyName = "name"
)

var (
	// ErrMissingRequired indicates a required TXT record key is absent.
	ErrMissingRequired = errors.New("missing required TXT record")

	// ErrNotFound indicates no matching server was discovered before the
	// deadline.
	ErrNotFound = errors.New("server not found")
)

// ServerInfo describes an announced server, for advertising.
type ServerInfo struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// ServerName is the human-readable name.
	ServerName string

	// Port the server listens on, DefaultPort when 0.
	Port uint16

	// Path is the endpoint path on the host.
	Path string

	// Capabilities announced in the caps record, e.g. "DA" or "LDS".
	Capabilities []string
}

// DiscoveredServer is one server found by browsing.
type DiscoveredServer struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// ServerName is the human-readable name from the TXT records.
	ServerName string

	// Host is the announced hostname.
	Host string

	// Port the server listens on.
	Port uint16

	// Addresses are the resolved IPv4/IPv6 addresses, aggregated across
	// interfaces.
	Addresses []string

	// Path is the endpoint path from the TXT records.
	Path string

	// Capabilities from the caps record.
	Capabilities []string
}

// EndpointURL builds the opc.tcp endpoint URL of the server, preferring the
// first resolved address over the hostname.
func (s *DiscoveredServer) EndpointURL() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("opc.tcp://%s:%d%s", host, port, s.Path)
}

// HasCapability reports whether the server announced the capability.
func (s *DiscoveredServer) HasCapability(cap string) bool {
	for _, c := range s.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}
