package discovery

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for FindByName.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// Browser finds servers via mDNS.
type Browser struct {
	config BrowserConfig

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewBrowser creates an mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse searches for servers. Announcements from multiple interfaces are
// aggregated by instance name into a single entry; a server is emitted once
// when first seen. The returned channel closes when the context ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *DiscoveredServer, error) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	out := make(chan *DiscoveredServer)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	opts := b.browserOptions()

	go b.aggregate(ctx, entries, removed, out)
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// aggregate tracks servers by instance name, merging addresses across
// interfaces. Consumers receive a snapshot; later announcements mutate only
// the internal record.
func (b *Browser) aggregate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *DiscoveredServer) {
	defer close(out)

	servers := make(map[string]*DiscoveredServer)

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			svc := entryToServer(entry)
			if svc == nil {
				continue
			}

			existing, found := servers[svc.InstanceName]
			if found {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
			} else {
				servers[svc.InstanceName] = svc
				emit := *svc
				emit.Addresses = append([]string(nil), svc.Addresses...)
				select {
				case out <- &emit:
				case <-ctx.Done():
					return
				}
			}

		case entry, ok := <-removed:
			if !ok {
				continue
			}
			if existing, found := servers[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry)
				if len(existing.Addresses) == 0 {
					delete(servers, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// FindByName searches for a server by instance name. It returns when found,
// or ErrNotFound when the browse timeout elapses first.
func (b *Browser) FindByName(ctx context.Context, instanceName string) (*DiscoveredServer, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	servers, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case svc, ok := <-servers:
			if !ok {
				return nil, ErrNotFound
			}
			if svc.InstanceName == instanceName {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, ErrNotFound
		}
	}
}

// Stop cancels any active browse.
func (b *Browser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToServer converts a zeroconf entry to a DiscoveredServer. Entries
// with unusable TXT records are skipped.
func entryToServer(entry *zeroconf.ServiceEntry) *DiscoveredServer {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodeServerTXT(txt)
	if err != nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &DiscoveredServer{
		InstanceName: entry.Instance,
		ServerName:   info.ServerName,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		Path:         info.Path,
		Capabilities: info.Capabilities,
	}
}

// mergeAddresses appends addresses not already present.
func mergeAddresses(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range fresh {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes the addresses of a disappearing entry.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
