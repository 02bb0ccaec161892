// Package discovery finds servers on the local network via mDNS.
//
// Servers announce themselves under the _opcua-tcp._tcp service type with
// TXT records carrying the endpoint path and capability list. The Browser
// aggregates announcements from multiple interfaces into one entry per
// instance name; the Advertiser is the server-side counterpart used by the
// test harness and example servers.
package discovery
