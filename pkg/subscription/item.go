package subscription

import (
	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// MonitoredItem is one node/attribute registered for change notification.
//
// ResolvedNodeID and Err are mutually exclusive terminal outcomes of path
// resolution. ServerID is set only after successful server-side creation
// and cleared again on deletion.
type MonitoredItem struct {
	// NodeID is the starting node, or the target itself when no browse
	// path is set.
	NodeID wire.NodeID

	// BrowsePath is an optional relative path from NodeID to the target.
	BrowsePath *wire.RelativePath

	// ResolvedNodeID is the node the server actually monitors.
	ResolvedNodeID wire.NodeID

	// AttributeID defaults to the Value attribute.
	AttributeID wire.AttributeID

	// SamplingInterval in milliseconds; 0 uses the manager default.
	SamplingInterval float64

	// ClientHandle correlates data-change notifications to this item.
	ClientHandle uint32

	// SubscriberHandle groups items belonging to one logical subscriber.
	// Defaults to ClientHandle when unset.
	SubscriberHandle uint32

	// ServerID is the server-assigned monitored item id.
	ServerID uint32

	// LastValue holds the most recent data-change notification value.
	LastValue wire.DataValue

	// Err records a resolution or creation failure.
	Err error

	resolved bool
}

// Resolved reports whether path resolution has concluded successfully.
func (item *MonitoredItem) Resolved() bool {
	return item.resolved
}

func (item *MonitoredItem) resolveTo(id wire.NodeID) {
	item.ResolvedNodeID = id
	item.resolved = true
}
