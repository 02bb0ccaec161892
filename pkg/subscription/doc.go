// Package subscription drives the subscription lifecycle, the publish loop,
// and the monitored item set.
//
// A Manager owns exactly one server-side subscription. Creation leaves
// publishing disabled; SetEnabled toggles publishing mode and opens or
// closes the state machine. While open, every SetPublishingMode and Publish
// response re-arms the next PublishRequest, forming a self-sustaining
// long-poll cycle. Sequence numbers reported by a PublishResponse are queued
// and acknowledged on the following publish call, one cycle behind.
//
// Monitored items are registered via Subscribe: items carrying a browse path
// are first resolved to node identifiers through a single batched
// TranslateBrowsePathsToNodeIds request, then created server-side through a
// batched CreateMonitoredItems request. Batch results apply positionally;
// a batch-level failure marks every item in the batch.
//
// A SlotRegistry multiplexes several independent logical subscribers onto
// the one underlying publish cycle, each with its own push callback.
package subscription
