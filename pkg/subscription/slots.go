package subscription

import (
	"errors"
	"sync"

	"github.com/uaflow-protocol/uaflow-go/pkg/wire"
)

// DefaultSlotCapacity is the default number of logical subscriber slots.
const DefaultSlotCapacity = 10

// ErrNoFreeSlot is returned when every slot is occupied. This is a capacity
// error, not a transient failure; the caller must release a slot first.
var ErrNoFreeSlot = errors.New("no free subscription slot available")

// PushCallback receives a publish result together with the monitored item
// map of the underlying subscription.
type PushCallback func(result *wire.PublishResult, items map[uint32]*MonitoredItem)

// Slot is one logical subscriber multiplexed onto the underlying
// subscription.
type Slot struct {
	// ID identifies the logical subscription towards its consumer.
	ID uint32

	// Callback receives publish results addressed to this slot.
	Callback PushCallback

	// Context is opaque consumer data carried alongside the callback.
	Context any
}

// SlotRegistry is a bounded arena of subscriber slots bridging the single
// underlying publish cycle to multiple independent logical consumers. A nil
// entry is a free slot.
type SlotRegistry struct {
	mu     sync.Mutex
	slots  []*Slot
	nextID uint32
}

// NewSlotRegistry creates a registry with the given capacity; zero or
// negative uses DefaultSlotCapacity.
func NewSlotRegistry(capacity int) *SlotRegistry {
	if capacity <= 0 {
		capacity = DefaultSlotCapacity
	}
	return &SlotRegistry{slots: make([]*Slot, capacity)}
}

// Capacity returns the total number of slots.
func (r *SlotRegistry) Capacity() int {
	return len(r.slots)
}

// Len returns the number of occupied slots.
func (r *SlotRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, slot := range r.slots {
		if slot != nil {
			n++
		}
	}
	return n
}

// Create claims a free slot, assigns the next logical subscription id, and
// runs the underlying create side effect. It returns ErrNoFreeSlot when the
// table is full; in that case the side effect does not run.
func (r *SlotRegistry) Create(callback PushCallback, context any, underlyingCreate func(id uint32) error) (uint32, error) {
	r.mu.Lock()
	index := -1
	for i, slot := range r.slots {
		if slot == nil {
			index = i
			break
		}
	}
	if index < 0 {
		r.mu.Unlock()
		return 0, ErrNoFreeSlot
	}
	r.nextID++
	id := r.nextID
	r.slots[index] = &Slot{ID: id, Callback: callback, Context: context}
	r.mu.Unlock()

	if underlyingCreate != nil {
		if err := underlyingCreate(id); err != nil {
			r.mu.Lock()
			r.slots[index] = nil
			r.mu.Unlock()
			return 0, err
		}
	}
	return id, nil
}

// Dispatch routes a publish result to the slot whose id matches the
// result's subscription id. First match wins; ids are unique by
// construction. Results matching no slot are ignored.
func (r *SlotRegistry) Dispatch(result *wire.PublishResult, items map[uint32]*MonitoredItem) {
	r.mu.Lock()
	var callback PushCallback
	for _, slot := range r.slots {
		if slot != nil && slot.ID == result.SubscriptionID {
			callback = slot.Callback
			break
		}
	}
	r.mu.Unlock()

	if callback != nil {
		callback(result, items)
	}
}

// DispatchAll routes a publish result from the shared underlying
// subscription to every occupied slot. Each callback observes a copy with
// the subscription id rewritten to the slot's own logical id, so consumers
// never see the server-side id. Callbacks run outside the lock.
func (r *SlotRegistry) DispatchAll(result *wire.PublishResult, items map[uint32]*MonitoredItem) {
	r.mu.Lock()
	occupied := make([]*Slot, 0, len(r.slots))
	for _, slot := range r.slots {
		if slot != nil {
			occupied = append(occupied, slot)
		}
	}
	r.mu.Unlock()

	for _, slot := range occupied {
		scoped := *result
		scoped.SubscriptionID = slot.ID
		slot.Callback(&scoped, items)
	}
}

// Remove releases the slot with the given id after running the underlying
// delete side effect. Removing an unknown id is a no-op.
func (r *SlotRegistry) Remove(id uint32, underlyingDelete func(id uint32) error) error {
	r.mu.Lock()
	index := -1
	for i, slot := range r.slots {
		if slot != nil && slot.ID == id {
			index = i
			break
		}
	}
	r.mu.Unlock()
	if index < 0 {
		return nil
	}

	if underlyingDelete != nil {
		if err := underlyingDelete(id); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.slots[index] = nil
	r.mu.Unlock()
	return nil
}
