package rtc

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Base keeps the attachment bookkeeping of a component. Embed a *Base (or a
// Base in a struct used by pointer) to satisfy Component and Binder.
type Base struct {
	mu       sync.Mutex
	name     string
	owned    map[ExecutionContextHandle]ExecutionContextService
	attached map[ExecutionContextHandle]ExecutionContextService
	nextOwn  ExecutionContextHandle
	nextPart ExecutionContextHandle
}

// NewBase returns a Base with the given instance name. An empty name is
// replaced by a random one.
func NewBase(name string) *Base {
	b := &Base{}
	b.SetInstanceName(name)
	return b
}

// InstanceName returns the component's instance name, generating one on
// first use if none was set.
func (b *Base) InstanceName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.name == "" {
		b.name = "rtc-" + uuid.NewString()[:8]
	}
	return b.name
}

// SetInstanceName sets the instance name.
func (b *Base) SetInstanceName(name string) {
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

// BindContext records ec as an owned context.
func (b *Base) BindContext(ec ExecutionContextService) (ExecutionContextHandle, error) {
	if ec == nil {
		return -1, fmt.Errorf("bind nil context: %w", ErrBadParameter)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nextOwn >= ECOtherOffset {
		return -1, fmt.Errorf("too many owned contexts: %w", ErrOutOfResources)
	}
	if b.owned == nil {
		b.owned = make(map[ExecutionContextHandle]ExecutionContextService)
	}
	id := b.nextOwn
	b.nextOwn++
	b.owned[id] = ec
	return id, nil
}

// AttachContext records ec as a participating context.
func (b *Base) AttachContext(ec ExecutionContextService) (ExecutionContextHandle, error) {
	if ec == nil {
		return -1, fmt.Errorf("attach nil context: %w", ErrBadParameter)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attached == nil {
		b.attached = make(map[ExecutionContextHandle]ExecutionContextService)
	}
	id := ECOtherOffset + b.nextPart
	b.nextPart++
	b.attached[id] = ec
	return id, nil
}

// DetachContext forgets the participating context with the given id.
func (b *Base) DetachContext(id ExecutionContextHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.attached[id]; ok {
		delete(b.attached, id)
		return nil
	}
	if _, ok := b.owned[id]; ok {
		delete(b.owned, id)
		return nil
	}
	return fmt.Errorf("context %d is not attached: %w", id, ErrBadParameter)
}

// Context returns the context known under id.
func (b *Base) Context(id ExecutionContextHandle) (ExecutionContextService, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ec, ok := b.owned[id]; ok {
		return ec, true
	}
	ec, ok := b.attached[id]
	return ec, ok
}

// Contexts returns the ids of all owned and participating contexts in
// ascending order.
func (b *Base) Contexts() []ExecutionContextHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]ExecutionContextHandle, 0, len(b.owned)+len(b.attached))
	for id := range b.owned {
		ids = append(ids, id)
	}
	for id := range b.attached {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
