// Package lifecycle carries entity mutation events from repositories to interested
// subscribers. Repositories publish after their write has committed; subscribers are
// keyed by entity type so a type is observed only once something opts it in.
package lifecycle

import (
	"context"
	"sync"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/safego"
)

// Kind is the mutation that produced an Event.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Entity is implemented by models whose mutations are published.
type Entity interface {
	EntityType() string
	EntityID() int64
	Attributes() models.Metadata
}

// Event describes one committed mutation. Before is nil for Created and After is nil
// for Deleted.
type Event struct {
	Kind       Kind
	EntityType string
	EntityID   int64
	Before     models.Metadata
	After      models.Metadata
}

// CreatedEvent builds the event for a freshly inserted entity.
func CreatedEvent(e Entity) Event {
	return Event{Kind: Created, EntityType: e.EntityType(), EntityID: e.EntityID(), After: e.Attributes()}
}

// UpdatedEvent builds the event for an entity whose attributes were before.
func UpdatedEvent(before models.Metadata, e Entity) Event {
	return Event{Kind: Updated, EntityType: e.EntityType(), EntityID: e.EntityID(), Before: before, After: e.Attributes()}
}

// DeletedEvent builds the event for a removed entity.
func DeletedEvent(e Entity) Event {
	return Event{Kind: Deleted, EntityType: e.EntityType(), EntityID: e.EntityID(), Before: e.Attributes()}
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, ev Event)

// Publisher is what repositories depend on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type subscription struct {
	name string
	fn   Handler
}

// Bus dispatches events synchronously to the handlers subscribed for the event's entity
// type, in subscription order.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for entityType under name. Registering the same name twice for
// one type replaces the earlier handler.
func (b *Bus) Subscribe(entityType, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.subs[entityType]
	for i := range entries {
		if entries[i].name == name {
			entries[i].fn = fn
			return
		}
	}
	b.subs[entityType] = append(entries, subscription{name: name, fn: fn})
}

// Unsubscribe removes the handler registered under name for entityType.
func (b *Bus) Unsubscribe(entityType, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.subs[entityType]
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	b.subs[entityType] = entries[:n]
}

// Subscribed reports whether any handler observes entityType.
func (b *Bus) Subscribed(entityType string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[entityType]) > 0
}

// Publish runs every handler for ev.EntityType. A panicking handler is recovered and
// logged so it can never fail the mutation that published the event.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	entries := make([]subscription, len(b.subs[ev.EntityType]))
	copy(entries, b.subs[ev.EntityType])
	b.mu.RUnlock()

	for _, e := range entries {
		safego.Run("lifecycle:"+e.name, func() { e.fn(ctx, ev) })
	}
}
