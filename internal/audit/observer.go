package audit

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
)

// Subscriber is the part of lifecycle.Bus the Observer needs.
type Subscriber interface {
	Subscribe(entityType, name string, fn lifecycle.Handler)
	Unsubscribe(entityType, name string)
}

// Logger records one activity. Implemented by *Enricher.
type Logger interface {
	Log(ctx context.Context, action, description string, data models.Metadata)
}

// ignoredChangeKeys never count as a change on their own.
var ignoredChangeKeys = map[string]bool{"updated_at": true}

const observerName = "activity-observer"

// Observer turns entity lifecycle events into model_created, model_updated and
// model_deleted activity records.
type Observer struct {
	logger Logger
}

// NewObserver creates an Observer writing through logger.
func NewObserver(logger Logger) *Observer {
	return &Observer{logger: logger}
}

// Attach subscribes the observer for each of entityTypes.
func (o *Observer) Attach(bus Subscriber, entityTypes ...string) {
	for _, t := range entityTypes {
		bus.Subscribe(t, observerName, o.Handle)
	}
}

// Detach removes the observer's subscription for each of entityTypes. Other handlers on
// the bus are left alone.
func (o *Observer) Detach(bus Subscriber, entityTypes ...string) {
	for _, t := range entityTypes {
		bus.Unsubscribe(t, observerName)
	}
}

// Handle records a single lifecycle event.
func (o *Observer) Handle(ctx context.Context, ev lifecycle.Event) {
	switch ev.Kind {
	case lifecycle.Created:
		o.logger.Log(ctx, models.ActionModelCreated, "Created "+ev.EntityType, models.Metadata{
			"model":      ev.EntityType,
			"model_id":   ev.EntityID,
			"attributes": ev.After,
		})
	case lifecycle.Deleted:
		o.logger.Log(ctx, models.ActionModelDeleted, "Deleted "+ev.EntityType, models.Metadata{
			"model":      ev.EntityType,
			"model_id":   ev.EntityID,
			"attributes": ev.Before,
		})
	case lifecycle.Updated:
		changes, original := Diff(ev.Before, ev.After)
		if len(changes) == 0 {
			return
		}
		o.logger.Log(ctx, models.ActionModelUpdated, "Updated "+ev.EntityType, models.Metadata{
			"model":    ev.EntityType,
			"model_id": ev.EntityID,
			"changes":  changes,
			"original": original,
		})
	}
}

// Diff returns the keys of after whose value differs from before (with the new values)
// and the prior values of those same keys. updated_at is never reported.
func Diff(before, after models.Metadata) (changes, original models.Metadata) {
	changes = models.Metadata{}
	original = models.Metadata{}
	for k, v := range after {
		if ignoredChangeKeys[k] {
			continue
		}
		old, existed := before[k]
		if existed && equalAttr(old, v) {
			continue
		}
		changes[k] = v
		original[k] = old
	}
	return changes, original
}

func equalAttr(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	// int vs int64 vs float64 from different code paths
	return isNumber(a) && isNumber(b) && fmt.Sprint(a) == fmt.Sprint(b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}
