package audit

import "context"

type ctxKey int

const (
	actorKey ctxKey = iota
	recorderKey
)

// WithActor stores the authenticated principal id in ctx.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

// ActorFromContext returns the principal id stored by WithActor, or nil. It never fails.
func ActorFromContext(ctx context.Context) *string {
	if ctx == nil {
		return nil
	}
	id, ok := ctx.Value(actorKey).(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

// WithRecorder stores the request's Recorder in ctx.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey, r)
}

// RecorderFrom returns the Recorder stored by WithRecorder, or nil.
func RecorderFrom(ctx context.Context) *Recorder {
	if ctx == nil {
		return nil
	}
	r, _ := ctx.Value(recorderKey).(*Recorder)
	return r
}
