package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/safego"
	"github.com/Rodrigo270695/portalAD-sub001/internal/telemetry"
)

var (
	// ErrQueueFull is returned by AsyncWriter when a record had to be dropped.
	ErrQueueFull = errors.New("activity write queue is full")
	// ErrWriterClosed is returned for writes after Close.
	ErrWriterClosed = errors.New("activity writer is closed")
)

// Store persists activity records. Implemented by repositories.ActivityLogRepository.
type Store interface {
	Append(ctx context.Context, log *models.ActivityLog) (int64, error)
}

// Writer hands a finished record to persistence.
type Writer interface {
	Write(ctx context.Context, log *models.ActivityLog) error
	Close() error
}

// StoreWriter persists synchronously on the caller's goroutine and then forwards the
// stored record to the shippers, if any.
type StoreWriter struct {
	store   Store
	shipper Shipper
}

// NewStoreWriter creates a StoreWriter. shipper may be nil.
func NewStoreWriter(store Store, shipper Shipper) *StoreWriter {
	return &StoreWriter{store: store, shipper: shipper}
}

// Write appends the record. Shipping failures are logged and do not fail the write.
func (w *StoreWriter) Write(ctx context.Context, log *models.ActivityLog) error {
	if _, err := w.store.Append(ctx, log); err != nil {
		return err
	}
	telemetry.ActivityRecordsWrittenTotal.WithLabelValues(log.Action).Inc()

	if w.shipper != nil {
		if err := w.shipper.Ship(ctx, log); err != nil {
			slog.Warn("failed to ship activity record", "error", err, "id", log.ID, "action", log.Action)
		}
	}
	return nil
}

// Close closes the shippers.
func (w *StoreWriter) Close() error {
	if w.shipper == nil {
		return nil
	}
	return w.shipper.Close()
}

// AsyncWriter queues records on a bounded channel drained by a fixed pool of workers.
// A full queue drops the record instead of blocking the request.
type AsyncWriter struct {
	next    Writer
	queue   chan *models.ActivityLog
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncWriter starts workers goroutines draining a queue of queueSize records into
// next. Each write runs detached from the request under its own timeout.
func NewAsyncWriter(next Writer, queueSize, workers int, timeout time.Duration) *AsyncWriter {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	w := &AsyncWriter{
		next:    next,
		queue:   make(chan *models.ActivityLog, queueSize),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		safego.Go("activity-writer", func() {
			defer w.wg.Done()
			w.work()
		})
	}
	return w
}

func (w *AsyncWriter) work() {
	for log := range w.queue {
		telemetry.ActivityQueueDepth.Set(float64(len(w.queue)))
		safego.Run("activity-writer-write", func() {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			defer cancel()
			if err := w.next.Write(ctx, log); err != nil {
				telemetry.ActivityWriteFailuresTotal.Inc()
				slog.Error("failed to persist activity record", "error", err, "action", log.Action)
			}
		})
	}
}

// Write enqueues the record without blocking. ctx is not carried into the worker, so a
// finished request does not cancel its own activity record.
func (w *AsyncWriter) Write(_ context.Context, log *models.ActivityLog) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}

	select {
	case w.queue <- log:
		telemetry.ActivityQueueDepth.Set(float64(len(w.queue)))
		return nil
	default:
		telemetry.ActivityQueueDroppedTotal.Inc()
		return ErrQueueFull
	}
}

// Close stops accepting records, waits for the queue to drain and closes next.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	telemetry.ActivityQueueDepth.Set(0)
	return w.next.Close()
}
