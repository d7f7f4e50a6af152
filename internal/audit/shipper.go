package audit

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/safego"
	"github.com/Rodrigo270695/portalAD-sub001/internal/telemetry"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body when a secret is set.
const SignatureHeader = "X-Portal-Signature"

const (
	defaultWebhookTimeout = 10 * time.Second
	defaultFlushInterval  = 5 * time.Second
	webhookQueueSize      = 1000
)

// Shipper forwards persisted activity records outside the database: a SIEM webhook or
// a JSON-lines file. Shipping runs after the store accepted the record, so a shipping
// failure never loses it.
type Shipper interface {
	Ship(ctx context.Context, log *models.ActivityLog) error
	// Close flushes anything buffered.
	Close() error
}

// MultiShipper fans a record out to every enabled destination. The set is fixed at
// construction.
type MultiShipper struct {
	shippers []namedShipper
}

type namedShipper struct {
	kind string
	Shipper
}

// NewMultiShipper builds the destinations listed under audit.shippers. Disabled entries
// are skipped.
func NewMultiShipper(configs []config.AuditShipperConfig) (*MultiShipper, error) {
	ms := &MultiShipper{}
	for i, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var (
			s   Shipper
			err error
		)
		switch cfg.Type {
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("shipper %d: webhook section is required", i)
			}
			s, err = NewWebhookShipper(cfg.Webhook)
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("shipper %d: file section is required", i)
			}
			s, err = NewFileShipper(cfg.File)
		default:
			err = fmt.Errorf("unknown shipper type: %s", cfg.Type)
		}
		if err != nil {
			_ = ms.Close()
			return nil, fmt.Errorf("shipper %d: %w", i, err)
		}
		ms.shippers = append(ms.shippers, namedShipper{kind: cfg.Type, Shipper: s})
	}
	return ms, nil
}

// Len reports how many destinations are active.
func (ms *MultiShipper) Len() int {
	return len(ms.shippers)
}

// Ship hands log to every destination. One failing destination does not stop the
// others; the joined error reports all failures.
func (ms *MultiShipper) Ship(ctx context.Context, log *models.ActivityLog) error {
	var errs []error
	for _, s := range ms.shippers {
		if err := s.Ship(ctx, log); err != nil {
			telemetry.ActivityShippedTotal.WithLabelValues(s.kind, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.kind, err))
			continue
		}
		telemetry.ActivityShippedTotal.WithLabelValues(s.kind, "ok").Inc()
	}
	return errors.Join(errs...)
}

// Close closes every destination.
func (ms *MultiShipper) Close() error {
	var errs []error
	for _, s := range ms.shippers {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.kind, err))
		}
	}
	return errors.Join(errs...)
}

// webhookBatch is the body posted for batched delivery.
type webhookBatch struct {
	Source  string                `json:"source"`
	Count   int                   `json:"count"`
	Records []*models.ActivityLog `json:"records"`
}

// WebhookShipper POSTs records as JSON. With batch_size > 0 records are queued and a
// single goroutine posts them as webhookBatch bodies, on size or on the flush interval;
// otherwise each record is posted on its own.
type WebhookShipper struct {
	cfg    *config.AuditWebhookConfig
	client *http.Client

	// mu orders enqueues before the close of stop, so run drains every queued record.
	mu        sync.RWMutex
	queue     chan *models.ActivityLog
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebhookShipper creates a WebhookShipper and starts its batcher when batching is on.
func NewWebhookShipper(cfg *config.AuditWebhookConfig) (*WebhookShipper, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is required")
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	ws := &WebhookShipper{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if cfg.BatchSize > 0 {
		ws.queue = make(chan *models.ActivityLog, webhookQueueSize)
		safego.Go("activity-webhook-batcher", ws.run)
	} else {
		close(ws.done)
	}
	return ws, nil
}

// ErrShipperClosed is returned by Ship after Close.
var ErrShipperClosed = errors.New("shipper is closed")

// Ship queues log when batching, falling back to a direct post when the queue is full.
func (ws *WebhookShipper) Ship(ctx context.Context, log *models.ActivityLog) error {
	ws.mu.RLock()
	select {
	case <-ws.stop:
		ws.mu.RUnlock()
		return ErrShipperClosed
	default:
	}
	queued := false
	if ws.queue != nil {
		select {
		case ws.queue <- log:
			queued = true
		default:
		}
	}
	ws.mu.RUnlock()

	if queued {
		return nil
	}
	return ws.post(ctx, log)
}

// run owns the pending batch; nothing else touches it.
func (ws *WebhookShipper) run() {
	defer close(ws.done)

	interval := time.Duration(ws.cfg.FlushInterval) * time.Second
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pending := make([]*models.ActivityLog, 0, ws.cfg.BatchSize)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), ws.client.Timeout)
		defer cancel()
		if err := ws.post(ctx, webhookBatch{Source: "portalad", Count: len(pending), Records: pending}); err != nil {
			slog.Warn("failed to deliver activity batch", "error", err, "size", len(pending))
		}
		pending = pending[:0]
	}

	for {
		select {
		case log := <-ws.queue:
			pending = append(pending, log)
			if len(pending) >= ws.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ws.stop:
			for {
				select {
				case log := <-ws.queue:
					pending = append(pending, log)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (ws *WebhookShipper) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ws.cfg.Headers {
		req.Header.Set(k, v)
	}
	if ws.cfg.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(ws.cfg.Secret, body))
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close flushes the pending batch and stops the batcher.
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() {
		ws.mu.Lock()
		close(ws.stop)
		ws.mu.Unlock()
	})
	<-ws.done
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret, as sent in SignatureHeader.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// FileShipper appends records as JSON lines. When max_size_mb is set the file is rotated
// to path.1 … path.N before a write would take it past the limit.
type FileShipper struct {
	cfg *config.AuditFileConfig

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewFileShipper opens (or creates) the target file for appending.
func NewFileShipper(cfg *config.AuditFileConfig) (*FileShipper, error) {
	fs := &FileShipper{cfg: cfg}
	if err := fs.open(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileShipper) open() error {
	f, err := os.OpenFile(fs.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open activity file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat activity file: %w", err)
	}
	fs.file, fs.size = f, info.Size()
	return nil
}

// Ship writes one line.
func (fs *FileShipper) Ship(_ context.Context, log *models.ActivityLog) error {
	line, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to encode activity record: %w", err)
	}
	line = append(line, '\n')

	fs.mu.Lock()
	defer fs.mu.Unlock()

	limit := int64(fs.cfg.MaxSizeMB) << 20
	if limit > 0 && fs.size > 0 && fs.size+int64(len(line)) > limit {
		if err := fs.rotate(); err != nil {
			slog.Error("failed to rotate activity file", "error", err, "path", fs.cfg.Path)
		}
	}
	if fs.file == nil {
		return errors.New("activity file is closed")
	}

	n, err := fs.file.Write(line)
	fs.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write activity record: %w", err)
	}
	return nil
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and reopens path.
// The rename onto path.max_backups drops the oldest backup. Callers hold mu.
func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}
	fs.file = nil

	backup := func(i int) string { return fmt.Sprintf("%s.%d", fs.cfg.Path, i) }
	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		_ = os.Rename(backup(i), backup(i+1))
	}
	if err := os.Rename(fs.cfg.Path, backup(1)); err != nil {
		return errors.Join(err, fs.open())
	}
	return fs.open()
}

// Close closes the file.
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}
