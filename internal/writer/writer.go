package writer

import (
	"context"
	"log/slog"
	"time"

	"turnstile/internal/config"
	"turnstile/internal/events"
	"turnstile/internal/logging"
	"turnstile/internal/metrics"
	"turnstile/internal/record"
	"turnstile/internal/services"
	"turnstile/internal/sheets"
	"turnstile/internal/spool"
	"turnstile/internal/writequeue"
)

// Writer is the single delivery worker. It is not safe for concurrent use;
// run exactly one per session.
type Writer struct {
	queue   *writequeue.Queue
	client  sheets.Client
	store   *spool.Store
	bus     *events.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration

	header       []string
	bootstrapped bool

	done chan struct{}
}

// New builds a writer over the queue and sheet client. The spool store may
// be nil, in which case undeliverable records are dropped after the
// WriteFailed event.
func New(
	cfg *config.Config,
	queue *writequeue.Queue,
	client sheets.Client,
	store *spool.Store,
	bus *events.Bus,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Writer {
	if bus == nil {
		bus = events.NewBus(0)
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	base, ceiling := cfg.RetryBackoff()

	return &Writer{
		queue:       queue,
		client:      client,
		store:       store,
		bus:         bus,
		metrics:     m,
		logger:      logging.NewComponentLogger(logger, "writer"),
		maxAttempts: cfg.Sheets.MaxAttempts,
		backoffBase: base,
		backoffCap:  ceiling,
		done:        make(chan struct{}),
	}
}

// Start runs the worker loop on its own goroutine.
func (w *Writer) Start(ctx context.Context) {
	go w.Run(ctx)
}

// Run dequeues records until the queue is closed and empty or ctx is
// cancelled. A record already dequeued is always carried to a terminal
// outcome, delivered or spooled, before the loop exits.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		rec, ok := w.queue.Dequeue(ctx)
		if !ok {
			return
		}
		w.metrics.QueueDepth.Set(float64(w.queue.Len()))
		w.process(context.WithoutCancel(ctx), rec)
	}
}

// Done is closed once the worker loop has exited.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) process(ctx context.Context, rec record.Record) {
	if err := w.Deliver(ctx, rec); err != nil {
		w.metrics.WriteFailed.Inc()
		w.logger.Error("sheet write failed",
			logging.Args(
				logging.String(logging.FieldScanID, rec.ScanID),
				logging.String("label", rec.Label()),
				logging.Error(err),
			)...)
		w.bus.Publish(events.WriteFailed(rec, err.Error()))
		w.spoolRecord(ctx, rec, err)
		return
	}

	w.metrics.WriteOK.Inc()
	w.logger.Info("record appended",
		logging.Args(
			logging.String(logging.FieldScanID, rec.ScanID),
			logging.String("label", rec.Label()),
		)...)
	w.bus.Publish(events.WriteOK(rec))
}

// Deliver appends one record, bootstrapping and extending the header as
// needed. Also used by the spool drain path.
func (w *Writer) Deliver(ctx context.Context, rec record.Record) error {
	if err := w.ensureBootstrap(ctx); err != nil {
		return err
	}
	if err := w.ensureColumns(ctx, rec); err != nil {
		return err
	}
	return w.withRetry(ctx, func(callCtx context.Context) error {
		w.metrics.WriteAttempts.Inc()
		return w.client.AppendRow(callCtx, rec.Row(w.header))
	})
}

// DrainSpool replays spooled records through Deliver oldest-first.
func (w *Writer) DrainSpool(ctx context.Context) (int, error) {
	if w.store == nil {
		return 0, nil
	}
	drained, err := w.store.Drain(ctx, w.Deliver)
	if drained > 0 {
		w.logger.Info("spool drained", logging.Args(logging.Int("count", drained))...)
		w.bus.Publish(events.SpoolDrained(drained))
	}
	w.updateSpoolDepth(ctx)
	return drained, err
}

// ensureBootstrap reads the remote header once per writer, seeding the
// fixed columns when the worksheet is empty. The flag stays unset on
// failure so the next record retries from scratch.
func (w *Writer) ensureBootstrap(ctx context.Context) error {
	if w.bootstrapped {
		return nil
	}

	var header []string
	err := w.withRetry(ctx, func(callCtx context.Context) error {
		var readErr error
		header, readErr = w.client.ReadHeader(callCtx)
		return readErr
	})
	if err != nil {
		return err
	}

	if len(header) == 0 {
		header = append([]string(nil), record.FixedColumns...)
		if err := w.withRetry(ctx, func(callCtx context.Context) error {
			return w.client.EnsureHeader(callCtx, header)
		}); err != nil {
			return err
		}
	}

	w.header = header
	w.bootstrapped = true
	return nil
}

// ensureColumns extends the header for columns this record introduces.
// Existing columns are never reordered or removed.
func (w *Writer) ensureColumns(ctx context.Context, rec record.Record) error {
	missing := rec.MissingColumns(w.header)
	if len(missing) == 0 {
		return nil
	}

	next := append(append([]string(nil), w.header...), missing...)
	if err := w.withRetry(ctx, func(callCtx context.Context) error {
		return w.client.EnsureHeader(callCtx, next)
	}); err != nil {
		return err
	}
	w.header = next
	w.logger.Info("header extended", logging.Args(logging.Any("columns", missing))...)
	return nil
}

func (w *Writer) withRetry(ctx context.Context, fn func(context.Context) error) error {
	attempts := w.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !services.IsTransient(err) || attempt == attempts {
			return err
		}

		delay := backoffDelay(w.backoffBase, w.backoffCap, attempt)
		w.metrics.WriteRetries.Inc()
		w.logger.Warn("transient sheet error",
			logging.Args(
				logging.Int("attempt", attempt),
				logging.Duration("backoff", delay),
				logging.Error(err),
			)...)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (w *Writer) spoolRecord(ctx context.Context, rec record.Record, cause error) {
	if w.store == nil {
		return
	}
	if _, err := w.store.Add(ctx, rec, cause.Error(), w.maxAttempts); err != nil {
		w.logger.Error("spool record",
			logging.Args(logging.String(logging.FieldScanID, rec.ScanID), logging.Error(err))...)
		return
	}
	w.metrics.Spooled.Inc()
	w.updateSpoolDepth(ctx)
	w.bus.Publish(events.Spooled(1, cause.Error()))
}

func (w *Writer) updateSpoolDepth(ctx context.Context) {
	if w.store == nil {
		return
	}
	if count, err := w.store.Count(ctx); err == nil {
		w.metrics.SpoolDepth.Set(float64(count))
	}
}

func backoffDelay(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	if ceiling > 0 && delay > ceiling {
		delay = ceiling
	}
	return delay
}
