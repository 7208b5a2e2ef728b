package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/camera"
	"turnstile/internal/config"
	"turnstile/internal/decode"
	"turnstile/internal/dedup"
	"turnstile/internal/events"
	"turnstile/internal/logging"
	"turnstile/internal/metrics"
	"turnstile/internal/payload"
	"turnstile/internal/record"
	"turnstile/internal/services"
	"turnstile/internal/sheets"
	"turnstile/internal/spool"
	"turnstile/internal/writequeue"
	"turnstile/internal/writer"
)

// Deps carries the session collaborators. Source and Decoder default to
// the real camera and QR reader; tests substitute synthetic ones.
type Deps struct {
	Source  camera.Source
	Decoder decode.Decoder
	Client  sheets.Client
	Spool   *spool.Store
	Bus     *events.Bus
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Session is one scan-to-record run over a config snapshot. Settings
// changes apply to the next session, never a running one.
type Session struct {
	cfg  *config.Config
	deps Deps
	id   string

	queue  *writequeue.Queue
	gate   *dedup.Gate
	writer *writer.Writer
	logger *slog.Logger

	cancelCapture context.CancelFunc
	cancelWriter  context.CancelFunc
	captureDone   chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewSession validates deps and builds an unstarted session.
func NewSession(cfg *config.Config, deps Deps) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Client == nil {
		return nil, errors.New("sheet client is required")
	}
	if deps.Decoder == nil {
		deps.Decoder = decode.NewQRDecoder()
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus(0)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}

	queue := writequeue.New(cfg.Pipeline.QueueCapacity)
	return &Session{
		cfg:    cfg,
		deps:   deps,
		id:     uuid.NewString(),
		queue:  queue,
		gate:   dedup.NewGate(cfg.DedupCooldown()),
		writer: writer.New(cfg, queue, deps.Client, deps.Spool, deps.Bus, deps.Metrics, deps.Logger),
		logger: logging.NewComponentLogger(deps.Logger, "session"),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Bus returns the event stream for this session.
func (s *Session) Bus() *events.Bus { return s.deps.Bus }

// Metrics returns the session collectors.
func (s *Session) Metrics() *metrics.Metrics { return s.deps.Metrics }

// QueueLen reports the records pending delivery.
func (s *Session) QueueLen() int { return s.queue.Len() }

// QueueDropped reports records lost to the overflow policy.
func (s *Session) QueueDropped() uint64 { return s.queue.Dropped() }

// Start opens the capture device when no source was injected and spawns
// the capture and writer goroutines.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("session already started")
	}

	if s.deps.Source == nil {
		source, err := camera.OpenDevice(s.cfg, s.deps.Logger)
		if err != nil {
			return err
		}
		s.deps.Source = source
	}

	s.started = true
	s.captureDone = make(chan struct{})

	// The writer outlives ctx so in-flight and drained records still land
	// during shutdown; Stop cancels it once the queue is settled.
	writerCtx, cancelWriter := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelWriter = cancelWriter
	go func() {
		if s.cfg.Pipeline.SpoolDrainOnStart && s.deps.Spool != nil {
			if _, err := s.writer.DrainSpool(writerCtx); err != nil {
				s.logger.Warn("spool drain incomplete", logging.Args(logging.Error(err))...)
			}
		}
		s.writer.Run(writerCtx)
	}()

	captureCtx, cancelCapture := context.WithCancel(ctx)
	s.cancelCapture = cancelCapture
	captureCtx = services.WithSessionID(captureCtx, s.id)
	go s.captureLoop(captureCtx)

	s.logger.Info("session started",
		logging.Args(
			logging.String(logging.FieldSessionID, s.id),
			logging.String("event", s.cfg.Event.Name),
			logging.Duration("cooldown", s.cfg.DedupCooldown()),
		)...)
	s.deps.Bus.Publish(events.SessionStarted(s.id))
	return nil
}

// Stop winds the session down: capture halts, the queue is given the drain
// timeout to empty, and whatever remains is spooled rather than dropped.
// Safe to call once; later calls are no-ops.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancelCapture()
	<-s.captureDone

	s.awaitQueueDrain()

	remainder := s.queue.Drain()
	if len(remainder) > 0 {
		s.spoolRemainder(remainder)
	}

	<-s.writer.Done()
	s.cancelWriter()

	s.logger.Info("session stopped",
		logging.Args(
			logging.String(logging.FieldSessionID, s.id),
			logging.Int("spooled_on_shutdown", len(remainder)),
		)...)
	s.deps.Bus.Publish(events.SessionStopped(s.id))
	return nil
}

func (s *Session) captureLoop(ctx context.Context) {
	defer close(s.captureDone)
	defer func() {
		if err := s.deps.Source.Close(); err != nil {
			s.logger.Warn("close capture device", logging.Args(logging.Error(err))...)
		}
	}()

	logger := logging.WithContext(ctx, s.logger)
	for {
		frame, err := s.deps.Source.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("capture device failed; scanning halted",
				logging.Args(
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the camera cable, then restart the session"),
				)...)
			s.deps.Bus.Publish(events.CameraError(err.Error()))
			return
		}
		s.deps.Metrics.FramesCaptured.Inc()

		text, ok := s.deps.Decoder.Decode(frame.Image)
		if !ok {
			continue
		}
		s.deps.Metrics.Decodes.Inc()

		key := payload.Key(text)
		if !s.gate.Accept(key, frame.CapturedAt) {
			s.deps.Metrics.Suppressed.Inc()
			logger.Debug("duplicate suppressed", logging.Args(logging.String("key", key))...)
			s.deps.Bus.Publish(events.Suppressed(key))
			continue
		}

		rec := payload.Parse(text, s.cfg.Event.Name, frame.CapturedAt)
		displaced := s.queue.Enqueue(rec)
		if len(displaced) > 0 {
			s.deps.Metrics.QueueDropped.Add(float64(len(displaced)))
			logger.Warn("write queue full, oldest records dropped",
				logging.Args(logging.Int("count", len(displaced)))...)
			s.deps.Bus.Publish(events.QueueFull(len(displaced)))
		}
		s.deps.Metrics.QueueDepth.Set(float64(s.queue.Len()))
		s.deps.Metrics.Recognized.Inc()
		logger.Info("scan recognized",
			logging.Args(
				logging.String(logging.FieldScanID, rec.ScanID),
				logging.String("label", rec.Label()),
			)...)
		s.deps.Bus.Publish(events.Recognized(rec))
	}
}

// awaitQueueDrain polls until the queue empties or the drain timeout
// expires. The writer keeps consuming the whole time.
func (s *Session) awaitQueueDrain() {
	deadline := time.Now().Add(s.cfg.DrainTimeout())
	for s.queue.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
	}
}

func (s *Session) spoolRemainder(remainder []record.Record) {
	ctx := context.Background()
	if s.deps.Spool == nil {
		s.logger.Error("records lost on shutdown, no spool configured",
			logging.Args(logging.Int("count", len(remainder)))...)
		return
	}
	spooled := 0
	for _, rec := range remainder {
		if _, err := s.deps.Spool.Add(ctx, rec, "shutdown", 0); err != nil {
			s.logger.Error("spool record on shutdown",
				logging.Args(logging.String(logging.FieldScanID, rec.ScanID), logging.Error(err))...)
			continue
		}
		spooled++
	}
	if spooled > 0 {
		s.deps.Metrics.Spooled.Add(float64(spooled))
		s.deps.Bus.Publish(events.Spooled(spooled, "shutdown"))
	}
}
