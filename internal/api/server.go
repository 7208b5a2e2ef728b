package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"turnstile/internal/config"
	"turnstile/internal/events"
	"turnstile/internal/logging"
	"turnstile/internal/metrics"
	"turnstile/internal/pipeline"
	"turnstile/internal/spool"
)

// Stats is the /api/stats payload.
type Stats struct {
	SessionID    string    `json:"session_id"`
	Event        string    `json:"event"`
	StartedAt    time.Time `json:"started_at"`
	Recognized   int       `json:"recognized"`
	Suppressed   int       `json:"suppressed"`
	WriteOK      int       `json:"write_ok"`
	WriteFailed  int       `json:"write_failed"`
	Spooled      int       `json:"spooled"`
	QueueDropped int       `json:"queue_dropped"`
	QueueDepth   int       `json:"queue_depth"`
	SpoolEntries int       `json:"spool_entries"`
}

// Server exposes one session's state over HTTP.
type Server struct {
	cfg     *config.Config
	session *pipeline.Session
	store   *spool.Store
	bus     *events.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	counts    map[events.Type]int
	spooled   int
	dropped   int
	startedAt time.Time

	srv         *http.Server
	listener    net.Listener
	unsubscribe func()
}

// NewServer builds the status server for a session. The spool store may be
// nil.
func NewServer(cfg *config.Config, session *pipeline.Session, store *spool.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		cfg:       cfg,
		session:   session,
		store:     store,
		bus:       session.Bus(),
		metrics:   session.Metrics(),
		logger:    logging.NewComponentLogger(logger, "api"),
		counts:    make(map[events.Type]int),
		startedAt: time.Now(),
	}
}

// Start binds the configured address and begins serving. An empty bind
// address disables the API.
func (s *Server) Start() error {
	if s.cfg.API.Bind == "" {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.API.Bind)
	if err != nil {
		return err
	}
	s.listener = listener

	ch, cancel := s.bus.Subscribe()
	s.unsubscribe = cancel
	go s.aggregate(ch)

	s.srv = &http.Server{Handler: s.router()}
	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", logging.Args(logging.Error(err))...)
		}
	}()

	s.logger.Info("status server listening",
		logging.Args(logging.String("addr", listener.Addr().String()))...)
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Addr returns the bound address, or empty when the API is disabled.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealthz)
	router.GET("/api/stats", s.handleStats)
	router.GET("/api/events", s.handleEvents)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	return router
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	s.mu.Lock()
	stats := Stats{
		SessionID:    s.session.ID(),
		Event:        s.cfg.Event.Name,
		StartedAt:    s.startedAt,
		Recognized:   s.counts[events.TypeRecognized],
		Suppressed:   s.counts[events.TypeSuppressed],
		WriteOK:      s.counts[events.TypeWriteOK],
		WriteFailed:  s.counts[events.TypeWriteFailed],
		Spooled:      s.spooled,
		QueueDropped: s.dropped,
	}
	s.mu.Unlock()

	stats.QueueDepth = s.session.QueueLen()
	if s.store != nil {
		if count, err := s.store.Count(c.Request.Context()); err == nil {
			stats.SpoolEntries = count
		}
	}
	c.JSON(http.StatusOK, stats)
}

// handleEvents streams session events as SSE until the client goes away.
func (s *Server) handleEvents(c *gin.Context) {
	ch, cancel := s.bus.Subscribe()
	defer cancel()

	c.Stream(func(io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) aggregate(ch <-chan events.Event) {
	for ev := range ch {
		s.mu.Lock()
		s.counts[ev.Type]++
		switch ev.Type {
		case events.TypeQueueFull:
			s.dropped += ev.Count
		case events.TypeSpooled:
			s.spooled += ev.Count
		}
		s.mu.Unlock()
	}
}
