package pipeline_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"turnstile/internal/camera"
	"turnstile/internal/events"
	"turnstile/internal/pipeline"
	"turnstile/internal/testsupport"
)

type payloadImage struct {
	image.Image
	payload string
}

func newFrame(payload string, at time.Time) camera.Frame {
	return camera.Frame{
		Image:      payloadImage{Image: image.NewRGBA(image.Rect(0, 0, 1, 1)), payload: payload},
		CapturedAt: at,
	}
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(img image.Image) (string, bool) {
	if p, ok := img.(payloadImage); ok && p.payload != "" {
		return p.payload, true
	}
	return "", false
}

type fakeSource struct {
	frames chan camera.Frame
	err    error

	mu     sync.Mutex
	closed bool
}

func newFakeSource(buffer int) *fakeSource {
	return &fakeSource{frames: make(chan camera.Frame, buffer)}
}

func (s *fakeSource) ReadFrame(ctx context.Context) (camera.Frame, error) {
	select {
	case <-ctx.Done():
		return camera.Frame{}, ctx.Err()
	case f := <-s.frames:
		if s.err != nil && f.Image == nil {
			return camera.Frame{}, s.err
		}
		return f, nil
	}
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeClient struct {
	mu     sync.Mutex
	header []string
	rows   [][]string
	delay  time.Duration
}

func (c *fakeClient) ReadHeader(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.header...), nil
}

func (c *fakeClient) EnsureHeader(_ context.Context, columns []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header = append([]string(nil), columns...)
	return nil
}

func (c *fakeClient) AppendRow(_ context.Context, values []string) error {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, append([]string(nil), values...))
	return nil
}

func (c *fakeClient) rowCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

func (c *fakeClient) rowsCopy() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]string, len(c.rows))
	copy(out, c.rows)
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func collectEvents(ch <-chan events.Event) []events.Event {
	var got []events.Event
	for {
		select {
		case ev := <-ch:
			got = append(got, ev)
		default:
			return got
		}
	}
}

func TestSessionScanToRecordFlow(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDedupCooldown(5*time.Second))
	cfg.Sheets.RetryBackoffMillis = 1
	cfg.Sheets.RetryBackoffCapMillis = 2
	store := testsupport.MustOpenSpool(t, cfg)

	source := newFakeSource(8)
	client := &fakeClient{}
	bus := events.NewBus(0)
	t.Cleanup(bus.Close)

	session, err := pipeline.NewSession(cfg, pipeline.Deps{
		Source:  source,
		Decoder: fakeDecoder{},
		Client:  client,
		Spool:   store,
		Bus:     bus,
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	ch, cancel := bus.Subscribe()
	defer cancel()

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t0 := time.Now()
	payload := `{"id":"A001","name":"王小明","extra":{"ticket":"VIP"}}`
	source.frames <- newFrame(payload, t0)
	source.frames <- newFrame(payload, t0.Add(2*time.Second)) // inside cooldown
	source.frames <- newFrame("hello", t0.Add(3*time.Second))

	waitFor(t, "both rows delivered", func() bool { return client.rowCount() == 2 })

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !source.wasClosed() {
		t.Fatal("expected capture device to be closed")
	}

	rows := client.rowsCopy()
	// Header: timestamp, event, id, name, raw, ticket.
	if rows[0][2] != "A001" || rows[0][3] != "王小明" || rows[0][5] != "VIP" {
		t.Fatalf("unexpected structured row: %v", rows[0])
	}
	if rows[1][2] != "" || rows[1][4] != "hello" {
		t.Fatalf("unexpected raw row: %v", rows[1])
	}
	if rows[1][1] != "test-event" {
		t.Fatalf("expected event name on raw row, got %v", rows[1])
	}

	counts := map[events.Type]int{}
	for _, ev := range collectEvents(ch) {
		counts[ev.Type]++
	}
	if counts[events.TypeSessionStarted] != 1 || counts[events.TypeSessionStopped] != 1 {
		t.Fatalf("unexpected session events: %v", counts)
	}
	if counts[events.TypeRecognized] != 2 {
		t.Fatalf("expected 2 recognized events, got %d", counts[events.TypeRecognized])
	}
	if counts[events.TypeSuppressed] != 1 {
		t.Fatalf("expected 1 suppressed event, got %d", counts[events.TypeSuppressed])
	}
	if counts[events.TypeWriteOK] != 2 {
		t.Fatalf("expected 2 write_ok events, got %d", counts[events.TypeWriteOK])
	}
}

func TestSessionSpoolsQueueRemainderOnStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDedupCooldown(0))
	cfg.Pipeline.DrainTimeoutSeconds = 0
	cfg.Sheets.RetryBackoffMillis = 1
	cfg.Sheets.RetryBackoffCapMillis = 2
	store := testsupport.MustOpenSpool(t, cfg)

	source := newFakeSource(8)
	client := &fakeClient{delay: 150 * time.Millisecond}
	bus := events.NewBus(0)
	t.Cleanup(bus.Close)

	session, err := pipeline.NewSession(cfg, pipeline.Deps{
		Source:  source,
		Decoder: fakeDecoder{},
		Client:  client,
		Spool:   store,
		Bus:     bus,
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t0 := time.Now()
	total := 3
	for i := 0; i < total; i++ {
		source.frames <- newFrame(`{"id":"P00`+string(rune('1'+i))+`"}`, t0.Add(time.Duration(i)*time.Second))
	}

	waitFor(t, "records recognized", func() bool {
		return session.QueueLen() > 0 || client.rowCount() > 0
	})

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	spooled, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if client.rowCount()+spooled != total {
		t.Fatalf("records lost: %d delivered + %d spooled != %d", client.rowCount(), spooled, total)
	}
}

func TestSessionCameraFailureHaltsCapture(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sheets.RetryBackoffMillis = 1
	cfg.Sheets.RetryBackoffCapMillis = 2
	store := testsupport.MustOpenSpool(t, cfg)

	source := newFakeSource(1)
	source.err = errors.New("device unplugged")
	client := &fakeClient{}
	bus := events.NewBus(0)
	t.Cleanup(bus.Close)

	session, err := pipeline.NewSession(cfg, pipeline.Deps{
		Source:  source,
		Decoder: fakeDecoder{},
		Client:  client,
		Spool:   store,
		Bus:     bus,
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	ch, cancel := bus.Subscribe()
	defer cancel()

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A frame with a nil image triggers the injected device error.
	source.frames <- camera.Frame{}

	waitFor(t, "camera error event", func() bool {
		for _, ev := range collectEvents(ch) {
			if ev.Type == events.TypeCameraError {
				return true
			}
		}
		return false
	})

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
